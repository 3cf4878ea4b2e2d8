package scheduling

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// TokenStatus is the health of one rotating API credential.
type TokenStatus string

const (
	TokenActive   TokenStatus = "active"
	TokenExpiring TokenStatus = "expiring"
	TokenExpired  TokenStatus = "expired"
	TokenRevoked  TokenStatus = "revoked"
	TokenInvalid  TokenStatus = "invalid"
	TokenUnknown  TokenStatus = "unknown"
)

// Credential names; the manager holds at most one of each.
const (
	CredentialPrimary   = "primary"
	CredentialSecondary = "secondary"
)

// TokenInfo tracks one credential's usage and health. Credentials are
// created at process start and only superseded by a restart.
type TokenInfo struct {
	Name       string
	Token      string
	Status     TokenStatus
	UsageCount int64
	LastUsed   time.Time
	CreatedAt  time.Time

	limiter *rate.Limiter
}

// CredentialManagerConfig tunes rotation behavior.
type CredentialManagerConfig struct {
	UsageThreshold    int64         // promotes to Expiring past this count
	RequestsPerMinute int           // provider rate limit per credential
	CheckInterval     time.Duration // health-check sweep interval
}

// CredentialManager selects the best live credential for each outbound
// scheduling API call and demotes failing ones. Safe for concurrent use.
type CredentialManager struct {
	mu     sync.Mutex
	tokens map[string]*TokenInfo
	cfg    CredentialManagerConfig
	logger *zap.Logger

	stopCh chan struct{}
	once   sync.Once
}

// NewCredentialManager builds a manager from the configured primary and
// optional secondary credential.
func NewCredentialManager(primary, secondary string, cfg CredentialManagerConfig, logger *zap.Logger) *CredentialManager {
	if cfg.UsageThreshold <= 0 {
		cfg.UsageThreshold = 10000
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 300
	}
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = time.Minute
	}

	m := &CredentialManager{
		tokens: make(map[string]*TokenInfo),
		cfg:    cfg,
		logger: logger,
		stopCh: make(chan struct{}),
	}
	now := time.Now()
	if primary != "" {
		m.tokens[CredentialPrimary] = &TokenInfo{
			Name:      CredentialPrimary,
			Token:     primary,
			Status:    TokenActive,
			CreatedAt: now,
			limiter:   rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), cfg.RequestsPerMinute),
		}
	}
	if secondary != "" {
		m.tokens[CredentialSecondary] = &TokenInfo{
			Name:      CredentialSecondary,
			Token:     secondary,
			Status:    TokenActive,
			CreatedAt: now,
			limiter:   rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), cfg.RequestsPerMinute),
		}
	}
	return m
}

// GetToken returns the name and value of the best live credential: the
// primary while it is Active or Expiring, otherwise the secondary. The
// credential's rate limiter is consulted before it is handed out; usage is
// counted only once the reservation succeeds, so a cancelled wait does not
// advance the rotation threshold.
func (m *CredentialManager) GetToken(ctx context.Context) (string, string, error) {
	m.mu.Lock()
	var info *TokenInfo
	for _, name := range []string{CredentialPrimary, CredentialSecondary} {
		candidate, ok := m.tokens[name]
		if !ok {
			continue
		}
		if candidate.Status == TokenActive || candidate.Status == TokenExpiring {
			info = candidate
			break
		}
	}
	if info == nil {
		m.mu.Unlock()
		return "", "", ErrNoValidCredential
	}
	limiter := info.limiter
	name, token := info.Name, info.Token
	m.mu.Unlock()

	// Wait outside the lock so a throttled caller does not block others.
	if err := limiter.Wait(ctx); err != nil {
		return "", "", err
	}

	m.mu.Lock()
	info.UsageCount++
	info.LastUsed = time.Now()
	m.mu.Unlock()
	return name, token, nil
}

// MarkFailed downgrades a named credential, typically after the API client
// observed an authentication failure.
func (m *CredentialManager) MarkFailed(name string, status TokenStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	info, ok := m.tokens[name]
	if !ok {
		return
	}
	info.Status = status
	if m.logger != nil {
		m.logger.Warn("scheduling credential downgraded",
			zap.String("credential", name),
			zap.String("status", string(status)),
			zap.Int64("usageCount", info.UsageCount))
	}
}

// TokenInfoFor returns a snapshot of a credential's state.
func (m *CredentialManager) TokenInfoFor(name string) (TokenInfo, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	info, ok := m.tokens[name]
	if !ok {
		return TokenInfo{}, false
	}
	return *info, true
}

// Start launches the periodic health check that promotes credentials past
// the usage threshold to Expiring as an early warning.
func (m *CredentialManager) Start() {
	go func() {
		ticker := time.NewTicker(m.cfg.CheckInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.checkUsage()
			case <-m.stopCh:
				return
			}
		}
	}()
}

// Stop terminates the health-check goroutine.
func (m *CredentialManager) Stop() {
	m.once.Do(func() { close(m.stopCh) })
}

func (m *CredentialManager) checkUsage() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, info := range m.tokens {
		if info.Status == TokenActive && info.UsageCount >= m.cfg.UsageThreshold {
			info.Status = TokenExpiring
			if m.logger != nil {
				m.logger.Warn("scheduling credential nearing rotation",
					zap.String("credential", info.Name),
					zap.Int64("usageCount", info.UsageCount))
			}
		}
	}
}
