package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	defaultReplayWindow = 300 * time.Second
	pruneInterval       = time.Hour
)

// SecurityGate verifies inbound webhook signatures before any payload is
// trusted: HMAC-SHA256 over the raw body against one or two rotating
// signing keys, constant-time comparison, and replay deduplication within a
// fixed window. Safe under concurrent webhook delivery.
type SecurityGate struct {
	primaryKey   []byte
	secondaryKey []byte
	window       time.Duration
	logger       *zap.Logger

	mu   sync.Mutex
	seen map[string]time.Time

	now    func() time.Time
	stopCh chan struct{}
	once   sync.Once
}

// NewSecurityGate builds a gate from the configured signing keys. The
// secondary key may be empty outside rotation windows.
func NewSecurityGate(primaryKey, secondaryKey string, window time.Duration, logger *zap.Logger) *SecurityGate {
	if window <= 0 {
		window = defaultReplayWindow
	}
	g := &SecurityGate{
		window: window,
		logger: logger,
		seen:   make(map[string]time.Time),
		now:    time.Now,
		stopCh: make(chan struct{}),
	}
	if primaryKey != "" {
		g.primaryKey = []byte(primaryKey)
	}
	if secondaryKey != "" {
		g.secondaryKey = []byte(secondaryKey)
	}
	return g
}

// Verify checks the signature header against the raw body. Primary key
// first, secondary on mismatch. A signature already accepted within the
// replay window is rejected as a replay.
func (g *SecurityGate) Verify(signature string, body []byte) error {
	if len(g.primaryKey) == 0 {
		return newSignatureError(CodeConfigurationError, "no webhook signing key configured")
	}
	if signature == "" {
		return newSignatureError(CodeMissingSignature, "signature header missing")
	}

	if !g.matches(g.primaryKey, signature, body) &&
		(len(g.secondaryKey) == 0 || !g.matches(g.secondaryKey, signature, body)) {
		return newSignatureError(CodeInvalidSignature, "signature does not match any signing key")
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.now()
	if seenAt, ok := g.seen[signature]; ok && now.Sub(seenAt) < g.window {
		if g.logger != nil {
			g.logger.Warn("webhook replay rejected", zap.Time("firstSeen", seenAt))
		}
		return newSignatureError(CodeReplayAttack, "signature already processed within replay window")
	}
	g.seen[signature] = now
	return nil
}

func (g *SecurityGate) matches(key []byte, signature string, body []byte) bool {
	mac := hmac.New(sha256.New, key)
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}

// Sign computes the hex HMAC-SHA256 of body under the primary key. Used by
// tests and outbound signing.
func (g *SecurityGate) Sign(body []byte) string {
	mac := hmac.New(sha256.New, g.primaryKey)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Start launches the hourly prune of the replay-protection map.
func (g *SecurityGate) Start() {
	go func() {
		ticker := time.NewTicker(pruneInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				g.prune()
			case <-g.stopCh:
				return
			}
		}
	}()
}

// Stop terminates the prune goroutine.
func (g *SecurityGate) Stop() {
	g.once.Do(func() { close(g.stopCh) })
}

func (g *SecurityGate) prune() {
	g.mu.Lock()
	defer g.mu.Unlock()
	cutoff := g.now().Add(-g.window)
	for sig, seenAt := range g.seen {
		if seenAt.Before(cutoff) {
			delete(g.seen, sig)
		}
	}
}
