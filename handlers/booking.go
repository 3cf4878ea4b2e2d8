package handlers

import (
	"errors"
	"net/http"

	"bookflow/database/repository"
	"bookflow/models"
	"bookflow/services/booking"
	"bookflow/services/scheduling"
	"bookflow/utils"

	"github.com/gin-gonic/gin"
)

// BookingHandler exposes the orchestration service over HTTP.
type BookingHandler struct {
	Service   booking.OrchestrationService
	Scheduler *scheduling.Client
	Checkout  booking.CheckoutService
}

func NewBookingHandler(service booking.OrchestrationService, scheduler *scheduling.Client, checkout booking.CheckoutService) *BookingHandler {
	return &BookingHandler{Service: service, Scheduler: scheduler, Checkout: checkout}
}

// CreateBooking starts a new booking lifecycle.
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	var input models.BookingStateData
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	bc, err := h.Service.CreateBooking(c.Request.Context(), input)
	if err != nil {
		var conflictErr *booking.ConflictError
		if errors.As(err, &conflictErr) {
			c.JSON(http.StatusConflict, gin.H{
				"error":        conflictErr.Message,
				"code":         conflictErr.Code,
				"conflicts":    conflictErr.Conflicts,
				"alternatives": conflictErr.Alternatives,
			})
			return
		}
		utils.JSONError(c, http.StatusInternalServerError, "failed to create booking", err.Error())
		return
	}
	c.JSON(http.StatusCreated, bc)
}

// TransitionBooking applies a lifecycle event to a booking.
func (h *BookingHandler) TransitionBooking(c *gin.Context) {
	bookingID := c.Param("id")
	var input struct {
		Event models.BookingEvent     `json:"event" binding:"required"`
		Data  models.BookingStateData `json:"data"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	result, err := h.Service.TransitionBooking(c.Request.Context(), bookingID, input.Event, input.Data)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			utils.JSONError(c, http.StatusNotFound, "booking not found", bookingID)
			return
		}
		utils.JSONError(c, http.StatusInternalServerError, "failed to apply transition", err.Error())
		return
	}
	status := http.StatusOK
	if !result.Success {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, result)
}

// CancelBooking computes refund eligibility and drives the cancellation
// transitions.
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	bookingID := c.Param("id")
	var input struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&input)

	cancelledBy := c.GetString("userID")
	if cancelledBy == "" {
		cancelledBy = "client"
	}

	result, decision, err := h.Service.CancelBooking(c.Request.Context(), bookingID, input.Reason, cancelledBy)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			utils.JSONError(c, http.StatusNotFound, "booking not found", bookingID)
			return
		}
		utils.JSONError(c, http.StatusInternalServerError, "failed to cancel booking", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": result, "refund": decision})
}

// RecoverBooking moves a booking out of the error state to an operationally
// chosen target.
func (h *BookingHandler) RecoverBooking(c *gin.Context) {
	bookingID := c.Param("id")
	var input struct {
		TargetState models.BookingState     `json:"targetState" binding:"required"`
		Data        models.BookingStateData `json:"data"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	result, err := h.Service.RecoverBooking(c.Request.Context(), bookingID, input.TargetState, input.Data)
	if err != nil {
		var recoveryErr *booking.InvalidRecoveryError
		if errors.As(err, &recoveryErr) {
			utils.JSONError(c, http.StatusConflict, "booking is not recoverable", recoveryErr.Error())
			return
		}
		if errors.Is(err, repository.ErrBookingNotFound) {
			utils.JSONError(c, http.StatusNotFound, "booking not found", bookingID)
			return
		}
		utils.JSONError(c, http.StatusInternalServerError, "failed to recover booking", err.Error())
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetBooking returns the authoritative booking context.
func (h *BookingHandler) GetBooking(c *gin.Context) {
	bc, err := h.Service.GetBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			utils.JSONError(c, http.StatusNotFound, "booking not found", c.Param("id"))
			return
		}
		utils.JSONError(c, http.StatusInternalServerError, "failed to load booking", err.Error())
		return
	}
	c.JSON(http.StatusOK, bc)
}

// GetBookingHistory returns the append-only transition history.
func (h *BookingHandler) GetBookingHistory(c *gin.Context) {
	history, err := h.Service.GetHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "failed to load history", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": history})
}

// InitiateCheckout creates a hosted payment session for a booking and drives
// the payment-initiation transition with the new session id.
func (h *BookingHandler) InitiateCheckout(c *gin.Context) {
	bookingID := c.Param("id")
	var input booking.CheckoutRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	bc, err := h.Service.GetBooking(c.Request.Context(), bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			utils.JSONError(c, http.StatusNotFound, "booking not found", bookingID)
			return
		}
		utils.JSONError(c, http.StatusInternalServerError, "failed to load booking", err.Error())
		return
	}

	sess, err := h.Checkout.CreateCheckoutSession(c.Request.Context(), bc, input)
	if err != nil {
		utils.JSONError(c, http.StatusBadGateway, "failed to create checkout session", err.Error())
		return
	}

	result, err := h.Service.TransitionBooking(c.Request.Context(), bookingID, models.EventInitiatePayment, models.BookingStateData{
		PaymentSessionID: sess.SessionID,
		Amount:           input.Amount,
		Currency:         input.Currency,
	})
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "failed to apply transition", err.Error())
		return
	}
	status := http.StatusOK
	if !result.Success {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, gin.H{"checkout": sess, "result": result})
}

// CreateSchedulingLink builds a prefilled provider booking URL carrying the
// correlation parameters for an existing booking.
func (h *BookingHandler) CreateSchedulingLink(c *gin.Context) {
	var input struct {
		BookingID string                       `json:"bookingId" binding:"required"`
		Link      models.SchedulingLinkRequest `json:"link" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	link, err := h.Scheduler.BuildSchedulingLink(c.Request.Context(), input.BookingID, input.Link)
	if err != nil {
		var validationErr *scheduling.RequestValidationError
		if errors.As(err, &validationErr) {
			utils.JSONError(c, http.StatusBadRequest, "invalid scheduling link request", validationErr.Error())
			return
		}
		utils.JSONError(c, http.StatusBadGateway, "failed to build scheduling link", err.Error())
		return
	}
	c.JSON(http.StatusOK, link)
}
