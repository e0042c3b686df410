package handlers

import (
	"net/http"
	"time"

	"prbal/config"
	"prbal/models"
	"prbal/services/booking"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BookingHandler exposes the booking lifecycle over HTTP. Authentication and
// permission policy live in the calling layer; the handler only forwards the
// acting party, which the core re-validates against the booking.
type BookingHandler struct {
	Service booking.BookingService
	Logger  *zap.Logger
}

func NewBookingHandler(svc booking.BookingService, logger *zap.Logger) *BookingHandler {
	return &BookingHandler{Service: svc, Logger: logger}
}

type actorInput struct {
	ActorID   string           `json:"actor_id" binding:"required"`
	ActorRole models.ActorRole `json:"actor_role" binding:"required"`
}

// CreateBooking opens a booking and its escrow hold.
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	var input struct {
		CustomerID   string    `json:"customer_id" binding:"required"`
		ProviderID   string    `json:"provider_id" binding:"required"`
		ServiceType  string    `json:"service_type"`
		AgreedPrice  float64   `json:"agreed_price" binding:"required"`
		Currency     string    `json:"currency"`
		ScheduledFor time.Time `json:"scheduled_for" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	if input.Currency == "" {
		input.Currency = config.AppConfig.DefaultCurrency
	}

	b, err := h.Service.CreateBooking(c.Request.Context(), booking.CreateBookingRequest{
		CustomerID:   input.CustomerID,
		ProviderID:   input.ProviderID,
		ServiceType:  input.ServiceType,
		AgreedPrice:  input.AgreedPrice,
		Currency:     input.Currency,
		ScheduledFor: input.ScheduledFor,
	})
	if err != nil {
		// The booking may still have been persisted in payment_failed; the
		// caller needs both the state and the reason.
		status := statusForError(err)
		if b != nil {
			c.JSON(status, gin.H{"error": err.Error(), "booking": b})
			return
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"booking": b})
}

// GetBooking returns a booking by ID.
func (h *BookingHandler) GetBooking(c *gin.Context) {
	b, err := h.Service.GetBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": b})
}

// StartService marks the booking as in progress.
func (h *BookingHandler) StartService(c *gin.Context) {
	var input actorInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	b, err := h.Service.StartService(c.Request.Context(), c.Param("id"), input.ActorID, input.ActorRole)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": b})
}

// ConfirmCompletion records a completion confirmation from one party.
func (h *BookingHandler) ConfirmCompletion(c *gin.Context) {
	var input actorInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	b, err := h.Service.ConfirmCompletion(c.Request.Context(), c.Param("id"), input.ActorID, input.ActorRole)
	if err != nil {
		status := statusForError(err)
		if b != nil {
			// The confirmation was recorded; settlement failed and needs
			// attention.
			c.JSON(status, gin.H{"error": err.Error(), "booking": b})
			return
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": b})
}

// CancelBooking cancels and triggers the refund path.
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	var input struct {
		actorInput
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	b, err := h.Service.CancelBooking(c.Request.Context(), c.Param("id"), input.ActorID, input.ActorRole, input.Reason)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": b})
}
