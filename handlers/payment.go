package handlers

import (
	"net/http"
	"time"

	payoutRepo "prbal/database/repository/payout"
	"prbal/models"
	"prbal/services/booking"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PaymentHandler exposes the escrow ledger and the operator recovery paths
// (settlement retry, manual refund) plus payout account management.
type PaymentHandler struct {
	Service    booking.BookingService
	Escrow     booking.EscrowOrchestrator
	PayoutRepo payoutRepo.Repository
	Logger     *zap.Logger
}

func NewPaymentHandler(svc booking.BookingService, orch booking.EscrowOrchestrator, payouts payoutRepo.Repository, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{Service: svc, Escrow: orch, PayoutRepo: payouts, Logger: logger}
}

// LedgerHistory returns the append-only payment trail for a booking, oldest
// first.
func (h *PaymentHandler) LedgerHistory(c *gin.Context) {
	entries, err := h.Service.LedgerHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// RetrySettlement re-runs settlement for a booking stuck after a transient
// gateway failure. Eligibility is re-evaluated from scratch.
func (h *PaymentHandler) RetrySettlement(c *gin.Context) {
	bookingID := c.Param("id")
	b, err := h.Escrow.Settle(c.Request.Context(), bookingID)
	if err != nil {
		h.Logger.Warn("settlement retry failed",
			zap.String("bookingID", bookingID), zap.Error(err))
		status := statusForError(err)
		if b != nil {
			c.JSON(status, gin.H{"error": err.Error(), "booking": b})
			return
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": b})
}

// ManualRefund returns held funds for a booking whose automatic refund or
// settlement path failed.
func (h *PaymentHandler) ManualRefund(c *gin.Context) {
	bookingID := c.Param("id")
	entry, err := h.Escrow.ManualRefund(c.Request.Context(), bookingID)
	if err != nil {
		h.Logger.Warn("manual refund failed",
			zap.String("bookingID", bookingID), zap.Error(err))
		status := statusForError(err)
		if entry != nil {
			c.JSON(status, gin.H{"error": err.Error(), "entry": entry})
			return
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entry": entry})
}

// UpsertPayoutAccount registers or updates the destination account that
// settlements for a provider transfer into.
func (h *PaymentHandler) UpsertPayoutAccount(c *gin.Context) {
	var input struct {
		ProviderID  string `json:"provider_id" binding:"required"`
		AccountType string `json:"account_type" binding:"required"`
		AccountRef  string `json:"account_ref" binding:"required"`
		Verified    bool   `json:"verified"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	now := time.Now()
	account := &models.PayoutAccount{
		ID:          uuid.New().String(),
		ProviderID:  input.ProviderID,
		AccountType: input.AccountType,
		AccountRef:  input.AccountRef,
		Verified:    input.Verified,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := h.PayoutRepo.Upsert(c.Request.Context(), account); err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"payout_account": account})
}
