package booking

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	bookingRepo "prbal/database/repository/booking"
	payoutRepo "prbal/database/repository/payout"
	"prbal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultBookingService implements BookingService.
type DefaultBookingService struct {
	Repo       bookingRepo.Repository
	PayoutRepo payoutRepo.Repository
	Escrow     EscrowOrchestrator
	Policy     ConfirmationPolicy
	FeePercent float64
	Logger     *zap.Logger

	// Clock is overridable in tests; defaults to time.Now.
	Clock func() time.Time
}

func (s *DefaultBookingService) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now().UTC()
}

// CreateBooking validates the terms, computes the platform fee, pins the
// provider's payout account, and opens escrow. The booking and its first
// ledger entry are created atomically by the orchestrator.
func (s *DefaultBookingService) CreateBooking(ctx context.Context, req CreateBookingRequest) (*models.Booking, error) {
	if err := validateCreateRequest(req); err != nil {
		return nil, err
	}

	account, err := s.PayoutRepo.ActiveAccount(ctx, req.ProviderID)
	if err != nil {
		return nil, fmt.Errorf("cannot book provider %s: %w", req.ProviderID, err)
	}

	now := s.now()
	booking := &models.Booking{
		ID:           uuid.New().String(),
		CustomerID:   req.CustomerID,
		ProviderID:   req.ProviderID,
		ServiceType:  req.ServiceType,
		AgreedPrice:  req.AgreedPrice,
		Currency:     req.Currency,
		PlatformFee:  roundToCents(req.AgreedPrice * s.FeePercent / 100),
		PayeeAccount: account.AccountRef,
		ScheduledFor: req.ScheduledFor,
		Status:       models.BookingScheduled,
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	entry, err := s.Escrow.OpenEscrow(ctx, booking)
	if err != nil {
		// The booking and its failed entry are persisted; report, don't hide.
		s.Logger.Warn("escrow hold failed at booking creation",
			zap.String("bookingID", booking.ID),
			zap.Error(err))
		return booking, err
	}

	s.Logger.Info("booking created with escrow hold",
		zap.String("bookingID", booking.ID),
		zap.String("entryID", entry.ID),
		zap.Float64("amount", entry.Amount))
	return booking, nil
}

func (s *DefaultBookingService) GetBooking(ctx context.Context, bookingID string) (*models.Booking, error) {
	return s.Repo.GetByID(ctx, bookingID)
}

// StartService moves a scheduled booking into in_progress.
func (s *DefaultBookingService) StartService(ctx context.Context, bookingID, actorID string, role models.ActorRole) (*models.Booking, error) {
	b, err := s.Repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := s.requireParty(b, actorID, role); err != nil {
		return nil, err
	}
	if err := transitionTo(b, models.BookingInProgress); err != nil {
		return nil, err
	}
	if err := s.Repo.UpdateBooking(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// ConfirmCompletion records the confirmation and, if the confirmation
// protocol is now satisfied, triggers settlement.
func (s *DefaultBookingService) ConfirmCompletion(ctx context.Context, bookingID, actorID string, role models.ActorRole) (*models.Booking, error) {
	b, err := s.Repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := s.requireParty(b, actorID, role); err != nil {
		return nil, err
	}

	now := s.now()
	if err := applyConfirmation(b, role, now); err != nil {
		return nil, err
	}
	if err := s.Repo.UpdateBooking(ctx, b); err != nil {
		return nil, err
	}

	if s.Policy.SettlementDue(b, now) != nil {
		return b, nil
	}

	settled, err := s.Escrow.Settle(ctx, b.ID)
	if err != nil {
		// The confirmation itself stands; settlement failure is surfaced for
		// the caller and reconciliation, never swallowed.
		s.Logger.Error("settlement failed after dual confirmation",
			zap.String("bookingID", b.ID),
			zap.Error(err))
		return b, err
	}
	return settled, nil
}

// CancelBooking cancels the booking and routes held funds to the refund
// path. The cancellation is committed before the refund is attempted and is
// never reverted on refund failure.
func (s *DefaultBookingService) CancelBooking(ctx context.Context, bookingID, actorID string, role models.ActorRole, reason string) (*models.Booking, error) {
	b, err := s.Repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := s.requireParty(b, actorID, role); err != nil {
		return nil, err
	}

	if err := applyCancellation(b, role, actorID, reason, s.now()); err != nil {
		return nil, err
	}
	if err := s.Repo.UpdateBooking(ctx, b); err != nil {
		return nil, err
	}

	if _, err := s.Escrow.Refund(ctx, b.ID); err != nil {
		// Queued for retry by the orchestrator; the cancellation stands.
		s.Logger.Error("refund failed on cancellation",
			zap.String("bookingID", b.ID),
			zap.Error(err))
	}
	return b, nil
}

func (s *DefaultBookingService) LedgerHistory(ctx context.Context, bookingID string) ([]models.PaymentLedgerEntry, error) {
	if _, err := s.Repo.GetByID(ctx, bookingID); err != nil {
		return nil, err
	}
	return s.Repo.ListEntries(ctx, bookingID)
}

func (s *DefaultBookingService) requireParty(b *models.Booking, actorID string, role models.ActorRole) error {
	if role != models.ActorCustomer && role != models.ActorProvider {
		return NotPartyError{BookingID: b.ID, ActorID: actorID, Role: role}
	}
	if b.PartyID(role) != actorID {
		return NotPartyError{BookingID: b.ID, ActorID: actorID, Role: role}
	}
	return nil
}

func validateCreateRequest(req CreateBookingRequest) error {
	if req.CustomerID == "" || req.ProviderID == "" {
		return errors.New("customer and provider are required")
	}
	if req.CustomerID == req.ProviderID {
		return errors.New("customer and provider must be distinct")
	}
	if req.AgreedPrice <= 0 {
		return errors.New("agreed price must be positive")
	}
	if req.Currency == "" {
		return errors.New("currency is required")
	}
	return nil
}

func roundToCents(amount float64) float64 {
	return math.Round(amount*100) / 100
}
