package booking

import (
	"context"

	bookingRepo "prbal/database/repository/booking"

	"go.uber.org/zap"
)

// SweepGracePeriodSettlements finds provider-confirmed bookings whose grace
// period has elapsed without a customer response and settles them. Each
// booking is an independent unit of work: a failure on one never stops the
// sweep, and a booking that lost a concurrent race is simply skipped.
func (s *DefaultBookingService) SweepGracePeriodSettlements(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.Policy.GracePeriod)
	eligible, err := s.Repo.ListGraceEligible(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	settled := 0
	for i := range eligible {
		b := &eligible[i]
		if _, err := s.Escrow.Settle(ctx, b.ID); err != nil {
			if bookingRepo.IsConflict(err) {
				s.Logger.Debug("sweep skipped booking locked by another operation",
					zap.String("bookingID", b.ID))
				continue
			}
			s.Logger.Error("grace-period settlement failed",
				zap.String("bookingID", b.ID),
				zap.Error(err))
			continue
		}
		settled++
	}

	if settled > 0 {
		s.Logger.Info("grace-period sweep settled bookings", zap.Int("count", settled))
	}
	return settled, nil
}
