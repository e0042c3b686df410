package payment

import (
	"context"
	"errors"
	"math"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"
	"github.com/stripe/stripe-go/v76/refund"
	"github.com/stripe/stripe-go/v76/transfer"
	"go.uber.org/zap"
)

// StripeGateway implements Gateway on Stripe: manual-capture PaymentIntents
// for holds, capture + Transfer for settlement, Refunds for refunds. The
// stripe client key is set globally in main (stripe.Key).
type StripeGateway struct {
	logger *zap.Logger
}

func NewStripeGateway(logger *zap.Logger) *StripeGateway {
	return &StripeGateway{logger: logger}
}

func (g *StripeGateway) Hold(ctx context.Context, amount float64, currency, idempotencyKey string) (*HoldResult, error) {
	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(toMinorUnits(amount)),
		Currency:      stripe.String(currency),
		CaptureMethod: stripe.String(string(stripe.PaymentIntentCaptureMethodManual)),
	}
	params.Context = ctx
	params.SetIdempotencyKey(idempotencyKey)

	pi, err := paymentintent.New(params)
	if err != nil {
		gerr := classify(err)
		g.logger.Warn("stripe hold failed",
			zap.String("idempotencyKey", idempotencyKey),
			zap.String("kind", string(gerr.Kind)),
			zap.String("code", gerr.Code))
		return nil, gerr
	}

	g.logger.Info("stripe hold created", zap.String("paymentIntent", pi.ID))
	return &HoldResult{ProcessorRef: pi.ID}, nil
}

func (g *StripeGateway) Transfer(ctx context.Context, processorRef, payeeAccount string, amount float64, currency string) (*TransferResult, error) {
	captureParams := &stripe.PaymentIntentCaptureParams{}
	captureParams.Context = ctx
	captureParams.SetIdempotencyKey("capture-" + processorRef)
	if _, err := paymentintent.Capture(processorRef, captureParams); err != nil {
		gerr := classify(err)
		g.logger.Warn("stripe capture failed",
			zap.String("paymentIntent", processorRef),
			zap.String("kind", string(gerr.Kind)))
		return nil, gerr
	}

	transferParams := &stripe.TransferParams{
		Amount:      stripe.Int64(toMinorUnits(amount)),
		Currency:    stripe.String(currency),
		Destination: stripe.String(payeeAccount),
	}
	transferParams.Context = ctx
	transferParams.SetIdempotencyKey("transfer-" + processorRef)

	tr, err := transfer.New(transferParams)
	if err != nil {
		// The capture already went through; a failure here leaves captured
		// funds on the platform account, which reconciliation must resolve.
		gerr := classify(err)
		if gerr.Kind == GatewayDeclined {
			gerr.Kind = GatewayAmbiguous
		}
		g.logger.Error("stripe transfer failed after capture",
			zap.String("paymentIntent", processorRef),
			zap.String("payeeAccount", payeeAccount),
			zap.String("kind", string(gerr.Kind)))
		return nil, gerr
	}

	g.logger.Info("stripe transfer completed",
		zap.String("paymentIntent", processorRef),
		zap.String("transfer", tr.ID))
	return &TransferResult{TransferRef: tr.ID}, nil
}

func (g *StripeGateway) Refund(ctx context.Context, processorRef string) (*RefundResult, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(processorRef),
	}
	params.Context = ctx
	params.SetIdempotencyKey("refund-" + processorRef)

	ref, err := refund.New(params)
	if err != nil {
		gerr := classify(err)
		g.logger.Warn("stripe refund failed",
			zap.String("paymentIntent", processorRef),
			zap.String("kind", string(gerr.Kind)))
		return nil, gerr
	}

	g.logger.Info("stripe refund completed",
		zap.String("paymentIntent", processorRef),
		zap.String("refund", ref.ID))
	return &RefundResult{RefundRef: ref.ID}, nil
}

// classify maps a stripe error onto the gateway taxonomy.
func classify(err error) *GatewayError {
	var se *stripe.Error
	if errors.As(err, &se) {
		switch {
		case se.HTTPStatusCode == 429 || se.HTTPStatusCode >= 500:
			return &GatewayError{Kind: GatewayUnavailable, Code: string(se.Code), Message: se.Msg}
		case se.Type == stripe.ErrorTypeCard || se.Type == stripe.ErrorTypeInvalidRequest:
			return &GatewayError{Kind: GatewayDeclined, Code: string(se.Code), Message: se.Msg}
		default:
			// Anything else after the request reached Stripe is ambiguous.
			return &GatewayError{Kind: GatewayAmbiguous, Code: string(se.Code), Message: se.Msg}
		}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		// The request may have reached the processor before the timeout.
		return &GatewayError{Kind: GatewayAmbiguous, Message: err.Error()}
	}
	return &GatewayError{Kind: GatewayUnavailable, Message: err.Error()}
}

// toMinorUnits converts a decimal amount to the smallest currency unit.
func toMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
