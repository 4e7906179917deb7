// Package gateway adapts payment providers to refunds.Gateway.
package gateway

import (
	"context"
	"errors"
	"fmt"

	"petsit/internal/refunds"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

type StripeGateway struct {
	api *client.API
}

func NewStripeGateway(secretKey string) *StripeGateway {
	return &StripeGateway{api: client.New(secretKey, nil)}
}

// CreateRefund refunds part of a PaymentIntent. Retrying with the same
// idempotency key never refunds twice.
func (g *StripeGateway) CreateRefund(ctx context.Context, req refunds.RefundRequest) (string, error) {
	if req.PaymentRef == "" {
		return "", fmt.Errorf("%w: missing payment reference", refunds.ErrGateway)
	}

	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(req.PaymentRef),
		Amount:        stripe.Int64(req.Amount),
		Reason:        stripe.String(string(stripe.RefundReasonRequestedByCustomer)),
	}
	params.Context = ctx
	params.SetIdempotencyKey(req.IdempotencyKey)
	for k, v := range req.Notes {
		params.AddMetadata(k, v)
	}

	refund, err := g.api.Refunds.New(params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) {
			return "", fmt.Errorf("%w: %s (%s)", refunds.ErrGateway, stripeErr.Msg, stripeErr.Code)
		}
		return "", fmt.Errorf("%w: %v", refunds.ErrGateway, err)
	}
	if refund.Status == stripe.RefundStatusFailed || refund.Status == stripe.RefundStatusCanceled {
		return "", fmt.Errorf("%w: refund %s ended as %s", refunds.ErrGateway, refund.ID, refund.Status)
	}

	return refund.ID, nil
}

// New picks Stripe when a key is configured and manual processing otherwise.
func New(secretKey string) refunds.Gateway {
	if secretKey == "" {
		return refunds.ManualGateway{}
	}
	return NewStripeGateway(secretKey)
}
