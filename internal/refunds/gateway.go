package refunds

import (
	"context"
	"errors"
)

// ErrGateway wraps every failure reported by a payment gateway.
var ErrGateway = errors.New("refund gateway failure")

var ErrManualProcessing = errors.New("no payment gateway configured, refund needs manual processing")

type RefundRequest struct {
	PaymentRef     string
	Amount         int64
	IdempotencyKey string
	Notes          map[string]string
}

type Gateway interface {
	CreateRefund(ctx context.Context, req RefundRequest) (string, error)
}

// ManualGateway is used when no gateway credentials are configured. Every
// refund is left for an operator.
type ManualGateway struct{}

func (ManualGateway) CreateRefund(context.Context, RefundRequest) (string, error) {
	return "", errors.Join(ErrGateway, ErrManualProcessing)
}
