package gateway

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/client"
)

// StripeClient implements PaymentGateway with PaymentIntents. The transaction
// id is the PaymentIntent id and the order's txRef travels in its metadata.
type StripeClient struct {
	api *client.API
}

func NewStripeClient(secretKey string) *StripeClient {
	sc := &client.API{}
	sc.Init(secretKey, nil)
	return &StripeClient{api: sc}
}

// NewStripeClientWithBackends is used to point the client at a test server.
func NewStripeClientWithBackends(secretKey string, backends *stripe.Backends) *StripeClient {
	sc := &client.API{}
	sc.Init(secretKey, backends)
	return &StripeClient{api: sc}
}

func (c *StripeClient) VerifyTransaction(ctx context.Context, transactionID string) (*Verification, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := c.api.PaymentIntents.Get(transactionID, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode == 404 {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("stripe verify: %w", err)
	}

	status := string(pi.Status)
	if pi.Status == stripe.PaymentIntentStatusSucceeded {
		status = StatusSuccessful
	}
	paymentType := ""
	if len(pi.PaymentMethodTypes) > 0 {
		paymentType = pi.PaymentMethodTypes[0]
	}

	return &Verification{
		TransactionID: pi.ID,
		TxRef:         pi.Metadata["tx_ref"],
		Status:        status,
		Amount:        fromMinorUnits(pi.AmountReceived),
		PaymentType:   paymentType,
		AppFee:        fromMinorUnits(pi.ApplicationFeeAmount),
	}, nil
}

func (c *StripeClient) Refund(ctx context.Context, transactionID string, amount float64) error {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(transactionID),
		Amount:        stripe.Int64(toMinorUnits(amount)),
	}
	params.Context = ctx
	if _, err := c.api.Refunds.New(params); err != nil {
		return fmt.Errorf("stripe refund: %w", err)
	}
	return nil
}

func fromMinorUnits(v int64) float64 {
	return float64(v) / 100
}

func toMinorUnits(v float64) int64 {
	return int64(math.Round(v * 100))
}
