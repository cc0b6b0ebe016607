package gateway

import (
	"context"
	"errors"
)

// StatusSuccessful is the normalized status of a settled payment.
const StatusSuccessful = "successful"

var ErrTransactionNotFound = errors.New("transaction not found")

// Verification is the gateway's own view of a transaction.
type Verification struct {
	TransactionID string
	TxRef         string
	Status        string
	Amount        float64
	PaymentType   string
	AppFee        float64
}

// PaymentGateway verifies payments server to server and issues refunds.
type PaymentGateway interface {
	// VerifyTransaction fetches the transaction from the gateway. A client
	// supplied status or amount is never trusted.
	VerifyTransaction(ctx context.Context, transactionID string) (*Verification, error)

	// Refund returns amount (in major currency units) to the payer.
	Refund(ctx context.Context, transactionID string, amount float64) error
}
