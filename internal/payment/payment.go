// Package payment gates access to priced resources behind a verified
// on-chain payment, following the x402 flow: a request without a payment
// proof receives the payment requirements; a retry carrying a transaction
// signature is verified against the referenced transaction.
package payment

import (
	"context"
	"time"
)

// Header carrying the payment proof (a transaction signature).
const ProofHeader = "X-Payment"

// Error codes returned to clients. TxNotFound is the only retryable one; the
// referenced transaction may simply not have propagated yet.
const (
	CodeTxNotFound        = "TX_NOT_FOUND"
	CodeTxFailed          = "TX_FAILED"
	CodePaymentExpired    = "PAYMENT_EXPIRED"
	CodePaymentInvalid    = "PAYMENT_INVALID"
	CodeReplayDetected    = "REPLAY_DETECTED"
	CodeVerificationError = "VERIFICATION_ERROR"
)

// Requirement describes one acceptable way to pay for a resource, returned
// in the 402 response body.
type Requirement struct {
	Scheme            string            `json:"scheme"`
	Network           string            `json:"network"`
	MaxAmountRequired uint64            `json:"maxAmountRequired"`
	PayTo             string            `json:"payTo"`
	Resource          string            `json:"resource"`
	Extra             map[string]string `json:"extra,omitempty"`
}

// RequiredResponse is the structured "payment required" body. Not an error
// condition: it is the protocol's normal first leg.
type RequiredResponse struct {
	Accepts []Requirement `json:"accepts"`
}

// Verified is the typed result of a successful verification, threaded
// explicitly to the handler instead of being glued onto the request.
type Verified struct {
	Proof      string    `json:"proof"`
	Amount     uint64    `json:"amount"`
	Recipient  string    `json:"recipient"`
	VerifiedAt time.Time `json:"verified_at"`
}

// VerifyError is a user-visible verification failure.
type VerifyError struct {
	Code      string `json:"code"`
	Hint      string `json:"hint"`
	Retryable bool   `json:"retryable"`
}

func (e *VerifyError) Error() string { return e.Code + ": " + e.Hint }

// Transfer is a value movement observed inside a transaction, either a
// native lamport transfer or an SPL token balance change.
type Transfer struct {
	To     string
	Amount uint64
	Token  bool
	Mint   string
}

// TransactionInfo is the verifier's view of a fetched transaction,
// independent of the RPC wire shape so the decision logic is testable
// without a ledger.
type TransactionInfo struct {
	Failed    bool
	BlockTime time.Time
	Transfers []Transfer
}

// TransactionFetcher looks up a transaction by signature. A nil result with
// a nil error means the transaction is unknown to the ledger.
type TransactionFetcher interface {
	FetchTransaction(ctx context.Context, signature string) (*TransactionInfo, error)
}
