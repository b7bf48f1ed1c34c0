package payment

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentalpha/signal-exchange/internal/metrics"
)

// DefaultMaxAge is the window within which a payment transaction is accepted.
const DefaultMaxAge = 5 * time.Minute

// Verifier checks payment proofs against the ledger.
type Verifier struct {
	fetcher   TransactionFetcher
	recipient string
	network   string
	maxAge    time.Duration
	used      *ReplaySet
	log       zerolog.Logger
	now       func() time.Time
}

func NewVerifier(fetcher TransactionFetcher, recipient, network string, maxAge time.Duration, replayLimit int, log zerolog.Logger) *Verifier {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &Verifier{
		fetcher:   fetcher,
		recipient: recipient,
		network:   network,
		maxAge:    maxAge,
		used:      NewReplaySet(replayLimit),
		log:       log.With().Str("component", "payment").Logger(),
		now:       time.Now,
	}
}

// Requirement builds the 402 body entry for a resource costing the given
// amount in lamports.
func (v *Verifier) Requirement(resource string, amount uint64) Requirement {
	return Requirement{
		Scheme:            "exact",
		Network:           v.network,
		MaxAmountRequired: amount,
		PayTo:             v.recipient,
		Resource:          resource,
		Extra: map[string]string{
			"instructions": "Transfer the required lamports to payTo, then retry with the transaction signature in the " + ProofHeader + " header.",
		},
	}
}

// Verify validates a payment proof against the required amount. On success
// the proof is consumed: presenting it again fails with REPLAY_DETECTED.
func (v *Verifier) Verify(ctx context.Context, proof string, required uint64) (*Verified, *VerifyError) {
	if v.used.Seen(proof) {
		return nil, v.fail(CodeReplayDetected, "this payment proof was already used", false)
	}

	info, err := v.fetcher.FetchTransaction(ctx, proof)
	if err != nil {
		v.log.Warn().Err(err).Str("proof", proof).Msg("transaction lookup failed")
		return nil, v.fail(CodeVerificationError, "could not look up the payment transaction", false)
	}
	if info == nil {
		return nil, v.fail(CodeTxNotFound, "transaction not found yet; wait a few seconds and retry", true)
	}
	if info.Failed {
		return nil, v.fail(CodeTxFailed, "the referenced transaction failed on-chain", false)
	}
	if age := v.now().Sub(info.BlockTime); age > v.maxAge {
		return nil, v.fail(CodePaymentExpired, "payment transaction is older than the accepted window", false)
	}

	paid := v.paidAmount(info)
	if paid < required {
		return nil, v.fail(CodePaymentInvalid, "no transfer to the expected recipient covering the required amount", false)
	}

	// Atomic check-and-insert: a concurrent request racing on the same proof
	// loses here even though both passed the early Seen check.
	if !v.used.MarkUsed(proof) {
		return nil, v.fail(CodeReplayDetected, "this payment proof was already used", false)
	}

	metrics.PaymentDecisions.WithLabelValues("ok").Inc()
	return &Verified{
		Proof:      proof,
		Amount:     paid,
		Recipient:  v.recipient,
		VerifiedAt: v.now(),
	}, nil
}

// paidAmount sums the transfers that landed on the expected recipient,
// native and token alike.
func (v *Verifier) paidAmount(info *TransactionInfo) uint64 {
	var total uint64
	for _, tr := range info.Transfers {
		if tr.To == v.recipient {
			total += tr.Amount
		}
	}
	return total
}

func (v *Verifier) fail(code, hint string, retryable bool) *VerifyError {
	metrics.PaymentDecisions.WithLabelValues(code).Inc()
	return &VerifyError{Code: code, Hint: hint, Retryable: retryable}
}
