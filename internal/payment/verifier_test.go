package payment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testRecipient = "Ha4FGU2zoiyUdsjyCkSSVeZqmKT8VWeEZYm7UkAWxmdq"
	testNetwork   = "solana-devnet"
)

type stubFetcher struct {
	byProof map[string]*TransactionInfo
	err     error
}

func (s *stubFetcher) FetchTransaction(ctx context.Context, signature string) (*TransactionInfo, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.byProof[signature], nil
}

func newTestVerifier(f TransactionFetcher) *Verifier {
	return NewVerifier(f, testRecipient, testNetwork, 5*time.Minute, 100, zerolog.Nop())
}

func paidTx(amount uint64, age time.Duration) *TransactionInfo {
	return &TransactionInfo{
		BlockTime: time.Now().Add(-age),
		Transfers: []Transfer{{To: testRecipient, Amount: amount}},
	}
}

func TestVerifyHappyPath(t *testing.T) {
	fetcher := &stubFetcher{byProof: map[string]*TransactionInfo{
		"sig-ok": paidTx(2_000_000, time.Minute),
	}}
	v := newTestVerifier(fetcher)

	verified, verr := v.Verify(context.Background(), "sig-ok", 1_000_000)
	require.Nil(t, verr)
	assert.Equal(t, "sig-ok", verified.Proof)
	assert.Equal(t, uint64(2_000_000), verified.Amount)
	assert.Equal(t, testRecipient, verified.Recipient)
	assert.False(t, verified.VerifiedAt.IsZero())
}

func TestVerifyReplayRejected(t *testing.T) {
	fetcher := &stubFetcher{byProof: map[string]*TransactionInfo{
		"sig-once": paidTx(1_000_000, time.Minute),
	}}
	v := newTestVerifier(fetcher)

	_, verr := v.Verify(context.Background(), "sig-once", 1_000_000)
	require.Nil(t, verr)

	_, verr = v.Verify(context.Background(), "sig-once", 1_000_000)
	require.NotNil(t, verr)
	assert.Equal(t, CodeReplayDetected, verr.Code)
	assert.False(t, verr.Retryable)
}

func TestVerifyTxNotFoundIsRetryable(t *testing.T) {
	v := newTestVerifier(&stubFetcher{byProof: map[string]*TransactionInfo{}})

	_, verr := v.Verify(context.Background(), "sig-unknown", 1)
	require.NotNil(t, verr)
	assert.Equal(t, CodeTxNotFound, verr.Code)
	assert.True(t, verr.Retryable)

	// A not-found proof is not consumed; it can be retried.
	assert.False(t, v.used.Seen("sig-unknown"))
}

func TestVerifyFailedTransaction(t *testing.T) {
	fetcher := &stubFetcher{byProof: map[string]*TransactionInfo{
		"sig-failed": {Failed: true, BlockTime: time.Now()},
	}}
	v := newTestVerifier(fetcher)

	_, verr := v.Verify(context.Background(), "sig-failed", 1)
	require.NotNil(t, verr)
	assert.Equal(t, CodeTxFailed, verr.Code)
}

func TestVerifyExpiredPayment(t *testing.T) {
	fetcher := &stubFetcher{byProof: map[string]*TransactionInfo{
		"sig-old": paidTx(10_000_000, 6*time.Minute),
	}}
	v := newTestVerifier(fetcher)

	_, verr := v.Verify(context.Background(), "sig-old", 1_000_000)
	require.NotNil(t, verr)
	assert.Equal(t, CodePaymentExpired, verr.Code)
}

func TestVerifyUnderpayment(t *testing.T) {
	fetcher := &stubFetcher{byProof: map[string]*TransactionInfo{
		"sig-small": paidTx(500_000, time.Minute),
	}}
	v := newTestVerifier(fetcher)

	_, verr := v.Verify(context.Background(), "sig-small", 1_000_000)
	require.NotNil(t, verr)
	assert.Equal(t, CodePaymentInvalid, verr.Code)
}

func TestVerifyWrongRecipient(t *testing.T) {
	fetcher := &stubFetcher{byProof: map[string]*TransactionInfo{
		"sig-misdirected": {
			BlockTime: time.Now(),
			Transfers: []Transfer{{To: "SomeoneElse1111111111111111111111111111111", Amount: 10_000_000}},
		},
	}}
	v := newTestVerifier(fetcher)

	_, verr := v.Verify(context.Background(), "sig-misdirected", 1_000_000)
	require.NotNil(t, verr)
	assert.Equal(t, CodePaymentInvalid, verr.Code)
}

func TestVerifyTokenTransferAccepted(t *testing.T) {
	fetcher := &stubFetcher{byProof: map[string]*TransactionInfo{
		"sig-token": {
			BlockTime: time.Now(),
			Transfers: []Transfer{{To: testRecipient, Amount: 3_000_000, Token: true, Mint: "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"}},
		},
	}}
	v := newTestVerifier(fetcher)

	verified, verr := v.Verify(context.Background(), "sig-token", 3_000_000)
	require.Nil(t, verr)
	assert.Equal(t, uint64(3_000_000), verified.Amount)
}

func TestVerifyFetcherError(t *testing.T) {
	v := newTestVerifier(&stubFetcher{err: errors.New("rpc unreachable")})

	_, verr := v.Verify(context.Background(), "sig-any", 1)
	require.NotNil(t, verr)
	assert.Equal(t, CodeVerificationError, verr.Code)
}

func TestRequirementBody(t *testing.T) {
	v := newTestVerifier(&stubFetcher{})
	req := v.Requirement("/api/v1/signals/abc/content", 5_000_000)

	assert.Equal(t, "exact", req.Scheme)
	assert.Equal(t, testNetwork, req.Network)
	assert.Equal(t, uint64(5_000_000), req.MaxAmountRequired)
	assert.Equal(t, testRecipient, req.PayTo)
	assert.Equal(t, "/api/v1/signals/abc/content", req.Resource)
	assert.NotEmpty(t, req.Extra["instructions"])
}
