package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gatedHandler(t *testing.T, fetcher TransactionFetcher, price PriceFunc) (http.Handler, *Verified) {
	t.Helper()
	v := NewVerifier(fetcher, testRecipient, testNetwork, 5*time.Minute, 100, zerolog.Nop())

	captured := &Verified{}
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok := FromContext(r.Context())
		require.True(t, ok, "handler must receive the verified payment")
		*captured = *got
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"signal":"content"}`))
	})
	return v.Middleware(price)(inner), captured
}

func fixedPrice(amount uint64) PriceFunc {
	return func(r *http.Request) (uint64, error) { return amount, nil }
}

func TestMiddlewareNoProofReturnsRequirements(t *testing.T) {
	handler, _ := gatedHandler(t, &stubFetcher{}, fixedPrice(5_000_000))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/signals/abc/content", nil))

	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body RequiredResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Accepts, 1)
	assert.Equal(t, uint64(5_000_000), body.Accepts[0].MaxAmountRequired)
	assert.Equal(t, testRecipient, body.Accepts[0].PayTo)
	assert.Equal(t, "/api/v1/signals/abc/content", body.Accepts[0].Resource)
}

func TestMiddlewareValidProofPassesThrough(t *testing.T) {
	fetcher := &stubFetcher{byProof: map[string]*TransactionInfo{
		"sig-ok": paidTx(5_000_000, time.Minute),
	}}
	handler, captured := gatedHandler(t, fetcher, fixedPrice(5_000_000))

	req := httptest.NewRequest("GET", "/api/v1/signals/abc/content", nil)
	req.Header.Set(ProofHeader, "sig-ok")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "sig-ok", captured.Proof)
	assert.Equal(t, uint64(5_000_000), captured.Amount)
}

func TestMiddlewareReplaySecondRequest(t *testing.T) {
	fetcher := &stubFetcher{byProof: map[string]*TransactionInfo{
		"sig-once": paidTx(5_000_000, time.Minute),
	}}
	handler, _ := gatedHandler(t, fetcher, fixedPrice(5_000_000))

	first := httptest.NewRequest("GET", "/x", nil)
	first.Header.Set(ProofHeader, "sig-once")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, first)
	require.Equal(t, http.StatusOK, rec.Code)

	second := httptest.NewRequest("GET", "/x", nil)
	second.Header.Set(ProofHeader, "sig-once")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, second)

	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	var verr VerifyError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &verr))
	assert.Equal(t, CodeReplayDetected, verr.Code)
}

func TestMiddlewareUnderpayment(t *testing.T) {
	fetcher := &stubFetcher{byProof: map[string]*TransactionInfo{
		"sig-small": paidTx(100, time.Minute),
	}}
	handler, _ := gatedHandler(t, fetcher, fixedPrice(5_000_000))

	req := httptest.NewRequest("GET", "/x", nil)
	req.Header.Set(ProofHeader, "sig-small")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	var verr VerifyError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &verr))
	assert.Equal(t, CodePaymentInvalid, verr.Code)
}

func TestMiddlewareUnknownResource(t *testing.T) {
	handler, _ := gatedHandler(t, &stubFetcher{}, func(r *http.Request) (uint64, error) {
		return 0, errors.New("signal not found")
	})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/x", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFromContextMissing(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)
}
