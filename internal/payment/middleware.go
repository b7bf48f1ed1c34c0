package payment

import (
	"context"
	"encoding/json"
	"net/http"
)

type contextKey struct{}

// FromContext returns the verified payment attached by the middleware.
func FromContext(ctx context.Context) (*Verified, bool) {
	v, ok := ctx.Value(contextKey{}).(*Verified)
	return v, ok
}

// PriceFunc resolves the required amount in lamports for a request. An error
// means the priced resource does not exist.
type PriceFunc func(r *http.Request) (uint64, error)

// Middleware wraps a handler with the payment gate. A request without a
// proof header receives the structured payment requirements; a request with
// a valid proof is forwarded with the Verified result in its context.
func (v *Verifier) Middleware(price PriceFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			amount, err := price(r)
			if err != nil {
				http.Error(w, err.Error(), http.StatusNotFound)
				return
			}

			proof := r.Header.Get(ProofHeader)
			if proof == "" {
				writeJSON(w, http.StatusPaymentRequired, RequiredResponse{
					Accepts: []Requirement{v.Requirement(r.URL.Path, amount)},
				})
				return
			}

			verified, verr := v.Verify(r.Context(), proof, amount)
			if verr != nil {
				writeJSON(w, http.StatusPaymentRequired, verr)
				return
			}

			ctx := context.WithValue(r.Context(), contextKey{}, verified)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
