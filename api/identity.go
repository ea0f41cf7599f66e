package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/warp/wallet-ledger/ledger"
)

// OwnerHeader carries the caller's identity. Authentication happens in
// front of this service; the header is trusted as-is.
const OwnerHeader = "X-Owner-ID"

type ownerKey struct{}

// RequireOwner rejects requests without an owner and stores it in the
// request context.
func RequireOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner := strings.TrimSpace(r.Header.Get(OwnerHeader))
		if owner == "" {
			writeError(w, http.StatusUnauthorized, "missing "+OwnerHeader+" header", nil)
			return
		}
		ctx := context.WithValue(r.Context(), ownerKey{}, ledger.OwnerID(owner))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func ownerFrom(r *http.Request) ledger.OwnerID {
	owner, _ := r.Context().Value(ownerKey{}).(ledger.OwnerID)
	return owner
}
