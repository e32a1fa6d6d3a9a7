package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/xenking/storefront/internal/domain/auth"
)

// Identity is the authenticated caller resolved from an API key.
type Identity struct {
	UserID string
	Admin  bool
}

type identityKey struct{}

// IdentityFromContext extracts the authenticated identity from the context.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// Authenticate returns a middleware that resolves the api_key header into an
// Identity via HMAC-SHA256 lookup, rejecting the request otherwise. Probe
// endpoints are mounted outside this middleware. Admin routes additionally
// require the key's admin flag.
func Authenticate(apikeys auth.Repository, pepper []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("api_key")
			if key == "" {
				writeErrorStatus(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			mac := hmac.New(sha256.New, pepper)
			mac.Write([]byte(key))
			hash := mac.Sum(nil)

			info, err := apikeys.FindByHash(r.Context(), hex.EncodeToString(hash))
			if err != nil {
				writeErrorStatus(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			// Constant-time comparison guards against timing side-channels even
			// though the lookup already succeeded.
			stored, err := hex.DecodeString(info.KeyHash)
			if err != nil || subtle.ConstantTimeCompare(hash, stored) != 1 {
				writeErrorStatus(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			if strings.HasPrefix(r.URL.Path, "/api/admin/") && !info.Admin {
				writeErrorStatus(w, http.StatusForbidden, "forbidden")
				return
			}

			ctx := context.WithValue(r.Context(), identityKey{}, Identity{
				UserID: info.UserID,
				Admin:  info.Admin,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// identity pulls the caller from the request, failing the request when the
// authentication middleware did not run.
func identity(w http.ResponseWriter, r *http.Request) (Identity, bool) {
	id, ok := IdentityFromContext(r.Context())
	if !ok {
		writeErrorStatus(w, http.StatusUnauthorized, "unauthorized")
	}
	return id, ok
}
