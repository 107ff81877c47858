package httpmiddleware

import (
	"context"
	"net/http"
	"time"
)

const (
	sessionCookie = "kart_session"

	// maxSessionKeyLen bounds client-supplied cookie values; anything
	// longer (or non-printable) gets a fresh key instead of becoming a
	// registry and storage key.
	maxSessionKeyLen = 128
)

func validSessionKey(v string) bool {
	return v != "" && len(v) <= maxSessionKeyLen && printableASCII(v)
}

type sessionKeyCtx struct{}

// SessionConfig controls session key issuance.
type SessionConfig struct {
	// NewKey mints a key for a first-time visitor.
	NewKey func() string
	// TTL is the session cookie lifetime. Zero means a browser-session
	// cookie, matching the sessionStorage lifetime the web storefront had.
	TTL time.Duration
	// Secure marks the cookie Secure; leave false only for local dev.
	Secure bool
}

// SessionKeyFromContext extracts the session key, or "" when the session
// middleware did not run.
func SessionKeyFromContext(ctx context.Context) string {
	key, _ := ctx.Value(sessionKeyCtx{}).(string)
	return key
}

// Session gives every request a stable session key: reused from the session
// cookie when present, freshly minted (and set on the response) otherwise.
// The key is the handle the cart slot persists under.
func Session(cfg SessionConfig) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var key string
			if c, err := r.Cookie(sessionCookie); err == nil && validSessionKey(c.Value) {
				key = c.Value
			} else {
				key = cfg.NewKey()
				cookie := &http.Cookie{
					Name:     sessionCookie,
					Value:    key,
					Path:     "/",
					HttpOnly: true,
					Secure:   cfg.Secure,
					SameSite: http.SameSiteLaxMode,
				}
				if cfg.TTL > 0 {
					cookie.MaxAge = int(cfg.TTL.Seconds())
				}
				http.SetCookie(w, cookie)
			}

			ctx := context.WithValue(r.Context(), sessionKeyCtx{}, key)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
