package httpmiddleware

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSConfig configures the CORS middleware behaviour.
type CORSConfig struct {
	// AllowOrigins is the list of origins permitted to make cross-origin
	// requests. Empty, or a single "*" entry, allows every origin.
	AllowOrigins []string

	// AllowMethods lists the HTTP methods clients may use in actual requests.
	// Defaults to "GET, POST, PUT, PATCH, DELETE, OPTIONS" when empty.
	AllowMethods []string

	// AllowHeaders lists the request headers clients may send. When empty the
	// middleware echoes back Access-Control-Request-Headers from the
	// preflight request.
	AllowHeaders []string

	// ExposeHeaders lists response headers the browser may access.
	ExposeHeaders []string

	// AllowCredentials marks responses as usable with the credentials flag.
	// The wildcard origin must not be combined with credentials, so the
	// middleware echoes the specific origin in that case.
	AllowCredentials bool

	// MaxAge is how long (seconds) preflight results may be cached. Zero
	// omits the header; a negative value sends "0".
	MaxAge int
}

// CORS returns a middleware that handles Cross-Origin Resource Sharing:
// case-insensitive origin matching with original-case echo-back, Vary headers
// to keep shared caches correct, and preflight detection via the
// Access-Control-Request-Method header.
func CORS(cfg CORSConfig) Middleware {
	allowAll := len(cfg.AllowOrigins) == 0
	allowed := make(map[string]string, len(cfg.AllowOrigins)) // lowercase -> original
	for _, o := range cfg.AllowOrigins {
		if o == "*" {
			allowAll = true
			break
		}
		allowed[strings.ToLower(o)] = o
	}

	if cfg.AllowCredentials && allowAll {
		allowAll = false
	}

	allowMethods := strings.Join(cfg.AllowMethods, ", ")
	if allowMethods == "" {
		allowMethods = "GET, POST, PUT, PATCH, DELETE, OPTIONS"
	}
	allowHeaders := strings.Join(cfg.AllowHeaders, ", ")
	exposeHeaders := strings.Join(cfg.ExposeHeaders, ", ")

	maxAge := ""
	if cfg.MaxAge > 0 {
		maxAge = strconv.Itoa(cfg.MaxAge)
	} else if cfg.MaxAge < 0 {
		maxAge = "0"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			// No Origin header means the request is outside CORS scope, but
			// caches still need to vary on Origin.
			if origin == "" {
				if !allowAll {
					w.Header().Add("Vary", "Origin")
				}
				next.ServeHTTP(w, r)
				return
			}

			allowOrigin := matchOrigin(origin, allowAll, allowed)

			// Preflight: OPTIONS with Access-Control-Request-Method.
			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.Header().Add("Vary", "Origin")
				w.Header().Add("Vary", "Access-Control-Request-Method")
				w.Header().Add("Vary", "Access-Control-Request-Headers")

				if allowOrigin == "" {
					w.WriteHeader(http.StatusNoContent)
					return
				}

				w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
				w.Header().Set("Access-Control-Allow-Methods", allowMethods)

				if allowHeaders != "" {
					w.Header().Set("Access-Control-Allow-Headers", allowHeaders)
				} else if rh := r.Header.Get("Access-Control-Request-Headers"); rh != "" {
					w.Header().Set("Access-Control-Allow-Headers", rh)
				}

				if cfg.AllowCredentials {
					w.Header().Set("Access-Control-Allow-Credentials", "true")
				}
				if maxAge != "" {
					w.Header().Set("Access-Control-Max-Age", maxAge)
				}

				w.WriteHeader(http.StatusNoContent)
				return
			}

			// Simple / actual CORS request.
			if !allowAll {
				w.Header().Add("Vary", "Origin")
			}

			if allowOrigin != "" {
				w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
				if cfg.AllowCredentials {
					w.Header().Set("Access-Control-Allow-Credentials", "true")
				}
				if exposeHeaders != "" {
					w.Header().Set("Access-Control-Expose-Headers", exposeHeaders)
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// matchOrigin returns the Access-Control-Allow-Origin value for origin, or ""
// when the origin is not allowed.
func matchOrigin(origin string, allowAll bool, allowed map[string]string) string {
	if allowAll {
		return "*"
	}
	if orig, ok := allowed[strings.ToLower(origin)]; ok {
		return orig
	}
	return ""
}
