package middleware

import (
	"net/http"
	"strings"

	"github.com/wpkernel/wpkgen/internal/web/auth"
	webcontext "github.com/wpkernel/wpkgen/internal/web/context"
)

// Auth requires a valid bearer token that grants scope. Browsers cannot set
// headers on websocket handshakes, so a ?token= query parameter is accepted
// as well.
func Auth(svc *auth.AuthService, scope string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				unauthorized(w, "Authorization required")
				return
			}

			claims, err := svc.ValidateToken(token)
			if err != nil {
				unauthorized(w, "Invalid token")
				return
			}
			if scope != "" && !claims.HasScope(scope) {
				http.Error(w, "Token lacks scope "+scope, http.StatusForbidden)
				return
			}

			ctx := webcontext.SetSubject(r.Context(), claims.Subject)
			ctx = webcontext.SetScopes(ctx, claims.Scopes)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, found := strings.Cut(header, " ")
		if !found || scheme != "Bearer" || token == "" {
			return "", false
		}
		return token, true
	}
	if token := r.URL.Query().Get("token"); token != "" {
		return token, true
	}
	return "", false
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="wpkgen"`)
	http.Error(w, msg, http.StatusUnauthorized)
}
