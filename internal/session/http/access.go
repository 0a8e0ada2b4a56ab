package http

import (
	"net/http"

	"github.com/afyapapo/sessioncore/internal/session/service"
	"github.com/afyapapo/sessioncore/pkg/httpx"
	"github.com/afyapapo/sessioncore/pkg/sessionsdk"
	"github.com/afyapapo/sessioncore/pkg/slogx"
)

// RequireAccess gates next on the guard's decision for req. Pending maps to
// 503 with Retry-After so callers poll again once the startup check settles.
func RequireAccess(g *service.Guard, src service.StateSource, req service.Requirement) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := g.Check(src, req)
			switch d {
			case service.DecisionAllow:
				next.ServeHTTP(w, r)
				return
			case service.DecisionPending:
				w.Header().Set("Retry-After", "1")
				httpx.WriteError(w, http.StatusServiceUnavailable, sessionsdk.ErrorCodePending, "session check in progress")
			case service.DecisionRedirectUnauthenticated:
				httpx.WriteError(w, http.StatusUnauthorized, sessionsdk.ErrorCodeUnauthenticated, "sign in required")
			default:
				httpx.WriteError(w, http.StatusForbidden, sessionsdk.ErrorCodeForbidden, "insufficient role or permission")
			}
			slogx.FromContext(r.Context()).Debug("access denied", "decision", d.String())
		})
	}
}
