package middleware

import (
	"fmt"
	"net/http"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/handler/http/response"
)

// RequireCapability checks the stored role of the current user, not the role
// claim, so a demotion takes effect before the token expires.
func RequireCapability(identity user.Identity, resource user.Resource, action user.Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, err := identity.CurrentUser(r.Context())
			if err != nil {
				response.HandleError(w, err)
				return
			}

			if !identity.HasCapability(r.Context(), u, resource, action) {
				required := user.Capability{Resource: resource, Action: action}
				response.Forbidden(w, "INSUFFICIENT_CAPABILITY", fmt.Sprintf("Insufficient permissions: required '%s', but user role is '%s'", required, u.Role))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
