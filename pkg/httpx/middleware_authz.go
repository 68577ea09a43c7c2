package httpx

import "net/http"

// RequireAnyRole allows the request through when the caller holds at least
// one of the listed roles. A failed check terminates the request with 403;
// there is no partial-allow state.
func RequireAnyRole(required ...string) Middleware {
	want := make(map[string]struct{}, len(required))
	for _, role := range required {
		want[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, role := range RolesFromCtx(r.Context()) {
				if _, ok := want[role]; ok {
					next.ServeHTTP(w, r)
					return
				}
			}
			WriteError(w, http.StatusForbidden, "You do not have permission to access this resource.")
		})
	}
}
