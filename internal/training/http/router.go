package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/traintab/internal/training/domain"
	"github.com/aussiebroadwan/traintab/internal/training/service"
	"github.com/aussiebroadwan/traintab/internal/training/store"
	"github.com/aussiebroadwan/traintab/pkg/httpx"
	"github.com/aussiebroadwan/traintab/pkg/jwtx"
	"github.com/aussiebroadwan/traintab/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	sessions     *jwtx.Service
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	store        store.Store

	UserService        *service.UserService
	AdminInviteService *service.AdminInviteService
	OrgInviteService   *service.OrgInviteService
	TrainingService    *service.TrainingService
	AccessService      *service.AccessService
}

func NewRouter(
	sessions *jwtx.Service,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		sessions:     sessions,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerAdmins()
	r.registerInvitations()
	r.registerOrganizations()
	r.registerTrainings()
	r.registerSession()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global
// middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	h := &LoginHandler{UserService: r.UserService}

	// POST /auth/login - strict rate limit by IP (credential endpoint)
	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(h,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerAdmins() {
	h := &AdminsHandler{
		AdminInviteService: r.AdminInviteService,
		UserService:        r.UserService,
	}
	inviteHandler := &AdminInviteHandler{AdminInviteService: r.AdminInviteService}

	adminOnly := func(next http.Handler) http.Handler {
		return httpx.Chain(next,
			httpx.AuthnMiddleware(r.sessions),
			httpx.RequireAnyRole(domain.RoleAdmin),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		)
	}

	r.Mux.Handle("POST /v1/admins/grant-access", adminOnly(http.HandlerFunc(h.HandleGrant)))
	r.Mux.Handle("POST /v1/admins/revoke-access", adminOnly(http.HandlerFunc(h.HandleRevoke)))
	r.Mux.Handle("GET /v1/admins", adminOnly(http.HandlerFunc(h.HandleList)))
	r.Mux.Handle("POST /v1/admin-invitations/invite", adminOnly(inviteHandler))
}

func (r *Router) registerInvitations() {
	h := &AcceptHandler{OrgInviteService: r.OrgInviteService}

	// POST /invitations/accept - strict rate limit by IP (public redemption
	// endpoint, the token is the only credential)
	r.Mux.Handle("POST /v1/invitations/accept",
		httpx.Chain(h,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerOrganizations() {
	h := &OrganizationsHandler{OrgInviteService: r.OrgInviteService, Store: r.store}

	adminOnly := func(next http.Handler) http.Handler {
		return httpx.Chain(next,
			httpx.AuthnMiddleware(r.sessions),
			httpx.RequireAnyRole(domain.RoleAdmin),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		)
	}
	orgGated := func(next http.Handler) http.Handler {
		return httpx.Chain(next,
			httpx.AuthnMiddleware(r.sessions),
			r.requireOrgAccess(),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		)
	}

	r.Mux.Handle("POST /v1/training-organizations", adminOnly(http.HandlerFunc(h.HandleCreate)))
	r.Mux.Handle("GET /v1/training-organizations", adminOnly(http.HandlerFunc(h.HandleList)))
	r.Mux.Handle("GET /v1/training-organizations/{organizationId}", orgGated(http.HandlerFunc(h.HandleGet)))

	r.Mux.Handle("POST /v1/training-organizations/{organizationId}/administrators",
		orgGated(http.HandlerFunc(h.HandleAddAdministrators)))
	r.Mux.Handle("DELETE /v1/training-organizations/{organizationId}/administrators/{email}",
		orgGated(http.HandlerFunc(h.HandleRemoveAdministrator)))
	r.Mux.Handle("POST /v1/training-organizations/{organizationId}/trainers",
		orgGated(http.HandlerFunc(h.HandleAddTrainers)))
	r.Mux.Handle("DELETE /v1/training-organizations/{organizationId}/trainers/{email}",
		orgGated(http.HandlerFunc(h.HandleRemoveTrainer)))
}

func (r *Router) registerTrainings() {
	h := &TrainingsHandler{TrainingService: r.TrainingService}
	th := &TraineesHandler{TrainingService: r.TrainingService}

	orgGated := func(next http.Handler) http.Handler {
		return httpx.Chain(next,
			httpx.AuthnMiddleware(r.sessions),
			r.requireOrgAccess(),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		)
	}
	// Trainee roster routes carry no organizationId; the gate resolves the
	// organization through the training itself.
	trainingGated := func(next http.Handler) http.Handler {
		return httpx.Chain(next,
			httpx.AuthnMiddleware(r.sessions),
			r.requireTrainingOrgAccess(),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		)
	}

	r.Mux.Handle("POST /v1/training-organizations/{organizationId}/trainings",
		orgGated(http.HandlerFunc(h.HandleCreate)))
	r.Mux.Handle("GET /v1/training-organizations/{organizationId}/trainings",
		orgGated(http.HandlerFunc(h.HandleListByOrg)))
	r.Mux.Handle("GET /v1/training-organizations/{organizationId}/trainings/{trainingId}",
		orgGated(http.HandlerFunc(h.HandleGet)))
	r.Mux.Handle("PUT /v1/training-organizations/{organizationId}/trainings/{trainingId}",
		orgGated(http.HandlerFunc(h.HandleUpdate)))
	r.Mux.Handle("DELETE /v1/training-organizations/{organizationId}/trainings/{trainingId}",
		orgGated(http.HandlerFunc(h.HandleDelete)))

	r.Mux.Handle("POST /v1/trainings/{trainingId}/trainees",
		trainingGated(http.HandlerFunc(th.HandleAdd)))
	r.Mux.Handle("DELETE /v1/trainings/{trainingId}/trainees/{username}",
		trainingGated(http.HandlerFunc(th.HandleRemove)))
	r.Mux.Handle("PATCH /v1/trainings/{trainingId}/trainees/{username}",
		trainingGated(http.HandlerFunc(th.HandleUpdate)))
}

func (r *Router) registerSession() {
	h := &SessionHandler{UserService: r.UserService}

	// GET /session - behind the training participation gate with its
	// first-login side effect.
	r.Mux.Handle("GET /v1/session",
		httpx.Chain(h,
			httpx.AuthnMiddleware(r.sessions),
			r.requireTrainingAccess(),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}

// callerFromCtx loads the full user record behind the verified identity. The
// gates need the stored role set and id, not just the token claims.
func (r *Router) callerFromCtx(req *http.Request) (domain.User, error) {
	return r.UserService.GetUserByID(req.Context(), httpx.UserIDFromCtx(req.Context()))
}

// requireOrgAccess gates a request on the organizationId path parameter:
// 400 when absent, 404 when the organization is unknown, 403 unless the
// caller is an active administrator of it. ADMIN bypasses.
func (r *Router) requireOrgAccess() httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			user, err := r.callerFromCtx(req)
			if err != nil {
				writeServiceError(w, req, err)
				return
			}
			if err := r.AccessService.CheckOrgAccess(req.Context(), user, req.PathValue("organizationId")); err != nil {
				writeServiceError(w, req, err)
				return
			}
			next.ServeHTTP(w, req)
		})
	}
}

// requireTrainingOrgAccess resolves the training's organization and applies
// the same organization gate.
func (r *Router) requireTrainingOrgAccess() httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			user, err := r.callerFromCtx(req)
			if err != nil {
				writeServiceError(w, req, err)
				return
			}
			t, err := r.TrainingService.GetTraining(req.Context(), req.PathValue("trainingId"))
			if err != nil {
				writeServiceError(w, req, err)
				return
			}
			if err := r.AccessService.CheckOrgAccess(req.Context(), user, t.OrganizationID); err != nil {
				writeServiceError(w, req, err)
				return
			}
			next.ServeHTTP(w, req)
		})
	}
}

// requireTrainingAccess gates a request on current training participation,
// recording trainee first logins as a side effect of the check.
func (r *Router) requireTrainingAccess() httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			user, err := r.callerFromCtx(req)
			if err != nil {
				writeServiceError(w, req, err)
				return
			}
			if err := r.AccessService.CheckTrainingAccess(req.Context(), user, time.Now()); err != nil {
				writeServiceError(w, req, err)
				return
			}
			next.ServeHTTP(w, req)
		})
	}
}
