package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/arcwell/identity/internal/identity/service"
	"github.com/arcwell/identity/internal/identity/store"
	"github.com/arcwell/identity/pkg/httpx"
	"github.com/arcwell/identity/pkg/slogx"
)

// Scope names gating the management endpoints.
const (
	ScopeManageUsers       = "manage_users"
	ScopeViewUsers         = "view_users"
	ScopeManageRoles       = "manage_roles"
	ScopeViewRoles         = "view_roles"
	ScopeManagePermissions = "manage_permissions"
	ScopeViewPermissions   = "view_permissions"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	store        store.Store

	AuthService       *service.AuthService
	TokenService      *service.TokenService
	OTPService        *service.OTPService
	UserService       *service.UserService
	RoleService       *service.RoleService
	PermissionService *service.PermissionService
}

func NewRouter(buildVersion string, st store.Store, logger *slog.Logger) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
		store:        st,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerOTP()
	r.registerMe()
	r.registerUsers()
	r.registerRoles()
	r.registerPermissions()
	r.registerSystem()
}

// ServeHTTP implements http.Handler and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// secured wraps a handler with authentication, scope enforcement, and a
// per-user rate limit.
func (r *Router) secured(h http.Handler, limit httpx.RateLimitConfig, scopes ...string) http.Handler {
	return httpx.Chain(h,
		requireAuth(r.TokenService, scopes...),
		httpx.RateLimitByUser(limit),
	)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{AuthService: r.AuthService}

	// Credential and code guessing endpoints get the strict per-IP limit.
	r.Mux.Handle("POST /v1/auth/register",
		httpx.Chain(http.HandlerFunc(h.HandleRegister), httpx.RateLimitByIP(httpx.StrictLimit)))
	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin), httpx.RateLimitByIP(httpx.StrictLimit)))
	r.Mux.Handle("POST /v1/auth/forgot-password",
		httpx.Chain(http.HandlerFunc(h.HandleForgotPassword), httpx.RateLimitByIP(httpx.StrictLimit)))
	r.Mux.Handle("POST /v1/auth/reset-password",
		httpx.Chain(http.HandlerFunc(h.HandleResetPassword), httpx.RateLimitByIP(httpx.StrictLimit)))

	r.Mux.Handle("POST /v1/auth/logout",
		r.secured(http.HandlerFunc(h.HandleLogout), httpx.ModerateLimit))
}

func (r *Router) registerOTP() {
	h := &OTPHandler{OTPService: r.OTPService}

	r.Mux.Handle("POST /v1/otp/request",
		httpx.Chain(http.HandlerFunc(h.HandleRequest), httpx.RateLimitByIP(httpx.StrictLimit)))
	r.Mux.Handle("POST /v1/otp/verify",
		httpx.Chain(http.HandlerFunc(h.HandleVerify), httpx.RateLimitByIP(httpx.StrictLimit)))
}

func (r *Router) registerMe() {
	h := &MeHandler{AuthService: r.AuthService, UserService: r.UserService}

	r.Mux.Handle("GET /v1/me",
		r.secured(http.HandlerFunc(h.HandleGet), httpx.LenientLimit))
	r.Mux.Handle("PUT /v1/me",
		r.secured(http.HandlerFunc(h.HandleUpdate), httpx.ModerateLimit))
	r.Mux.Handle("DELETE /v1/me",
		r.secured(http.HandlerFunc(h.HandleDelete), httpx.ModerateLimit))
	r.Mux.Handle("PUT /v1/me/password",
		r.secured(http.HandlerFunc(h.HandleUpdatePassword), httpx.ModerateLimit))
}

func (r *Router) registerUsers() {
	h := &UsersHandler{AuthService: r.AuthService, UserService: r.UserService}

	r.Mux.Handle("GET /v1/users",
		r.secured(http.HandlerFunc(h.HandleList), httpx.ModerateLimit, ScopeViewUsers, ScopeManageUsers))
	r.Mux.Handle("GET /v1/users/{id}",
		r.secured(http.HandlerFunc(h.HandleGet), httpx.ModerateLimit, ScopeViewUsers, ScopeManageUsers))
	r.Mux.Handle("POST /v1/users",
		r.secured(http.HandlerFunc(h.HandleCreate), httpx.ModerateLimit, ScopeManageUsers))
	r.Mux.Handle("PUT /v1/users/{id}",
		r.secured(http.HandlerFunc(h.HandleUpdate), httpx.ModerateLimit, ScopeManageUsers))
	r.Mux.Handle("POST /v1/users/{id}/deactivate",
		r.secured(http.HandlerFunc(h.HandleDeactivate), httpx.ModerateLimit, ScopeManageUsers))
	r.Mux.Handle("DELETE /v1/users/{id}",
		r.secured(http.HandlerFunc(h.HandleDelete), httpx.ModerateLimit, ScopeManageUsers))
}

func (r *Router) registerRoles() {
	h := &RolesHandler{RoleService: r.RoleService}

	r.Mux.Handle("GET /v1/roles",
		r.secured(http.HandlerFunc(h.HandleList), httpx.ModerateLimit, ScopeViewRoles, ScopeManageRoles))
	r.Mux.Handle("GET /v1/roles/{id}",
		r.secured(http.HandlerFunc(h.HandleGet), httpx.ModerateLimit, ScopeViewRoles, ScopeManageRoles))
	r.Mux.Handle("POST /v1/roles",
		r.secured(http.HandlerFunc(h.HandleCreate), httpx.ModerateLimit, ScopeManageRoles))
	r.Mux.Handle("DELETE /v1/roles/{id}",
		r.secured(http.HandlerFunc(h.HandleDelete), httpx.ModerateLimit, ScopeManageRoles))

	r.Mux.Handle("GET /v1/roles/{id}/permissions",
		r.secured(http.HandlerFunc(h.HandleListPermissions), httpx.ModerateLimit, ScopeViewRoles, ScopeManageRoles))
	r.Mux.Handle("PUT /v1/roles/{id}/permissions/{permissionID}",
		r.secured(http.HandlerFunc(h.HandleAddPermission), httpx.ModerateLimit, ScopeManageRoles))
	r.Mux.Handle("DELETE /v1/roles/{id}/permissions/{permissionID}",
		r.secured(http.HandlerFunc(h.HandleRemovePermission), httpx.ModerateLimit, ScopeManageRoles))
}

func (r *Router) registerPermissions() {
	h := &PermissionsHandler{PermissionService: r.PermissionService}

	r.Mux.Handle("GET /v1/permissions",
		r.secured(http.HandlerFunc(h.HandleList), httpx.ModerateLimit, ScopeViewPermissions, ScopeManagePermissions))
	r.Mux.Handle("GET /v1/permissions/{id}",
		r.secured(http.HandlerFunc(h.HandleGet), httpx.ModerateLimit, ScopeViewPermissions, ScopeManagePermissions))
	r.Mux.Handle("POST /v1/permissions",
		r.secured(http.HandlerFunc(h.HandleCreate), httpx.ModerateLimit, ScopeManagePermissions))
	r.Mux.Handle("DELETE /v1/permissions/{id}",
		r.secured(http.HandlerFunc(h.HandleDelete), httpx.ModerateLimit, ScopeManagePermissions))
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.store))
}
