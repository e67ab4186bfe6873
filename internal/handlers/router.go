package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/smartbus/school-bus-monitor/internal/middleware"
	"github.com/smartbus/school-bus-monitor/internal/models"
)

// RouterDeps bundles the handlers and middleware that make up the API.
type RouterDeps struct {
	Auth      *AuthHandler
	Buses     *BusHandler
	Alerts    *AlertHandler
	Config    *ConfigHandler
	Simulator *SimulatorHandler
	Messages  *MessageHandler

	AuthMiddleware *middleware.AuthMiddleware
	RateLimit      *middleware.RateLimitMiddleware
}

// NewRouter builds the HTTP routing table. Authentication wraps everything;
// login, register and health are exempted inside the middleware itself.
func NewRouter(deps RouterDeps) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", healthHandler)

	mux.HandleFunc("POST /api/auth/login", deps.Auth.Login)
	mux.HandleFunc("POST /api/auth/register", deps.Auth.Register)
	mux.HandleFunc("GET /api/auth/me", deps.Auth.GetProfile)
	mux.HandleFunc("POST /api/auth/change-password", deps.Auth.ChangePassword)

	adminOnly := deps.AuthMiddleware.RequireRole(models.RoleAdmin)
	mux.Handle("GET /api/auth/users", adminOnly(http.HandlerFunc(deps.Auth.ListUsers)))
	mux.Handle("POST /api/auth/users", adminOnly(http.HandlerFunc(deps.Auth.CreateUser)))
	mux.Handle("DELETE /api/auth/users/{id}", adminOnly(http.HandlerFunc(deps.Auth.DeleteUser)))

	mux.HandleFunc("GET /api/buses", deps.Buses.Latest)
	mux.HandleFunc("GET /api/buses/{id}/history", deps.Buses.History)

	mux.HandleFunc("GET /api/alerts", deps.Alerts.List)

	mux.HandleFunc("GET /api/config", deps.Config.Get)
	mux.Handle("PUT /api/config",
		deps.AuthMiddleware.RequirePermission("update_config")(http.HandlerFunc(deps.Config.Update)))

	mux.HandleFunc("GET /api/simulators/status", deps.Simulator.Status)
	mux.HandleFunc("POST /api/simulators/start", deps.Simulator.StartAll)
	mux.HandleFunc("POST /api/simulators/stop", deps.Simulator.StopAll)
	mux.HandleFunc("POST /api/simulators/bus/{id}/start", deps.Simulator.StartOne)
	mux.HandleFunc("POST /api/simulators/bus/{id}/stop", deps.Simulator.StopOne)

	mux.HandleFunc("POST /api/messages", deps.Messages.Send)
	mux.HandleFunc("GET /api/messages", deps.Messages.List)
	mux.HandleFunc("GET /api/messages/templates", deps.Messages.Templates)
	mux.HandleFunc("GET /api/messages/{id}", deps.Messages.Get)

	var handler http.Handler = mux
	handler = deps.AuthMiddleware.Authenticate(handler)
	if deps.RateLimit != nil {
		handler = deps.RateLimit.RateLimit(100, 60)(handler)
	}
	return handler
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
