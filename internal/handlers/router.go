package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/kibslabs/labstock/internal/analytics"
	"github.com/kibslabs/labstock/internal/config"
	"github.com/kibslabs/labstock/internal/database"
	"github.com/kibslabs/labstock/internal/deletion"
	"github.com/kibslabs/labstock/internal/middleware"
	"github.com/kibslabs/labstock/internal/notify"
	"github.com/kibslabs/labstock/internal/sweep"
	"github.com/kibslabs/labstock/internal/utils"
)

// Router wraps the mux router and the application services
type Router struct {
	*mux.Router

	db       *database.DB
	cfg      *config.Config
	validate *validator.Validate

	recomputer *analytics.Recomputer
	estimator  *analytics.Estimator
	workflow   *deletion.Workflow
	sweeper    *sweep.Engine
	hub        *notify.Hub
}

// NewRouter creates a new HTTP router with all routes
func NewRouter(db *database.DB, cfg *config.Config, recomputer *analytics.Recomputer, estimator *analytics.Estimator, workflow *deletion.Workflow, sweeper *sweep.Engine, hub *notify.Hub) *Router {
	r := &Router{
		Router:     mux.NewRouter(),
		db:         db,
		cfg:        cfg,
		validate:   validator.New(),
		recomputer: recomputer,
		estimator:  estimator,
		workflow:   workflow,
		sweeper:    sweeper,
		hub:        hub,
	}

	// Health check endpoint
	r.HandleFunc("/health", r.healthCheck).Methods("GET")

	// Auth routes
	auth := r.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/login", r.login).Methods("POST")

	authn := middleware.Auth(cfg.JWTSecret)

	// Worker routes (protected)
	workers := r.PathPrefix("/api/workers").Subrouter()
	workers.Use(authn, middleware.AdminOnly)
	workers.HandleFunc("", r.registerWorker).Methods("POST")

	// Product routes (protected)
	products := r.PathPrefix("/api/products").Subrouter()
	products.Use(authn)
	products.HandleFunc("", r.listProducts).Methods("GET")
	products.HandleFunc("", r.createProduct).Methods("POST")
	products.HandleFunc("/{id}", r.getProduct).Methods("GET")
	products.HandleFunc("/{id}", r.patchProduct).Methods("PATCH")
	products.HandleFunc("/{id}/quantity", r.updateQuantity).Methods("PUT")
	products.HandleFunc("/{id}/audit", r.getProductAudit).Methods("GET")

	// Analytics routes (protected)
	api := r.PathPrefix("/api").Subrouter()
	api.Use(authn)
	api.HandleFunc("/analytics", r.getAnalytics).Methods("GET")
	api.HandleFunc("/restocking", r.getRestockingSuggestions).Methods("GET")
	api.HandleFunc("/notifications", r.listNotifications).Methods("GET")
	api.HandleFunc("/labels/products.pdf", r.productLabels).Methods("GET")

	// Deletion workflow
	deletions := r.PathPrefix("/api/deletions").Subrouter()
	deletions.Use(authn)
	deletions.HandleFunc("", r.createDeletion).Methods("POST")

	adminDeletions := r.PathPrefix("/api/deletions").Subrouter()
	adminDeletions.Use(authn, middleware.AdminOnly)
	adminDeletions.HandleFunc("", r.listDeletions).Methods("GET")
	adminDeletions.HandleFunc("/{id}/resolve", r.resolveDeletion).Methods("POST")

	// Admin batch triggers
	admin := r.PathPrefix("/api/admin").Subrouter()
	admin.Use(authn, middleware.AdminOnly)
	admin.HandleFunc("/recompute", r.runRecompute).Methods("POST")
	admin.HandleFunc("/sweep", r.runSweep).Methods("POST")

	// Notification stream for dashboards
	r.HandleFunc("/ws/notifications", func(w http.ResponseWriter, req *http.Request) {
		notify.ServeWs(hub, w, req)
	})

	return r
}

// healthCheck returns the health status of the API
func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// respondWorkflowError maps the error taxonomy onto HTTP statuses
func respondWorkflowError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, utils.ErrValidation):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, utils.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, utils.ErrConflict):
		respondError(w, http.StatusConflict, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}
