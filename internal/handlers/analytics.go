package handlers

import (
	"net/http"
	"time"

	"github.com/kibslabs/labstock/internal/models"
)

// getAnalytics returns the derived movement metrics. Optional filters:
// ?flag=dead_stock|slow_moving|top selects one classification.
func (r *Router) getAnalytics(w http.ResponseWriter, req *http.Request) {
	query := r.db.Model(&models.InventoryAnalytics{})

	switch req.URL.Query().Get("flag") {
	case "dead_stock":
		query = query.Where("is_dead_stock = ?", true)
	case "slow_moving":
		query = query.Where("is_slow_moving = ?", true)
	case "top":
		query = query.Where("is_top_product = ?", true)
	case "":
	default:
		respondError(w, http.StatusBadRequest, "Unknown flag filter")
		return
	}

	var rows []models.InventoryAnalytics
	if err := query.Order("product_id ASC").Find(&rows).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch analytics")
		return
	}

	respondJSON(w, http.StatusOK, rows)
}

// getRestockingSuggestions returns the advisory reorder list
func (r *Router) getRestockingSuggestions(w http.ResponseWriter, req *http.Request) {
	suggestions, err := r.estimator.Suggestions(time.Now().UTC())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to compute restocking suggestions")
		return
	}

	respondJSON(w, http.StatusOK, suggestions)
}

// listNotifications returns alerts, unacknowledged first
func (r *Router) listNotifications(w http.ResponseWriter, req *http.Request) {
	query := r.db.Model(&models.Notification{})
	if req.URL.Query().Get("unacknowledged") == "true" {
		query = query.Where("acknowledged = ?", false)
	}

	var notifications []models.Notification
	if err := query.Order("acknowledged ASC, id DESC").Find(&notifications).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch notifications")
		return
	}

	respondJSON(w, http.StatusOK, notifications)
}

// runRecompute triggers a synchronous analytics recomputation
func (r *Router) runRecompute(w http.ResponseWriter, req *http.Request) {
	result, err := r.recomputer.Run(time.Now().UTC())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to recompute analytics")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// runSweep triggers a full synchronous sweep pass
func (r *Router) runSweep(w http.ResponseWriter, req *http.Request) {
	summary := r.sweeper.RunOnce(time.Now().UTC())
	respondJSON(w, http.StatusOK, summary)
}
