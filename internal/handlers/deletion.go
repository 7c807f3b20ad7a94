package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/kibslabs/labstock/internal/deletion"
	"github.com/kibslabs/labstock/internal/middleware"
	"github.com/kibslabs/labstock/internal/models"
)

// CreateDeletionRequest stages a new deletion request
type CreateDeletionRequest struct {
	TargetType string `json:"targetType" validate:"required,oneof=product room worker"`
	TargetID   string `json:"targetId" validate:"required"`
	Reason     string `json:"reason" validate:"required"`
}

// ResolveDeletionRequest carries an admin's verdict
type ResolveDeletionRequest struct {
	Decision string `json:"decision" validate:"required,oneof=approve reject"`
}

// createDeletion stages a deletion request for review
func (r *Router) createDeletion(w http.ResponseWriter, req *http.Request) {
	var createReq CreateDeletionRequest
	if err := json.NewDecoder(req.Body).Decode(&createReq); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := r.validate.Struct(createReq); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	claims, _ := middleware.ClaimsFromContext(req.Context())

	row, err := r.workflow.Create(deletion.CreateRequest{
		TargetType:  models.DeleteTargetType(createReq.TargetType),
		TargetID:    createReq.TargetID,
		Reason:      createReq.Reason,
		RequestedBy: actorID(claims),
	})
	if err != nil {
		respondWorkflowError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, row)
}

// listDeletions returns deletion requests, optionally filtered by status
func (r *Router) listDeletions(w http.ResponseWriter, req *http.Request) {
	query := r.db.Model(&models.PendingDelete{})
	if status := req.URL.Query().Get("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var rows []models.PendingDelete
	if err := query.Order("timestamp ASC, id ASC").Find(&rows).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch deletion requests")
		return
	}

	respondJSON(w, http.StatusOK, rows)
}

// resolveDeletion applies an admin verdict to a pending request
func (r *Router) resolveDeletion(w http.ResponseWriter, req *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(req)["id"], 10, 32)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request ID")
		return
	}

	var resolveReq ResolveDeletionRequest
	if err := json.NewDecoder(req.Body).Decode(&resolveReq); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := r.validate.Struct(resolveReq); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	claims, _ := middleware.ClaimsFromContext(req.Context())

	if err := r.workflow.Resolve(uint(id), deletion.Decision(resolveReq.Decision), actorID(claims)); err != nil {
		respondWorkflowError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"status": "resolved",
	})
}
