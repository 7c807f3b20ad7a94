package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/kibslabs/labstock/internal/audit"
	"github.com/kibslabs/labstock/internal/models"
	"github.com/kibslabs/labstock/internal/utils"
	"gorm.io/gorm"
)

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterWorkerRequest represents an admin registering a staff account
type RegisterWorkerRequest struct {
	Username string `json:"username" validate:"required,min=3"`
	Password string `json:"password" validate:"required,min=8"`
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name"`
	IsAdmin  bool   `json:"isAdmin"`
}

// login handles worker login
func (r *Router) login(w http.ResponseWriter, req *http.Request) {
	var loginReq LoginRequest
	if err := json.NewDecoder(req.Body).Decode(&loginReq); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := r.validate.Struct(loginReq); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var worker models.Worker
	if err := r.db.Where("email = ?", loginReq.Email).First(&worker).Error; err != nil {
		respondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	// Deactivated accounts (e.g. under a pending deletion request) cannot
	// log in.
	if !worker.IsActive {
		respondError(w, http.StatusUnauthorized, "Account is deactivated")
		return
	}

	if !utils.CheckPasswordHash(loginReq.Password, worker.Password) {
		respondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	now := time.Now().UTC()
	worker.LastLogin = &now
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&worker).Update("last_login", now).Error; err != nil {
			return err
		}
		_, err := audit.Record(tx, audit.Entry{
			EntityID:   worker.ID,
			EntityType: models.EntityTypeWorker,
			ActionType: models.ActionLogin,
			ActorID:    &worker.ID,
		})
		return err
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to record login")
		return
	}

	token, err := utils.GenerateToken(&worker, r.cfg.JWTSecret)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"token":  token,
		"worker": worker,
	})
}

// registerWorker creates a staff account (admin only)
func (r *Router) registerWorker(w http.ResponseWriter, req *http.Request) {
	var regReq RegisterWorkerRequest
	if err := json.NewDecoder(req.Body).Decode(&regReq); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := r.validate.Struct(regReq); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	hash, err := utils.HashPassword(regReq.Password)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to hash password")
		return
	}

	worker := models.Worker{
		ID:       uuid.New().String(),
		Username: regReq.Username,
		Password: hash,
		Email:    regReq.Email,
		Name:     regReq.Name,
		IsAdmin:  regReq.IsAdmin,
		IsActive: true,
	}

	if err := r.db.Create(&worker).Error; err != nil {
		respondError(w, http.StatusConflict, "Username or email already taken")
		return
	}

	respondJSON(w, http.StatusCreated, worker)
}
