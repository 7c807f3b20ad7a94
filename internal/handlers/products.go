package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/kibslabs/labstock/internal/audit"
	"github.com/kibslabs/labstock/internal/middleware"
	"github.com/kibslabs/labstock/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CreateProductRequest holds the fields accepted when registering a product
type CreateProductRequest struct {
	ProductCode    string     `json:"productCode" validate:"required"`
	Name           string     `json:"name" validate:"required"`
	Category       string     `json:"category"`
	Manufacturer   string     `json:"manufacturer"`
	Quantity       int        `json:"quantity" validate:"gte=0"`
	Price          string     `json:"price"`
	LowStockAlert  int        `json:"lowStockAlert" validate:"gte=0"`
	RoomID         *uint      `json:"roomId"`
	Concentration  string     `json:"concentration"`
	HazardLevel    string     `json:"hazardLevel"`
	Notes          string     `json:"notes"`
	ExpirationDate *time.Time `json:"expirationDate"`
}

// PatchProductRequest carries the optional tracked-field updates. Only
// fields present in the payload are applied; each applied field writes
// its own audit event.
type PatchProductRequest struct {
	Notes           *string `json:"notes"`
	Concentration   *string `json:"concentration"`
	EquipmentStatus *string `json:"equipmentStatus"`
}

// UpdateQuantityRequest sets a product's absolute stock level
type UpdateQuantityRequest struct {
	Quantity int    `json:"quantity" validate:"gte=0"`
	Notes    string `json:"notes"`
}

// listProducts returns the product catalog. Products hidden by an
// outstanding deletion request are only visible to admins.
func (r *Router) listProducts(w http.ResponseWriter, req *http.Request) {
	claims, _ := middleware.ClaimsFromContext(req.Context())

	query := r.db.Model(&models.Product{})
	if !claims.IsAdmin {
		query = query.Where("hidden = ?", false)
	}
	if category := req.URL.Query().Get("category"); category != "" {
		query = query.Where("category = ?", category)
	}
	if roomID := req.URL.Query().Get("roomId"); roomID != "" {
		query = query.Where("room_id = ?", roomID)
	}

	var products []models.Product
	if err := query.Order("id ASC").Find(&products).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch products")
		return
	}

	respondJSON(w, http.StatusOK, products)
}

// createProduct registers a new product and records its creation
func (r *Router) createProduct(w http.ResponseWriter, req *http.Request) {
	var createReq CreateProductRequest
	if err := json.NewDecoder(req.Body).Decode(&createReq); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := r.validate.Struct(createReq); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	price := decimal.Zero
	if createReq.Price != "" {
		parsed, err := decimal.NewFromString(createReq.Price)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid price")
			return
		}
		price = parsed
	}

	claims, _ := middleware.ClaimsFromContext(req.Context())

	product := models.Product{
		ProductCode:    createReq.ProductCode,
		Name:           createReq.Name,
		Category:       createReq.Category,
		Manufacturer:   createReq.Manufacturer,
		Quantity:       createReq.Quantity,
		Price:          price,
		LowStockAlert:  createReq.LowStockAlert,
		RoomID:         createReq.RoomID,
		Concentration:  createReq.Concentration,
		HazardLevel:    createReq.HazardLevel,
		Notes:          createReq.Notes,
		ExpirationDate: createReq.ExpirationDate,
	}

	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&product).Error; err != nil {
			return err
		}
		_, err := audit.Record(tx, audit.Entry{
			EntityID:   audit.EntityID(product.ID),
			ActionType: models.ActionCreate,
			NewValue:   audit.Value(product.Name),
			ActorID:    actorID(claims),
		})
		return err
	})
	if err != nil {
		respondError(w, http.StatusConflict, "Product code already exists")
		return
	}

	respondJSON(w, http.StatusCreated, product)
}

// getProduct returns one product by id
func (r *Router) getProduct(w http.ResponseWriter, req *http.Request) {
	id, ok := pathID(w, req)
	if !ok {
		return
	}

	var product models.Product
	if err := r.db.First(&product, id).Error; err != nil {
		respondError(w, http.StatusNotFound, "Product not found")
		return
	}

	claims, _ := middleware.ClaimsFromContext(req.Context())
	if product.Hidden && !claims.IsAdmin {
		respondError(w, http.StatusNotFound, "Product not found")
		return
	}

	respondJSON(w, http.StatusOK, product)
}

// patchProduct applies tracked-field updates, writing one audit event per
// changed field in the same transaction as the update itself.
func (r *Router) patchProduct(w http.ResponseWriter, req *http.Request) {
	id, ok := pathID(w, req)
	if !ok {
		return
	}

	var patchReq PatchProductRequest
	if err := json.NewDecoder(req.Body).Decode(&patchReq); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	claims, _ := middleware.ClaimsFromContext(req.Context())
	actor := actorID(claims)

	var product models.Product
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&product, id).Error; err != nil {
			return err
		}

		updates := map[string]interface{}{}
		record := func(action, previous, next string) error {
			_, err := audit.Record(tx, audit.Entry{
				EntityID:      audit.EntityID(product.ID),
				ActionType:    action,
				PreviousValue: audit.Value(previous),
				NewValue:      audit.Value(next),
				ActorID:       actor,
			})
			return err
		}

		if patchReq.Notes != nil && *patchReq.Notes != product.Notes {
			if err := record(models.ActionNotesUpdate, product.Notes, *patchReq.Notes); err != nil {
				return err
			}
			updates["notes"] = *patchReq.Notes
			product.Notes = *patchReq.Notes
		}
		if patchReq.Concentration != nil && *patchReq.Concentration != product.Concentration {
			if err := record(models.ActionConcentrationUpdate, product.Concentration, *patchReq.Concentration); err != nil {
				return err
			}
			updates["concentration"] = *patchReq.Concentration
			product.Concentration = *patchReq.Concentration
		}
		if patchReq.EquipmentStatus != nil && *patchReq.EquipmentStatus != product.EquipmentStatus {
			if err := record(models.ActionEquipmentStatusUpdate, product.EquipmentStatus, *patchReq.EquipmentStatus); err != nil {
				return err
			}
			updates["equipment_status"] = *patchReq.EquipmentStatus
			product.EquipmentStatus = *patchReq.EquipmentStatus
		}

		if len(updates) == 0 {
			return nil
		}
		return tx.Model(&models.Product{}).Where("id = ?", product.ID).Updates(updates).Error
	})
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			respondError(w, http.StatusNotFound, "Product not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to update product")
		return
	}

	respondJSON(w, http.StatusOK, product)
}

// updateQuantity sets the absolute stock level. The quantity change and
// its audit event commit together or not at all.
func (r *Router) updateQuantity(w http.ResponseWriter, req *http.Request) {
	id, ok := pathID(w, req)
	if !ok {
		return
	}

	var qtyReq UpdateQuantityRequest
	if err := json.NewDecoder(req.Body).Decode(&qtyReq); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := r.validate.Struct(qtyReq); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	claims, _ := middleware.ClaimsFromContext(req.Context())

	var product models.Product
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&product, id).Error; err != nil {
			return err
		}

		previous := product.Quantity
		if err := tx.Model(&models.Product{}).Where("id = ?", product.ID).
			Update("quantity", qtyReq.Quantity).Error; err != nil {
			return err
		}
		product.Quantity = qtyReq.Quantity

		_, err := audit.Record(tx, audit.Entry{
			EntityID:      audit.EntityID(product.ID),
			ActionType:    models.ActionQuantityUpdate,
			PreviousValue: audit.Value(strconv.Itoa(previous)),
			NewValue:      audit.Value(strconv.Itoa(qtyReq.Quantity)),
			ActorID:       actorID(claims),
			Notes:         qtyReq.Notes,
		})
		return err
	})
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			respondError(w, http.StatusNotFound, "Product not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to update quantity")
		return
	}

	respondJSON(w, http.StatusOK, product)
}

// getProductAudit returns the product's change history, newest first
func (r *Router) getProductAudit(w http.ResponseWriter, req *http.Request) {
	id, ok := pathID(w, req)
	if !ok {
		return
	}

	q := audit.Query{
		EntityID:   audit.EntityID(id),
		EntityType: models.EntityTypeProduct,
		ActionType: req.URL.Query().Get("action"),
	}
	if limit := req.URL.Query().Get("limit"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil {
			q.Limit = n
		}
	}
	if since := req.URL.Query().Get("since"); since != "" {
		ts, err := time.Parse(time.RFC3339, since)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid since timestamp")
			return
		}
		q.Since = &ts
	}

	events, err := audit.Find(r.db.DB, q)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch audit trail")
		return
	}

	respondJSON(w, http.StatusOK, events)
}

// pathID parses the {id} path variable, writing a 400 on failure
func pathID(w http.ResponseWriter, req *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(mux.Vars(req)["id"], 10, 32)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid product ID")
		return 0, false
	}
	return uint(id), true
}

// actorID converts request claims into an audit actor reference
func actorID(claims middleware.Claims) *string {
	if claims.WorkerID == "" {
		return nil
	}
	id := claims.WorkerID
	return &id
}
