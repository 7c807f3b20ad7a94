package handlers

import (
	"net/http"

	"github.com/kibslabs/labstock/internal/models"
	"github.com/kibslabs/labstock/internal/services/labels"
)

// productLabels renders a printable PDF label sheet with one QR code per
// visible product. ?category= limits the sheet to one category.
func (r *Router) productLabels(w http.ResponseWriter, req *http.Request) {
	query := r.db.Where("hidden = ?", false)
	if category := req.URL.Query().Get("category"); category != "" {
		query = query.Where("category = ?", category)
	}

	var products []models.Product
	if err := query.Order("product_code ASC").Find(&products).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch products")
		return
	}
	if len(products) == 0 {
		respondError(w, http.StatusNotFound, "No products to label")
		return
	}

	pdf, err := labels.GenerateProductLabels(products, labels.DefaultSheetConfig())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to generate labels")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="product_labels.pdf"`)
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}
