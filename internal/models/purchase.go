package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PurchaseRecord is an immutable historical purchase fact; input to the
// restocking estimator and to revenue ranking.
type PurchaseRecord struct {
	ID         uint `gorm:"primaryKey" json:"id"`
	ProductID  uint `gorm:"not null;index" json:"productId"`
	SupplierID uint `gorm:"not null;index" json:"supplierId"`

	PurchaseDate time.Time       `gorm:"not null;index" json:"purchaseDate"`
	Quantity     int             `gorm:"not null" json:"quantity"`
	PricePerUnit decimal.Decimal `gorm:"type:decimal(12,2)" json:"pricePerUnit"`
	TotalPrice   decimal.Decimal `gorm:"type:decimal(14,2)" json:"totalPrice"`

	CreatedAt time.Time `json:"createdAt"`
}

// TableName specifies the table name for PurchaseRecord
func (PurchaseRecord) TableName() string {
	return "purchase_records"
}
