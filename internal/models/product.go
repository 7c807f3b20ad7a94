package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Product is a laboratory inventory item (reagent, consumable or equipment).
type Product struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	ProductCode   string          `gorm:"uniqueIndex;not null" json:"productCode"`
	Name          string          `gorm:"not null" json:"name"`
	Category      string          `gorm:"index" json:"category"`
	Manufacturer  string          `json:"manufacturer,omitempty"`
	Quantity      int             `gorm:"not null;default:0" json:"quantity"`
	Price         decimal.Decimal `gorm:"type:decimal(12,2)" json:"price"`
	LowStockAlert int             `gorm:"default:0" json:"lowStockAlert"`

	StorageTemperature  string     `json:"storageTemperature,omitempty"`
	HazardLevel         string     `json:"hazardLevel,omitempty"`
	Concentration       string     `json:"concentration,omitempty"`
	EquipmentStatus     string     `json:"equipmentStatus,omitempty"`
	ExpirationDate      *time.Time `json:"expirationDate,omitempty"`
	SpecialInstructions string     `gorm:"type:text" json:"specialInstructions,omitempty"`
	Notes               string     `gorm:"type:text" json:"notes,omitempty"`

	RoomID       *uint          `gorm:"index" json:"roomId,omitempty"`
	SupplierInfo string         `gorm:"type:text" json:"supplierInfo,omitempty"`
	Images       datatypes.JSON `json:"images,omitempty"`

	// Hidden is set while a deletion request for this product is outstanding.
	Hidden bool `gorm:"default:false;index" json:"hidden"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName specifies the table name for Product
func (Product) TableName() string {
	return "products"
}
