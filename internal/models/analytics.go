package models

import (
	"time"
)

// InventoryAnalytics holds derived movement metrics for one product.
// Rows are disposable: dropping the table and rerunning the recomputation
// reproduces identical values from the audit ledger and product state.
type InventoryAnalytics struct {
	ID        uint `gorm:"primaryKey" json:"id"`
	ProductID uint `gorm:"uniqueIndex;not null" json:"productId"`

	LastMovementDate    *time.Time `json:"lastMovementDate,omitempty"`
	DaysWithoutMovement *int       `json:"daysWithoutMovement,omitempty"`
	StockoutCount       int        `gorm:"default:0" json:"stockoutCount"`
	LastStockoutDate    *time.Time `json:"lastStockoutDate,omitempty"`

	IsDeadStock  bool `gorm:"default:false" json:"isDeadStock"`
	IsSlowMoving bool `gorm:"default:false" json:"isSlowMoving"`
	IsTopProduct bool `gorm:"default:false" json:"isTopProduct"`

	MovementRank int `gorm:"default:0" json:"movementRank"`
	RevenueRank  int `gorm:"default:0" json:"revenueRank"`

	LastUpdated time.Time `json:"lastUpdated"`
}

// TableName specifies the table name for InventoryAnalytics
func (InventoryAnalytics) TableName() string {
	return "inventory_analytics"
}
