// Package ledger records physical stock quantities per site. Every entry
// represents one item/pack/batch physically present at one warehouse;
// quantity is mutated only through the debit/credit helpers so the
// non-negative invariant holds everywhere.
package ledger

import (
	"time"

	"github.com/meridian-relief/meridian/internal/shared"
)

// StockEntry models one quantity of an item/pack/batch held at a site.
type StockEntry struct {
	ID          int64            `json:"id" db:"id"`
	SiteID      int64            `json:"site_id" db:"site_id"`
	ItemID      int64            `json:"item_id" db:"item_id"`
	PackID      int64            `json:"pack_id" db:"pack_id"`
	Quantity    float64          `json:"quantity" db:"quantity"`
	PackValue   float64          `json:"pack_value" db:"pack_value"`
	Currency    string           `json:"currency" db:"currency"`
	ExpiryDate  *time.Time       `json:"expiry_date,omitempty" db:"expiry_date"`
	Bin         string           `json:"bin,omitempty" db:"bin"`
	SupplyOrgID int64            `json:"supply_org_id" db:"supply_org_id"`
	TrackingNo  string           `json:"tracking_no,omitempty" db:"tracking_no"`
	Comments    string           `json:"comments,omitempty" db:"comments"`
	Lifecycle   shared.Lifecycle `json:"lifecycle" db:"lifecycle"`
	CreatedBy   int64            `json:"created_by" db:"created_by"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`
	UpdatedBy   int64            `json:"updated_by" db:"updated_by"`
	UpdatedAt   time.Time        `json:"updated_at" db:"updated_at"`
}

// MatchKey is the tuple deciding whether two stock movements refer to the
// same ledger entry. A change in any field produces a distinct entry.
type MatchKey struct {
	SiteID      int64
	ItemID      int64
	PackID      int64
	Currency    string
	PackValue   float64
	ExpiryDate  *time.Time
	Bin         string
	SupplyOrgID int64
}

// Key returns the deduplication key of the entry.
func (e StockEntry) Key() MatchKey {
	return MatchKey{
		SiteID:      e.SiteID,
		ItemID:      e.ItemID,
		PackID:      e.PackID,
		Currency:    e.Currency,
		PackValue:   e.PackValue,
		ExpiryDate:  e.ExpiryDate,
		Bin:         e.Bin,
		SupplyOrgID: e.SupplyOrgID,
	}
}

// TotalValue reports quantity times value per pack.
func (e StockEntry) TotalValue() float64 {
	return e.Quantity * e.PackValue
}

// ReceiveStockInput describes a direct stock intake at a warehouse,
// outside any shipment.
type ReceiveStockInput struct {
	SiteID      int64
	ItemID      int64
	PackID      int64
	Quantity    float64
	PackValue   float64
	Currency    string
	ExpiryDate  *time.Time
	Bin         string
	SupplyOrgID int64
	TrackingNo  string
	ActorID     int64
}
