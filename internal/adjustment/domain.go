// Package adjustment manages stock corrections: operator-driven counts
// against a site snapshot, and shipment-variance records produced by the
// reconciliation engine during receipt.
package adjustment

import (
	"time"

	"github.com/meridian-relief/meridian/internal/shared"
)

// Status is the adjustment lifecycle. Closing applies the counted deltas
// to the ledger and is terminal.
type Status int

const (
	StatusInProcess Status = 0
	StatusComplete  Status = 1
)

func (s Status) String() string {
	switch s {
	case StatusInProcess:
		return "IN_PROCESS"
	case StatusComplete:
		return "COMPLETE"
	default:
		return "UNKNOWN"
	}
}

// CanEdit checks if counts can still be recorded.
func (s Status) CanEdit() bool {
	return s == StatusInProcess
}

// Category separates receipt-variance adjustments from operator counts.
type Category int

const (
	// CategoryShipment marks variance records created during receipt.
	// Their ledger effect already happened at unload; they are born
	// complete and never close.
	CategoryShipment Category = 0
	// CategoryInventory marks operator-driven count adjustments.
	CategoryInventory Category = 1
)

func (c Category) String() string {
	switch c {
	case CategoryShipment:
		return "SHIPMENT"
	case CategoryInventory:
		return "INVENTORY"
	default:
		return "UNKNOWN"
	}
}

// Reason classifies why a counted quantity differs from the books.
type Reason int

const (
	ReasonUnknown Reason = 0
	ReasonNone    Reason = 1
	ReasonLost    Reason = 2
	ReasonDamaged Reason = 3
	ReasonExpired Reason = 4
	ReasonFound   Reason = 5
)

// IsValid checks if the reason is valid.
func (r Reason) IsValid() bool {
	return r >= ReasonUnknown && r <= ReasonFound
}

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "NONE"
	case ReasonLost:
		return "LOST"
	case ReasonDamaged:
		return "DAMAGED"
	case ReasonExpired:
		return "EXPIRED"
	case ReasonFound:
		return "FOUND"
	default:
		return "UNKNOWN"
	}
}

// Adjustment is the header record grouping a set of correction lines at
// one site.
type Adjustment struct {
	ID         int64            `json:"id" db:"id"`
	AdjusterID int64            `json:"adjuster_id" db:"adjuster_id"`
	SiteID     int64            `json:"site_id" db:"site_id"`
	Date       time.Time        `json:"date" db:"date"`
	Status     Status           `json:"status" db:"status"`
	Category   Category         `json:"category" db:"category"`
	Comments   string           `json:"comments,omitempty" db:"comments"`
	Lifecycle  shared.Lifecycle `json:"lifecycle" db:"lifecycle"`
	CreatedBy  int64            `json:"created_by" db:"created_by"`
	CreatedAt  time.Time        `json:"created_at" db:"created_at"`
	UpdatedBy  int64            `json:"updated_by" db:"updated_by"`
	UpdatedAt  time.Time        `json:"updated_at" db:"updated_at"`
}

// Line is one item correction. OldQuantity is the book quantity captured
// when the line was created and is immutable afterwards; NewQuantity is
// the counted quantity, nil until recorded.
type Line struct {
	ID           int64            `json:"id" db:"id"`
	AdjustmentID int64            `json:"adjustment_id" db:"adjustment_id"`
	EntryID      *int64           `json:"entry_id,omitempty" db:"entry_id"`
	ItemID       int64            `json:"item_id" db:"item_id"`
	PackID       int64            `json:"pack_id" db:"pack_id"`
	Reason       Reason           `json:"reason" db:"reason"`
	OldQuantity  float64          `json:"old_quantity" db:"old_quantity"`
	NewQuantity  *float64         `json:"new_quantity,omitempty" db:"new_quantity"`
	PackValue    float64          `json:"pack_value" db:"pack_value"`
	Currency     string           `json:"currency,omitempty" db:"currency"`
	ExpiryDate   *time.Time       `json:"expiry_date,omitempty" db:"expiry_date"`
	Bin          string           `json:"bin,omitempty" db:"bin"`
	Comments     string           `json:"comments,omitempty" db:"comments"`
	Lifecycle    shared.Lifecycle `json:"lifecycle" db:"lifecycle"`
	CreatedBy    int64            `json:"created_by" db:"created_by"`
	CreatedAt    time.Time        `json:"created_at" db:"created_at"`
	UpdatedBy    int64            `json:"updated_by" db:"updated_by"`
	UpdatedAt    time.Time        `json:"updated_at" db:"updated_at"`
}

// Delta is the signed quantity the close pass applies to the ledger.
// Zero when no count was recorded.
func (l Line) Delta() float64 {
	if l.NewQuantity == nil {
		return 0
	}
	return *l.NewQuantity - l.OldQuantity
}

// IsCounted reports whether a counted quantity has been recorded.
func (l Line) IsCounted() bool {
	return l.NewQuantity != nil
}

// CreateCommand opens an operator count adjustment over a site's current
// positive-quantity stock.
type CreateCommand struct {
	SiteID     int64  `json:"site_id" validate:"required,gt=0"`
	AdjusterID int64  `json:"adjuster_id" validate:"required,gt=0"`
	Comments   string `json:"comments,omitempty" validate:"max=512"`
	ActorID    int64  `json:"-"`
}

// RecordCountCommand stores the counted quantity for one line.
type RecordCountCommand struct {
	LineID      int64   `json:"-"`
	NewQuantity float64 `json:"new_quantity" validate:"gte=0"`
	Reason      Reason  `json:"reason" validate:"gte=0,lte=5"`
	Comments    string  `json:"comments,omitempty" validate:"max=512"`
	ActorID     int64   `json:"-"`
}

// CloseCommand applies the recorded counts to the ledger.
type CloseCommand struct {
	AdjustmentID int64 `json:"-"`
	ActorID      int64 `json:"-"`
}
