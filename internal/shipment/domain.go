// Package shipment manages outbound and inbound shipment headers and the
// tracking lines joining them to the stock ledger. Headers move through a
// constrained status lifecycle that gates which mutations are legal;
// headers are never physically deletable once created.
package shipment

import (
	"time"

	"github.com/meridian-relief/meridian/internal/shared"
)

// ============================================================================
// SHIPMENT STATUS
// ============================================================================

// Status represents the shared shipment lifecycle. The numeric codes are
// part of the persisted contract.
type Status int

const (
	StatusInProcess Status = 0 // header mutable, lines addable
	StatusReceived  Status = 1 // receipt processed
	StatusSent      Status = 2 // dispatched, lines frozen
	StatusCanceled  Status = 3 // terminal
)

// IsValid checks if the status is valid.
func (s Status) IsValid() bool {
	switch s {
	case StatusInProcess, StatusReceived, StatusSent, StatusCanceled:
		return true
	default:
		return false
	}
}

func (s Status) String() string {
	switch s {
	case StatusInProcess:
		return "IN_PROCESS"
	case StatusReceived:
		return "RECEIVED"
	case StatusSent:
		return "SENT"
	case StatusCanceled:
		return "CANCELED"
	default:
		return "UNKNOWN"
	}
}

// CanEdit checks if the header and its lines can still be mutated.
func (s Status) CanEdit() bool {
	return s == StatusInProcess
}

// CanSend checks if an outbound shipment can be dispatched.
func (s Status) CanSend() bool {
	return s == StatusInProcess
}

// CanConfirmReceived checks if an outbound shipment can be manually
// confirmed as received by a destination outside the system.
func (s Status) CanConfirmReceived() bool {
	return s == StatusSent
}

// CanCancelOutbound checks if a dispatched shipment can be canceled,
// returning un-arrived quantities to the origin ledger.
func (s Status) CanCancelOutbound() bool {
	return s == StatusSent
}

// CanReceive checks if an inbound shipment can run the receipt action.
// Completeness of the lines is gated separately.
func (s Status) CanReceive() bool {
	return s == StatusInProcess
}

// CanCancelInbound checks if a processed receipt can be reversed.
func (s Status) CanCancelInbound() bool {
	return s == StatusReceived
}

// ============================================================================
// DOCUMENT FLAGS & INBOUND TYPE
// ============================================================================

// DocStatus tracks completion of shipment paperwork (goods received note,
// donation certificate). Independent of the state machine.
type DocStatus int

const (
	DocPending  DocStatus = 0
	DocComplete DocStatus = 1
)

// InboundType classifies where an inbound shipment originates.
type InboundType int

const (
	InboundTypeNone           InboundType = 0
	InboundTypeOtherWarehouse InboundType = 1
	InboundTypeDonation       InboundType = 2
	InboundTypeSupplier       InboundType = 3
)

// ============================================================================
// TRACKING STATUS
// ============================================================================

// TrackingStatus is the per-line movement lifecycle.
type TrackingStatus int

const (
	TrackUnknown   TrackingStatus = 0
	TrackPreparing TrackingStatus = 1
	TrackInTransit TrackingStatus = 2
	TrackArrived   TrackingStatus = 3
	TrackCanceled  TrackingStatus = 4
)

func (t TrackingStatus) String() string {
	switch t {
	case TrackPreparing:
		return "PREPARING"
	case TrackInTransit:
		return "IN_TRANSIT"
	case TrackArrived:
		return "ARRIVED"
	case TrackCanceled:
		return "CANCELED"
	default:
		return "UNKNOWN"
	}
}

// CanDelete reports whether the line may still be removed. Deletion is
// refused in every later state.
func (t TrackingStatus) CanDelete() bool {
	return t == TrackPreparing
}

// CanEditQuantity reports whether the sent quantity is still writable.
func (t TrackingStatus) CanEditQuantity() bool {
	return t == TrackPreparing
}

// ============================================================================
// ENTITIES
// ============================================================================

// Outbound represents one dispatch event from an origin site.
type Outbound struct {
	ID           int64            `json:"id" db:"id"`
	SenderID     int64            `json:"sender_id" db:"sender_id"`
	SiteID       int64            `json:"site_id" db:"site_id"`
	ToSiteID     *int64           `json:"to_site_id,omitempty" db:"to_site_id"`
	RecipientID  *int64           `json:"recipient_id,omitempty" db:"recipient_id"`
	Date         *time.Time       `json:"date,omitempty" db:"date"`
	DeliveryDate *time.Time       `json:"delivery_date,omitempty" db:"delivery_date"`
	Status       Status           `json:"status" db:"status"`
	Comments     string           `json:"comments,omitempty" db:"comments"`
	Lifecycle    shared.Lifecycle `json:"lifecycle" db:"lifecycle"`
	CreatedBy    int64            `json:"created_by" db:"created_by"`
	CreatedAt    time.Time        `json:"created_at" db:"created_at"`
	UpdatedBy    int64            `json:"updated_by" db:"updated_by"`
	UpdatedAt    time.Time        `json:"updated_at" db:"updated_at"`
}

// Inbound represents one receipt event at a destination site.
type Inbound struct {
	ID          int64            `json:"id" db:"id"`
	SenderID    *int64           `json:"sender_id,omitempty" db:"sender_id"`
	SenderName  string           `json:"sender_name,omitempty" db:"sender_name"`
	FromSiteID  *int64           `json:"from_site_id,omitempty" db:"from_site_id"`
	SiteID      int64            `json:"site_id" db:"site_id"`
	ETA         *time.Time       `json:"eta,omitempty" db:"eta"`
	Date        *time.Time       `json:"date,omitempty" db:"date"` // actual receipt date
	RecipientID int64            `json:"recipient_id" db:"recipient_id"`
	Type        InboundType      `json:"type" db:"type"`
	Status      Status           `json:"status" db:"status"`
	GRNStatus   DocStatus        `json:"grn_status" db:"grn_status"`
	CertStatus  DocStatus        `json:"cert_status" db:"cert_status"`
	Comments    string           `json:"comments,omitempty" db:"comments"`
	Lifecycle   shared.Lifecycle `json:"lifecycle" db:"lifecycle"`
	CreatedBy   int64            `json:"created_by" db:"created_by"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`
	UpdatedBy   int64            `json:"updated_by" db:"updated_by"`
	UpdatedAt   time.Time        `json:"updated_at" db:"updated_at"`
}

// TrackingLine is one item-movement record, the join point between the
// ledger and the shipment headers.
type TrackingLine struct {
	ID               int64            `json:"id" db:"id"`
	ShippingOrgID    int64            `json:"shipping_org_id" db:"shipping_org_id"`
	TrackingNo       string           `json:"tracking_no,omitempty" db:"tracking_no"`
	Status           TrackingStatus   `json:"status" db:"status"`
	SourceEntryID    *int64           `json:"source_entry_id,omitempty" db:"source_entry_id"`
	DestEntryID      *int64           `json:"dest_entry_id,omitempty" db:"dest_entry_id"`
	ItemID           int64            `json:"item_id" db:"item_id"`
	PackID           int64            `json:"pack_id" db:"pack_id"`
	QuantitySent     float64          `json:"quantity_sent" db:"quantity_sent"`
	QuantityReceived *float64         `json:"quantity_received,omitempty" db:"quantity_received"`
	Currency         string           `json:"currency,omitempty" db:"currency"`
	PackValue        float64          `json:"pack_value" db:"pack_value"`
	ExpiryDate       *time.Time       `json:"expiry_date,omitempty" db:"expiry_date"`
	OriginBin        string           `json:"origin_bin,omitempty" db:"origin_bin"`
	DestBin          string           `json:"dest_bin,omitempty" db:"dest_bin"`
	OutboundID       *int64           `json:"outbound_id,omitempty" db:"outbound_id"`
	InboundID        *int64           `json:"inbound_id,omitempty" db:"inbound_id"`
	SupplyOrgID      int64            `json:"supply_org_id" db:"supply_org_id"`
	AdjustmentLineID *int64           `json:"adjustment_line_id,omitempty" db:"adjustment_line_id"`
	Comments         string           `json:"comments,omitempty" db:"comments"`
	Lifecycle        shared.Lifecycle `json:"lifecycle" db:"lifecycle"`
	CreatedBy        int64            `json:"created_by" db:"created_by"`
	CreatedAt        time.Time        `json:"created_at" db:"created_at"`
	UpdatedBy        int64            `json:"updated_by" db:"updated_by"`
	UpdatedAt        time.Time        `json:"updated_at" db:"updated_at"`
}

// IsComplete reports whether the line is ready for receipt: received
// quantity recorded and a destination bin resolved.
func (l TrackingLine) IsComplete() bool {
	return l.QuantityReceived != nil && l.DestBin != ""
}

// BinSelection carries the two-part destination bin as captured at the
// boundary: an explicit bin plus a typed free-text override. The override
// wins when present.
type BinSelection struct {
	Bin      string `json:"bin" validate:"max=16"`
	Override string `json:"override" validate:"max=16"`
}

// Normalize collapses the selection to a single bin label.
func (b BinSelection) Normalize() string {
	if b.Override != "" {
		return b.Override
	}
	return b.Bin
}

// ============================================================================
// ACTION AVAILABILITY
// ============================================================================

// Actions reports which status-gated operations are currently available,
// for callers deciding what to offer.
type Actions struct {
	CanEdit            bool `json:"can_edit"`
	CanSend            bool `json:"can_send"`
	CanReceive         bool `json:"can_receive"`
	CanConfirmReceived bool `json:"can_confirm_received"`
	CanCancel          bool `json:"can_cancel"`
}

// OutboundActions derives availability from an outbound status.
func OutboundActions(s Status) Actions {
	return Actions{
		CanEdit:            s.CanEdit(),
		CanSend:            s.CanSend(),
		CanConfirmReceived: s.CanConfirmReceived(),
		CanCancel:          s.CanCancelOutbound(),
	}
}

// InboundActions derives availability from an inbound status and the
// number of lines still missing a received quantity or destination bin.
func InboundActions(s Status, incompleteLines int) Actions {
	return Actions{
		CanEdit:    s.CanEdit(),
		CanReceive: s.CanReceive() && incompleteLines == 0,
		CanCancel:  s.CanCancelInbound(),
	}
}
