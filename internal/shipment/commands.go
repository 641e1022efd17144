package shipment

import "time"

// Command structs carry a validated mutation plus the acting user. The
// actor identifier is always explicit; nothing here reads ambient
// session state.

// CreateOutboundCommand opens a new outbound shipment in preparation.
type CreateOutboundCommand struct {
	SenderID     int64      `json:"sender_id" validate:"required,gt=0"`
	SiteID       int64      `json:"site_id" validate:"required,gt=0"`
	ToSiteID     *int64     `json:"to_site_id,omitempty" validate:"omitempty,gt=0"`
	RecipientID  *int64     `json:"recipient_id,omitempty" validate:"omitempty,gt=0"`
	DeliveryDate *time.Time `json:"delivery_date,omitempty"`
	Comments     string     `json:"comments,omitempty" validate:"max=512"`
	ActorID      int64      `json:"-"`
}

// CreateInboundCommand opens a new inbound shipment in preparation.
type CreateInboundCommand struct {
	SenderID    *int64      `json:"sender_id,omitempty" validate:"omitempty,gt=0"`
	SenderName  string      `json:"sender_name,omitempty" validate:"max=128"`
	FromSiteID  *int64      `json:"from_site_id,omitempty" validate:"omitempty,gt=0"`
	SiteID      int64       `json:"site_id" validate:"required,gt=0"`
	ETA         *time.Time  `json:"eta,omitempty"`
	RecipientID int64       `json:"recipient_id" validate:"required,gt=0"`
	Type        InboundType `json:"type" validate:"gte=0,lte=3"`
	Comments    string      `json:"comments,omitempty" validate:"max=512"`
	ActorID     int64       `json:"-"`
}

// CreateLineCommand adds a tracking line to an outbound or inbound
// shipment still in preparation. Exactly one of OutboundID or InboundID
// must be set. When SourceEntryID is present the item identity fields are
// copied from the ledger entry and any values supplied here for them are
// ignored.
type CreateLineCommand struct {
	OutboundID    *int64       `json:"outbound_id,omitempty" validate:"omitempty,gt=0"`
	InboundID     *int64       `json:"inbound_id,omitempty" validate:"omitempty,gt=0"`
	TrackingNo    string       `json:"tracking_no,omitempty" validate:"max=64"`
	SourceEntryID *int64       `json:"source_entry_id,omitempty" validate:"omitempty,gt=0"`
	ItemID        int64        `json:"item_id,omitempty" validate:"omitempty,gt=0"`
	PackID        int64        `json:"pack_id" validate:"required,gt=0"`
	QuantitySent  float64      `json:"quantity_sent" validate:"required,gt=0"`
	Currency      string       `json:"currency,omitempty" validate:"omitempty,len=3"`
	PackValue     float64      `json:"pack_value,omitempty" validate:"gte=0"`
	ExpiryDate    *time.Time   `json:"expiry_date,omitempty"`
	OriginBin     string       `json:"origin_bin,omitempty" validate:"max=16"`
	SupplyOrgID   int64        `json:"supply_org_id,omitempty" validate:"omitempty,gt=0"`
	DestBin       BinSelection `json:"dest_bin"`
	Comments      string       `json:"comments,omitempty" validate:"max=512"`
	ActorID       int64        `json:"-"`
}

// UpdateLineCommand mutates a preparing line. Nil fields are left
// untouched; a non-nil QuantitySent re-runs the ledger debit protocol.
type UpdateLineCommand struct {
	LineID       int64         `json:"-"`
	TrackingNo   *string       `json:"tracking_no,omitempty" validate:"omitempty,max=64"`
	QuantitySent *float64      `json:"quantity_sent,omitempty" validate:"omitempty,gt=0"`
	DestBin      *BinSelection `json:"dest_bin,omitempty"`
	Comments     *string       `json:"comments,omitempty" validate:"omitempty,max=512"`
	ActorID      int64         `json:"-"`
}

// RecordReceiptCommand captures the counted quantity and resolved
// destination bin for one line of an inbound shipment awaiting receipt.
type RecordReceiptCommand struct {
	LineID           int64        `json:"-"`
	QuantityReceived float64      `json:"quantity_received" validate:"gte=0"`
	DestBin          BinSelection `json:"dest_bin"`
	ActorID          int64        `json:"-"`
}

// SetDocumentsCommand updates the paperwork flags on an inbound shipment.
type SetDocumentsCommand struct {
	InboundID  int64      `json:"-"`
	GRNStatus  *DocStatus `json:"grn_status,omitempty" validate:"omitempty,gte=0,lte=1"`
	CertStatus *DocStatus `json:"cert_status,omitempty" validate:"omitempty,gte=0,lte=1"`
	ActorID    int64      `json:"-"`
}

// MatchCommand links the in-transit lines of a sent outbound shipment to
// an inbound shipment raised at the destination.
type MatchCommand struct {
	InboundID  int64 `json:"-"`
	OutboundID int64 `json:"outbound_id" validate:"required,gt=0"`
	ActorID    int64 `json:"-"`
}
