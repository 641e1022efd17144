package ledger

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"github.com/meridian-relief/meridian/internal/platform/httpx"
)

// Handler wires HTTP endpoints for the stock ledger.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs the ledger handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers stock routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.siteOverview)
	r.Post("/receive", h.receiveStock)
	r.Get("/filter", h.inventoryFilter)
	r.Get("/{id}", h.showEntry)
}

type receiveStockRequest struct {
	SiteID      int64    `json:"site_id" validate:"required,gt=0"`
	ItemID      int64    `json:"item_id" validate:"required,gt=0"`
	PackID      int64    `json:"pack_id" validate:"required,gt=0"`
	Quantity    float64  `json:"quantity" validate:"required,gt=0"`
	PackValue   float64  `json:"pack_value" validate:"gte=0"`
	Currency    string   `json:"currency" validate:"omitempty,len=3"`
	ExpiryDate  *string  `json:"expiry_date,omitempty"`
	Bin         string   `json:"bin" validate:"max=16"`
	SupplyOrgID int64    `json:"supply_org_id"`
	TrackingNo  string   `json:"tracking_no" validate:"max=16"`
	ActorID     int64    `json:"actor_id" validate:"required,gt=0"`
}

type stockEntryResponse struct {
	StockEntry
	TotalValue float64 `json:"total_value"`
	Label      string  `json:"label,omitempty"`
}

type siteOverviewResponse struct {
	SiteID     int64                `json:"site_id"`
	Entries    []stockEntryResponse `json:"entries"`
	TotalValue float64              `json:"total_value"`
}

func (h *Handler) receiveStock(w http.ResponseWriter, r *http.Request) {
	var req receiveStockRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	input := ReceiveStockInput{
		SiteID:      req.SiteID,
		ItemID:      req.ItemID,
		PackID:      req.PackID,
		Quantity:    req.Quantity,
		PackValue:   req.PackValue,
		Currency:    req.Currency,
		Bin:         req.Bin,
		SupplyOrgID: req.SupplyOrgID,
		TrackingNo:  req.TrackingNo,
		ActorID:     req.ActorID,
	}
	if req.ExpiryDate != nil && *req.ExpiryDate != "" {
		t, err := time.Parse("2006-01-02", *req.ExpiryDate)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "expiry_date must be YYYY-MM-DD")
			return
		}
		input.ExpiryDate = &t
	}
	entry, err := h.service.ReceiveStock(r.Context(), input)
	if err != nil {
		h.logger.Warn("receive stock", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, stockEntryResponse{StockEntry: entry, TotalValue: entry.TotalValue()})
}

func (h *Handler) siteOverview(w http.ResponseWriter, r *http.Request) {
	siteID, err := strconv.ParseInt(r.URL.Query().Get("site_id"), 10, 64)
	if err != nil || siteID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "site_id is required")
		return
	}
	entries, err := h.service.SiteOverview(r.Context(), siteID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	resp := siteOverviewResponse{SiteID: siteID, Entries: make([]stockEntryResponse, len(entries))}

	g, ctx := errgroup.WithContext(r.Context())
	g.SetLimit(4)
	for i := range entries {
		g.Go(func() error {
			resp.Entries[i] = stockEntryResponse{
				StockEntry: entries[i],
				TotalValue: entries[i].TotalValue(),
				Label:      h.service.RepresentEntry(ctx, entries[i].ID),
			}
			return nil
		})
	}
	_ = g.Wait()
	for _, e := range resp.Entries {
		resp.TotalValue += e.TotalValue
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) inventoryFilter(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	siteID, err := strconv.ParseInt(q.Get("site_id"), 10, 64)
	if err != nil || siteID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "site_id is required")
		return
	}
	var exclude *int64
	if s := q.Get("exclude_item_id"); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "exclude_item_id must be numeric")
			return
		}
		exclude = &id
	}
	ids, err := h.service.PrepareInventoryFilter(r.Context(), siteID, exclude)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"site_id": siteID, "item_ids": ids})
}

func (h *Handler) showEntry(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "id must be numeric")
		return
	}
	entry, err := h.service.GetEntry(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, stockEntryResponse{
		StockEntry: entry,
		TotalValue: entry.TotalValue(),
		Label:      h.service.RepresentEntry(r.Context(), id),
	})
}
