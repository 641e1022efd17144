package shipment

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-relief/meridian/internal/platform/httpx"
)

// Reconciler runs the receipt-side stock movements for inbound
// shipments. Implemented by the reconciliation engine; injected here to
// keep the dependency direction one way.
type Reconciler interface {
	ReceiveInbound(ctx context.Context, inboundID, actorID int64) (Inbound, error)
	CancelInbound(ctx context.Context, inboundID, actorID int64) (Inbound, error)
}

// Handler wires HTTP endpoints for shipments and tracking lines.
type Handler struct {
	logger     *slog.Logger
	service    *Service
	reconciler Reconciler
	validator  *validator.Validate
}

// NewHandler constructs the shipment handler.
func NewHandler(logger *slog.Logger, service *Service, reconciler Reconciler) *Handler {
	return &Handler{logger: logger, service: service, reconciler: reconciler, validator: validator.New()}
}

// MountRoutes registers shipment routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/outbound", func(r chi.Router) {
		r.Post("/", h.createOutbound)
		r.Get("/", h.listOutbound)
		r.Get("/{id}", h.showOutbound)
		r.Get("/{id}/lines", h.listOutboundLines)
		r.Get("/{id}/actions", h.outboundActions)
		r.Get("/{id}/label", h.outboundLabel)
		r.Post("/{id}/send", h.sendOutbound)
		r.Post("/{id}/confirm-received", h.confirmReceived)
		r.Post("/{id}/cancel", h.cancelOutbound)
	})
	r.Route("/inbound", func(r chi.Router) {
		r.Post("/", h.createInbound)
		r.Get("/", h.listInbound)
		r.Get("/{id}", h.showInbound)
		r.Get("/{id}/lines", h.listInboundLines)
		r.Get("/{id}/actions", h.inboundActions)
		r.Get("/{id}/label", h.inboundLabel)
		r.Patch("/{id}/documents", h.setDocuments)
		r.Post("/{id}/match", h.matchInbound)
		r.Post("/{id}/receive", h.receiveInbound)
		r.Post("/{id}/cancel", h.cancelInbound)
	})
	r.Route("/lines", func(r chi.Router) {
		r.Post("/", h.createLine)
		r.Get("/{id}", h.showLine)
		r.Patch("/{id}", h.updateLine)
		r.Delete("/{id}", h.deleteLine)
		r.Post("/{id}/receipt", h.recordReceipt)
	})
}

type actorRequest struct {
	ActorID int64 `json:"actor_id" validate:"required,gt=0"`
}

type createOutboundRequest struct {
	CreateOutboundCommand
	ActorID int64 `json:"actor_id" validate:"required,gt=0"`
}

func (h *Handler) createOutbound(w http.ResponseWriter, r *http.Request) {
	var req createOutboundRequest
	if !h.decode(w, r, &req) {
		return
	}
	req.CreateOutboundCommand.ActorID = req.ActorID
	o, err := h.service.CreateOutbound(r.Context(), req.CreateOutboundCommand)
	if err != nil {
		h.fail(w, r, "create outbound", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, o)
}

type createInboundRequest struct {
	CreateInboundCommand
	ActorID int64 `json:"actor_id" validate:"required,gt=0"`
}

func (h *Handler) createInbound(w http.ResponseWriter, r *http.Request) {
	var req createInboundRequest
	if !h.decode(w, r, &req) {
		return
	}
	req.CreateInboundCommand.ActorID = req.ActorID
	in, err := h.service.CreateInbound(r.Context(), req.CreateInboundCommand)
	if err != nil {
		h.fail(w, r, "create inbound", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, in)
}

func (h *Handler) listOutbound(w http.ResponseWriter, r *http.Request) {
	siteID, ok := h.queryID(w, r, "site_id")
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	out, err := h.service.ListOutboundBySite(r.Context(), siteID, limit)
	if err != nil {
		h.fail(w, r, "list outbound", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"shipments": out})
}

func (h *Handler) listInbound(w http.ResponseWriter, r *http.Request) {
	siteID, ok := h.queryID(w, r, "site_id")
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	in, err := h.service.ListInboundBySite(r.Context(), siteID, limit)
	if err != nil {
		h.fail(w, r, "list inbound", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"shipments": in})
}

func (h *Handler) showOutbound(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	o, err := h.service.GetOutbound(r.Context(), id)
	if err != nil {
		h.fail(w, r, "show outbound", err)
		return
	}
	httpx.JSON(w, http.StatusOK, o)
}

func (h *Handler) showInbound(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	in, err := h.service.GetInbound(r.Context(), id)
	if err != nil {
		h.fail(w, r, "show inbound", err)
		return
	}
	httpx.JSON(w, http.StatusOK, in)
}

func (h *Handler) listOutboundLines(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	lines, err := h.service.ListOutboundLines(r.Context(), id)
	if err != nil {
		h.fail(w, r, "list outbound lines", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"lines": lines})
}

func (h *Handler) listInboundLines(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	lines, err := h.service.ListInboundLines(r.Context(), id)
	if err != nil {
		h.fail(w, r, "list inbound lines", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"lines": lines})
}

func (h *Handler) outboundActions(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	actions, err := h.service.OutboundActionsFor(r.Context(), id)
	if err != nil {
		h.fail(w, r, "outbound actions", err)
		return
	}
	httpx.JSON(w, http.StatusOK, actions)
}

func (h *Handler) inboundActions(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	actions, err := h.service.InboundActionsFor(r.Context(), id)
	if err != nil {
		h.fail(w, r, "inbound actions", err)
		return
	}
	httpx.JSON(w, http.StatusOK, actions)
}

func (h *Handler) outboundLabel(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"label": h.service.RepresentOutbound(r.Context(), id)})
}

func (h *Handler) inboundLabel(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"label": h.service.RepresentInbound(r.Context(), id)})
}

func (h *Handler) sendOutbound(w http.ResponseWriter, r *http.Request) {
	h.outboundTransition(w, r, "send outbound", h.service.SendOutbound)
}

func (h *Handler) confirmReceived(w http.ResponseWriter, r *http.Request) {
	h.outboundTransition(w, r, "confirm received", h.service.ConfirmOutboundReceived)
}

func (h *Handler) cancelOutbound(w http.ResponseWriter, r *http.Request) {
	h.outboundTransition(w, r, "cancel outbound", h.service.CancelOutbound)
}

func (h *Handler) outboundTransition(w http.ResponseWriter, r *http.Request, op string, fn func(context.Context, int64, int64) (Outbound, error)) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req actorRequest
	if !h.decode(w, r, &req) {
		return
	}
	o, err := fn(r.Context(), id, req.ActorID)
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	httpx.JSON(w, http.StatusOK, o)
}

type setDocumentsRequest struct {
	GRNStatus  *DocStatus `json:"grn_status,omitempty" validate:"omitempty,gte=0,lte=1"`
	CertStatus *DocStatus `json:"cert_status,omitempty" validate:"omitempty,gte=0,lte=1"`
	ActorID    int64      `json:"actor_id" validate:"required,gt=0"`
}

func (h *Handler) setDocuments(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req setDocumentsRequest
	if !h.decode(w, r, &req) {
		return
	}
	in, err := h.service.SetDocuments(r.Context(), SetDocumentsCommand{
		InboundID:  id,
		GRNStatus:  req.GRNStatus,
		CertStatus: req.CertStatus,
		ActorID:    req.ActorID,
	})
	if err != nil {
		h.fail(w, r, "set documents", err)
		return
	}
	httpx.JSON(w, http.StatusOK, in)
}

type matchRequest struct {
	OutboundID int64 `json:"outbound_id" validate:"required,gt=0"`
	ActorID    int64 `json:"actor_id" validate:"required,gt=0"`
}

func (h *Handler) matchInbound(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req matchRequest
	if !h.decode(w, r, &req) {
		return
	}
	matched, err := h.service.MatchInbound(r.Context(), MatchCommand{
		InboundID:  id,
		OutboundID: req.OutboundID,
		ActorID:    req.ActorID,
	})
	if err != nil {
		h.fail(w, r, "match inbound", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]int{"matched_lines": matched})
}

func (h *Handler) receiveInbound(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req actorRequest
	if !h.decode(w, r, &req) {
		return
	}
	in, err := h.reconciler.ReceiveInbound(r.Context(), id, req.ActorID)
	if err != nil {
		h.fail(w, r, "receive inbound", err)
		return
	}
	httpx.JSON(w, http.StatusOK, in)
}

func (h *Handler) cancelInbound(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req actorRequest
	if !h.decode(w, r, &req) {
		return
	}
	in, err := h.reconciler.CancelInbound(r.Context(), id, req.ActorID)
	if err != nil {
		h.fail(w, r, "cancel inbound", err)
		return
	}
	httpx.JSON(w, http.StatusOK, in)
}

type createLineRequest struct {
	CreateLineCommand
	ActorID int64 `json:"actor_id" validate:"required,gt=0"`
}

func (h *Handler) createLine(w http.ResponseWriter, r *http.Request) {
	var req createLineRequest
	if !h.decode(w, r, &req) {
		return
	}
	req.CreateLineCommand.ActorID = req.ActorID
	line, err := h.service.AddLine(r.Context(), req.CreateLineCommand)
	if err != nil {
		h.fail(w, r, "create line", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, line)
}

func (h *Handler) showLine(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	line, err := h.service.GetLine(r.Context(), id)
	if err != nil {
		h.fail(w, r, "show line", err)
		return
	}
	httpx.JSON(w, http.StatusOK, line)
}

type updateLineRequest struct {
	UpdateLineCommand
	ActorID int64 `json:"actor_id" validate:"required,gt=0"`
}

func (h *Handler) updateLine(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req updateLineRequest
	if !h.decode(w, r, &req) {
		return
	}
	req.UpdateLineCommand.LineID = id
	req.UpdateLineCommand.ActorID = req.ActorID
	line, err := h.service.UpdateLine(r.Context(), req.UpdateLineCommand)
	if err != nil {
		h.fail(w, r, "update line", err)
		return
	}
	httpx.JSON(w, http.StatusOK, line)
}

func (h *Handler) deleteLine(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req actorRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.service.DeleteLine(r.Context(), id, req.ActorID); err != nil {
		h.fail(w, r, "delete line", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type recordReceiptRequest struct {
	QuantityReceived float64      `json:"quantity_received" validate:"gte=0"`
	DestBin          BinSelection `json:"dest_bin"`
	ActorID          int64        `json:"actor_id" validate:"required,gt=0"`
}

func (h *Handler) recordReceipt(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req recordReceiptRequest
	if !h.decode(w, r, &req) {
		return
	}
	line, err := h.service.RecordReceipt(r.Context(), RecordReceiptCommand{
		LineID:           id,
		QuantityReceived: req.QuantityReceived,
		DestBin:          req.DestBin,
		ActorID:          req.ActorID,
	})
	if err != nil {
		h.fail(w, r, "record receipt", err)
		return
	}
	httpx.JSON(w, http.StatusOK, line)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpx.DecodeJSON(r, dst); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request Body", err.Error())
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return false
	}
	return true
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Identifier", "path id must be a positive integer")
		return 0, false
	}
	return id, true
}

func (h *Handler) queryID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.URL.Query().Get(name), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Query", name+" must be a positive integer")
		return 0, false
	}
	return id, true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.logger.ErrorContext(r.Context(), "shipment handler", slog.String("op", op), slog.Any("error", err))
	httpx.RespondError(w, err)
}
