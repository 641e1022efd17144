package adjustment

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-relief/meridian/internal/platform/httpx"
)

// IntegrityNotifier schedules a background stock integrity scan after a
// close mutates ledger quantities. Best effort; a failed enqueue never
// fails the request.
type IntegrityNotifier interface {
	EnqueueIntegrityScan(ctx context.Context) error
}

// Handler wires HTTP endpoints for adjustments.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	notifier  IntegrityNotifier
	validator *validator.Validate
}

// NewHandler constructs the adjustment handler. notifier may be nil.
func NewHandler(logger *slog.Logger, service *Service, notifier IntegrityNotifier) *Handler {
	return &Handler{logger: logger, service: service, notifier: notifier, validator: validator.New()}
}

// MountRoutes registers adjustment routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.show)
	r.Get("/{id}/lines", h.listLines)
	r.Get("/{id}/label", h.headerLabel)
	r.Post("/{id}/close", h.close)
	r.Patch("/lines/{id}", h.recordCount)
	r.Get("/lines/{id}/label", h.lineLabel)
}

type createRequest struct {
	CreateCommand
	ActorID int64 `json:"actor_id" validate:"required,gt=0"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if !h.decode(w, r, &req) {
		return
	}
	req.CreateCommand.ActorID = req.ActorID
	a, err := h.service.Create(r.Context(), req.CreateCommand)
	if err != nil {
		h.fail(w, r, "create adjustment", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, a)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	siteID, err := strconv.ParseInt(r.URL.Query().Get("site_id"), 10, 64)
	if err != nil || siteID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Query", "site_id must be a positive integer")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	out, err := h.service.ListBySite(r.Context(), siteID, limit)
	if err != nil {
		h.fail(w, r, "list adjustments", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"adjustments": out})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	a, err := h.service.GetHeader(r.Context(), id)
	if err != nil {
		h.fail(w, r, "show adjustment", err)
		return
	}
	httpx.JSON(w, http.StatusOK, a)
}

func (h *Handler) listLines(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	lines, err := h.service.ListLines(r.Context(), id)
	if err != nil {
		h.fail(w, r, "list adjustment lines", err)
		return
	}
	uncounted, err := h.service.UncountedLines(r.Context(), id)
	if err != nil {
		h.fail(w, r, "list adjustment lines", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"lines": lines, "uncounted": uncounted})
}

func (h *Handler) headerLabel(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"label": h.service.RepresentHeader(r.Context(), id)})
}

func (h *Handler) lineLabel(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"label": h.service.RepresentLine(r.Context(), id)})
}

type closeRequest struct {
	ActorID int64 `json:"actor_id" validate:"required,gt=0"`
}

func (h *Handler) close(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req closeRequest
	if !h.decode(w, r, &req) {
		return
	}
	a, err := h.service.Close(r.Context(), CloseCommand{AdjustmentID: id, ActorID: req.ActorID})
	if err != nil {
		h.fail(w, r, "close adjustment", err)
		return
	}
	if h.notifier != nil {
		if err := h.notifier.EnqueueIntegrityScan(r.Context()); err != nil {
			h.logger.WarnContext(r.Context(), "integrity scan enqueue failed", slog.Any("error", err))
		}
	}
	httpx.JSON(w, http.StatusOK, a)
}

type recordCountRequest struct {
	RecordCountCommand
	ActorID int64 `json:"actor_id" validate:"required,gt=0"`
}

func (h *Handler) recordCount(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req recordCountRequest
	if !h.decode(w, r, &req) {
		return
	}
	req.RecordCountCommand.LineID = id
	req.RecordCountCommand.ActorID = req.ActorID
	line, err := h.service.RecordCount(r.Context(), req.RecordCountCommand)
	if err != nil {
		h.fail(w, r, "record count", err)
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

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.logger.ErrorContext(r.Context(), "adjustment handler", slog.String("op", op), slog.Any("error", err))
	httpx.RespondError(w, err)
}
