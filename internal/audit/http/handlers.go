package audithttp

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bemobi-ops/ops-console/internal/audit"
	"github.com/bemobi-ops/ops-console/internal/platform/httpx"
	"github.com/bemobi-ops/ops-console/internal/query"
	"github.com/bemobi-ops/ops-console/internal/rbac"
	"github.com/bemobi-ops/ops-console/internal/shared"
)

const (
	defaultDateRange = 7 * 24 * time.Hour
	maxDateRange     = 90 * 24 * time.Hour
)

// TimelineService defines the business contract for timeline data.
type TimelineService interface {
	Timeline(ctx context.Context, filters audit.TimelineFilters) (audit.Result, error)
	Export(ctx context.Context, filters audit.TimelineFilters) ([]audit.TimelineRow, error)
}

// Handler serves the audit trail of user-management mutations.
type Handler struct {
	logger  *slog.Logger
	service TimelineService
	rbac    rbac.Middleware
	now     func() time.Time
}

// NewHandler builds the audit trail handler.
func NewHandler(logger *slog.Logger, service TimelineService, mw rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, rbac: mw, now: time.Now}
}

func (h *Handler) handleTimeline(w http.ResponseWriter, r *http.Request) {
	filters, err := h.parseFilters(r)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	result, err := h.service.Timeline(r.Context(), filters)
	if err != nil {
		h.logger.Error("load audit timeline", httpx.ErrorAttrs(err)...)
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	filters, err := h.parseFilters(r)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	rows, err := h.service.Export(r.Context(), filters)
	if err != nil {
		h.logger.Error("export audit timeline", httpx.ErrorAttrs(err)...)
		httpx.RespondError(w, r, err)
		return
	}
	body, err := audit.WriteCSV(rows)
	if err != nil {
		h.logger.Error("encode audit csv", slog.Any("error", err))
		httpx.RespondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="audit-trail.csv"`)
	if _, err := w.Write(body); err != nil {
		h.logger.Warn("write csv", slog.Any("error", err))
	}
}

// parseFilters defaults the window to the last seven days ending today and
// rejects windows longer than ninety days.
func (h *Handler) parseFilters(r *http.Request) (audit.TimelineFilters, error) {
	values := r.URL.Query()
	now := h.now().UTC()

	toStr := strings.TrimSpace(values.Get("to"))
	if toStr == "" {
		toStr = now.Format(query.DateLayout)
	}
	to, err := time.Parse(query.DateLayout, toStr)
	if err != nil {
		return audit.TimelineFilters{}, shared.ValidationError("to must be YYYY-MM-DD")
	}
	fromStr := strings.TrimSpace(values.Get("from"))
	if fromStr == "" {
		fromStr = to.Add(-defaultDateRange).Format(query.DateLayout)
	}
	from, err := time.Parse(query.DateLayout, fromStr)
	if err != nil {
		return audit.TimelineFilters{}, shared.ValidationError("from must be YYYY-MM-DD")
	}
	if from.After(to) {
		return audit.TimelineFilters{}, shared.ValidationError("from must not be after to")
	}
	if to.Sub(from) > maxDateRange {
		return audit.TimelineFilters{}, shared.ValidationError("date range must not exceed 90 days")
	}

	actor := strings.TrimSpace(values.Get("actor_id"))
	if actor != "" {
		if id, err := strconv.ParseInt(actor, 10, 64); err != nil || id <= 0 {
			return audit.TimelineFilters{}, shared.ValidationError("actor_id must be a positive integer")
		}
	}
	page, err := positive(values.Get("page"), 1)
	if err != nil {
		return audit.TimelineFilters{}, shared.ValidationError("page must be a positive integer")
	}
	pageSize, err := positive(values.Get("page_size"), audit.DefaultPageSize)
	if err != nil {
		return audit.TimelineFilters{}, shared.ValidationError("page_size must be a positive integer")
	}

	return audit.TimelineFilters{
		From:     from.Format(query.DateLayout),
		To:       to.Format(query.DateLayout),
		ActorID:  actor,
		Action:   strings.TrimSpace(values.Get("action")),
		Entity:   strings.TrimSpace(values.Get("entity")),
		EntityID: strings.TrimSpace(values.Get("entity_id")),
		Page:     page,
		PageSize: pageSize,
	}, nil
}

func positive(raw string, fallback int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, strconv.ErrSyntax
	}
	return n, nil
}
