package audit

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/bemobi-ops/ops-console/internal/platform/db"
	"github.com/bemobi-ops/ops-console/internal/query"
)

// Page sizes of the timeline.
const (
	DefaultPageSize = 20
	MaxPageSize     = 50
	// ExportLimit caps the rows written by Export.
	ExportLimit = 5000
)

const timelineBase = `SELECT l.occurred_at, l.actor_id, COALESCE(u.email, '') AS actor_email, l.action, l.entity, l.entity_id, l.meta
FROM audit_logs l LEFT JOIN users u ON u.id = l.actor_id WHERE 1=1`

var timelineSort = query.Sort{
	Fields:   map[string]string{"occurred_at": "l.occurred_at"},
	Default:  "occurred_at",
	Tiebreak: "l.id",
}

// Service reads the audit trail written by the worker.
type Service struct {
	db      db.Querier
	timeout time.Duration
}

// NewService creates the audit timeline service.
func NewService(q db.Querier, timeout time.Duration) *Service {
	return &Service{db: q, timeout: timeout}
}

func filtersOf(f TimelineFilters) []query.Filter {
	return []query.Filter{
		query.Between("l.occurred_at", f.From, f.To),
		query.Equal("l.actor_id", query.Int, f.ActorID),
		query.Equal("l.action", query.Text, f.Action),
		query.Equal("l.entity", query.Text, f.Entity),
		query.Equal("l.entity_id", query.Text, f.EntityID),
	}
}

// Statement renders the query for one timeline page. It asks for one row
// more than the page size to learn whether a next page exists.
func Statement(f TimelineFilters) (query.Statement, PagingInfo) {
	pageSize := f.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	page := f.Page
	if page <= 0 {
		page = 1
	}
	stmt := query.New(timelineBase).
		Where(filtersOf(f)...).
		OrderBy(timelineSort, "", "desc").
		Limit(pageSize + 1).
		Offset((page - 1) * pageSize).
		Build()
	return stmt, PagingInfo{Page: page, PageSize: pageSize}
}

// Timeline returns one page of audit records, newest first.
func (s *Service) Timeline(ctx context.Context, f TimelineFilters) (Result, error) {
	stmt, paging := Statement(f)
	rows, err := s.fetch(ctx, stmt)
	if err != nil {
		return Result{}, err
	}
	if len(rows) > paging.PageSize {
		rows = rows[:paging.PageSize]
		paging.HasNext = true
		paging.NextPage = paging.Page + 1
	}
	if paging.Page > 1 {
		paging.PrevPage = paging.Page - 1
	}
	return Result{Rows: rows, Paging: paging}, nil
}

// Export returns every record matching f up to ExportLimit, newest first.
func (s *Service) Export(ctx context.Context, f TimelineFilters) ([]TimelineRow, error) {
	out := make([]TimelineRow, 0)
	for offset := 0; offset < ExportLimit; offset += query.MaxLimit {
		stmt := query.New(timelineBase).
			Where(filtersOf(f)...).
			OrderBy(timelineSort, "", "desc").
			Limit(query.MaxLimit).
			Offset(offset).
			Build()
		rows, err := s.fetch(ctx, stmt)
		if err != nil {
			return nil, err
		}
		out = append(out, rows...)
		if len(rows) < query.MaxLimit {
			break
		}
	}
	if len(out) > ExportLimit {
		out = out[:ExportLimit]
	}
	return out, nil
}

// logRecord is one row of timelineBase.
type logRecord struct {
	OccurredAt time.Time      `db:"occurred_at"`
	ActorID    int64          `db:"actor_id"`
	ActorEmail string         `db:"actor_email"`
	Action     string         `db:"action"`
	Entity     string         `db:"entity"`
	EntityID   string         `db:"entity_id"`
	Meta       map[string]any `db:"meta"`
}

func (r logRecord) row() TimelineRow {
	return TimelineRow{
		At:         r.OccurredAt,
		ActorID:    r.ActorID,
		ActorEmail: r.ActorEmail,
		Action:     r.Action,
		Entity:     r.Entity,
		EntityID:   r.EntityID,
		Meta:       r.Meta,
	}
}

func (s *Service) fetch(ctx context.Context, stmt query.Statement) ([]TimelineRow, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	rows, err := s.db.Query(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, db.Classify("audit timeline", err)
	}
	records, err := pgx.CollectRows(rows, pgx.RowToStructByName[logRecord])
	if err != nil {
		return nil, db.Classify("audit timeline", err)
	}
	out := make([]TimelineRow, len(records))
	for i, rec := range records {
		out[i] = rec.row()
	}
	return out, nil
}
