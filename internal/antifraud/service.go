// Package antifraud serves per-document lookups over the partner fraud
// prevention datasets.
package antifraud

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/bemobi-ops/ops-console/internal/allowlist"
	"github.com/bemobi-ops/ops-console/internal/platform/db"
	"github.com/bemobi-ops/ops-console/internal/query"
	"github.com/bemobi-ops/ops-console/internal/redact"
	"github.com/bemobi-ops/ops-console/internal/shared"
)

// DefaultTimeout bounds a dataset query when none is configured.
const DefaultTimeout = 20 * time.Second

const endpoint = "antifraude"

var datasetSort = query.Sort{
	Fields:  map[string]string{"created_at": "created_at"},
	Default: "created_at",
}

// QueryObserver records query latency.
type QueryObserver interface {
	ObserveQuery(endpoint string, elapsed time.Duration, err error)
}

// SearchRequest selects one dataset and one customer document.
type SearchRequest struct {
	Table     string `json:"table" validate:"required"`
	Document  string `json:"document" validate:"required"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Sort      string `json:"sort"`
	Dir       string `json:"dir"`
	Page      int    `json:"page" validate:"gte=0"`
	PerPage   int    `json:"per_page" validate:"gte=0"`
}

// SearchResult carries redacted rows and the filters that were dropped.
type SearchResult struct {
	Rows       []redact.Row
	Skipped    []query.Skip
	Pagination shared.Pagination
}

// Service runs allowlisted dataset lookups.
type Service struct {
	db       db.Querier
	tables   *allowlist.Registry
	redactor *redact.Redactor
	timeout  time.Duration
	metrics  QueryObserver
	logger   *slog.Logger
}

// NewService constructs a Service over the fixed antifraud allowlist.
// metrics may be nil.
func NewService(q db.Querier, timeout time.Duration, metrics QueryObserver, logger *slog.Logger) *Service {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		db:       q,
		tables:   allowlist.Antifraud(),
		redactor: redact.New(redact.AntifraudFields...),
		timeout:  timeout,
		metrics:  metrics,
		logger:   logger,
	}
}

// Datasets lists the logical dataset names callers may query.
func (s *Service) Datasets() []string {
	return s.tables.Names()
}

// Statement validates req and renders its query. The dataset is resolved
// against the allowlist before anything else is built.
func (s *Service) Statement(req SearchRequest) (query.Statement, shared.Pagination, error) {
	table, err := s.tables.Resolve(req.Table)
	if err != nil {
		return query.Statement{}, shared.Pagination{}, err
	}
	document := strings.TrimSpace(req.Document)
	if document == "" {
		return query.Statement{}, shared.Pagination{}, shared.ValidationError("document is required")
	}
	page := shared.NewPagination(req.Page, req.PerPage, 0)
	stmt := query.New(`SELECT * FROM `+table.Ident()+` WHERE customer_document = $1`, document).
		Where(query.Between("created_at", req.StartDate, req.EndDate)).
		OrderBy(datasetSort, req.Sort, req.Dir).
		Paginate(page).
		Build()
	return stmt, page, nil
}

// Search runs the lookup and redacts the result. Zero rows is not an error.
func (s *Service) Search(ctx context.Context, req SearchRequest) (*SearchResult, error) {
	stmt, page, err := s.Statement(req)
	if err != nil {
		return nil, err
	}
	if len(stmt.Skipped) > 0 {
		s.logger.Warn("antifraud filters skipped", slog.String("table", req.Table), slog.Any("skipped", stmt.Skipped))
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	start := time.Now()
	rows, err := db.QueryMaps(ctx, s.db, "antifraud query", stmt.SQL, stmt.Args...)
	if s.metrics != nil {
		s.metrics.ObserveQuery(endpoint, time.Since(start), err)
	}
	if err != nil {
		return nil, err
	}
	return &SearchResult{
		Rows:       s.redactor.Apply(rows),
		Skipped:    stmt.Skipped,
		Pagination: page,
	}, nil
}
