// Package payments serves the GMA and POS-negado card payment searches.
package payments

import (
	"context"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bemobi-ops/ops-console/internal/allowlist"
	"github.com/bemobi-ops/ops-console/internal/platform/db"
	"github.com/bemobi-ops/ops-console/internal/query"
	"github.com/bemobi-ops/ops-console/internal/redact"
	"github.com/bemobi-ops/ops-console/internal/shared"
)

// DefaultTimeout bounds a payment query when none is configured.
const DefaultTimeout = 20 * time.Second

// JoinPolicy decides how transactions meet their card reference.
type JoinPolicy int

const (
	// JoinStrict drops transactions without a card reference.
	JoinStrict JoinPolicy = iota
	// JoinOptional keeps them; card_matched is false and the card columns
	// are null for those rows.
	JoinOptional
)

// Source describes one payment search.
type Source struct {
	Name         string
	Capability   string
	Join         JoinPolicy
	Transactions allowlist.Table
	Cards        allowlist.Table
}

const selectColumns = `t.id, t.nsu, t.authorization_code, t.amount, t.status, t.merchant_id, t.created_at, t.card_token,
	c.bin AS card_bin, c.last4 AS card_last4, c.brand AS card_brand, c.holder_document`

// base renders the fixed part of the statement. The join is decided here,
// once per source.
func (s Source) base() string {
	join, matched := "INNER JOIN", "TRUE"
	if s.Join == JoinOptional {
		join, matched = "LEFT JOIN", "(c.card_token IS NOT NULL)"
	}
	return `SELECT ` + selectColumns + `, ` + matched + ` AS card_matched FROM ` +
		s.Transactions.Ident() + ` t ` + join + ` ` + s.Cards.Ident() + ` c ON c.card_token = t.card_token WHERE 1=1`
}

var paymentSort = query.Sort{
	Fields: map[string]string{
		"created_at": "t.created_at",
		"amount":     "t.amount",
		"nsu":        "t.nsu",
	},
	Default: "created_at",
}

// ListParams are the optional filters of a payment search, as raw strings.
type ListParams struct {
	StartDate       string
	EndDate         string
	Amount          string
	AmountTolerance string
	NSU             string
	NSUMode         string
	AuthCode        string
	AuthCodeMode    string
	BIN             string
	Last4           string
	Status          string
	MerchantID      string
	Sort            string
	Dir             string
	Page            int
	PerPage         int
}

// ParamsFromQuery reads ListParams from URL query values. Unparseable page
// numbers fall back to defaults.
func ParamsFromQuery(v url.Values) ListParams {
	page, _ := strconv.Atoi(v.Get("page"))
	perPage, _ := strconv.Atoi(v.Get("per_page"))
	return ListParams{
		StartDate:       v.Get("start_date"),
		EndDate:         v.Get("end_date"),
		Amount:          v.Get("amount"),
		AmountTolerance: v.Get("amount_tolerance"),
		NSU:             v.Get("nsu"),
		NSUMode:         v.Get("nsu_mode"),
		AuthCode:        v.Get("authorization_code"),
		AuthCodeMode:    v.Get("authorization_code_mode"),
		BIN:             v.Get("bin"),
		Last4:           v.Get("last4"),
		Status:          v.Get("status"),
		MerchantID:      v.Get("merchant_id"),
		Sort:            v.Get("sort"),
		Dir:             v.Get("dir"),
		Page:            page,
		PerPage:         perPage,
	}
}

func (p ListParams) filters() []query.Filter {
	return []query.Filter{
		query.Between("t.created_at", p.StartDate, p.EndDate),
		query.Amount("t.amount", p.Amount, p.AmountTolerance),
		query.Match("t.nsu", p.NSU, query.ParseMatchMode(p.NSUMode)),
		query.Match("t.authorization_code", p.AuthCode, query.ParseMatchMode(p.AuthCodeMode)),
		query.Equal("c.bin", query.Text, p.BIN),
		query.Equal("c.last4", query.Text, p.Last4),
		query.Equal("t.status", query.Text, strings.ToUpper(p.Status)),
		query.Equal("t.merchant_id", query.Int, p.MerchantID),
	}
}

// QueryObserver records query latency.
type QueryObserver interface {
	ObserveQuery(endpoint string, elapsed time.Duration, err error)
}

// ListResult carries a page of redacted payments.
type ListResult struct {
	Rows       []redact.Row
	Skipped    []query.Skip
	Pagination shared.Pagination
}

// Service runs payment searches.
type Service struct {
	db       db.Querier
	sources  *allowlist.Registry
	redactor *redact.Redactor
	timeout  time.Duration
	metrics  QueryObserver
	logger   *slog.Logger
}

// NewService constructs a Service. metrics may be nil.
func NewService(q db.Querier, timeout time.Duration, metrics QueryObserver, logger *slog.Logger) *Service {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		db:       q,
		sources:  allowlist.Payments(),
		redactor: redact.New(redact.PaymentFields...),
		timeout:  timeout,
		metrics:  metrics,
		logger:   logger,
	}
}

// Source resolves a source name. GMA joins strictly; POS-negado keeps
// transactions whose card reference is missing.
func (s *Service) Source(name string) (Source, error) {
	table, err := s.sources.Resolve(name)
	if err != nil {
		return Source{}, err
	}
	src := Source{
		Name:         name,
		Transactions: table,
		Cards:        allowlist.Table{Schema: table.Schema, Name: allowlist.CardsTable},
	}
	switch name {
	case allowlist.SourceGMA:
		src.Capability, src.Join = shared.PermPagamentosGMA, JoinStrict
	case allowlist.SourcePosNegado:
		src.Capability, src.Join = shared.PermPagamentosPosNegado, JoinOptional
	}
	return src, nil
}

// ListStatement renders the search statement for src.
func ListStatement(src Source, p ListParams) (query.Statement, shared.Pagination) {
	page := shared.NewPagination(p.Page, p.PerPage, 0)
	stmt := query.New(src.base()).
		Where(p.filters()...).
		OrderBy(paymentSort, p.Sort, p.Dir).
		Paginate(page).
		Build()
	return stmt, page
}

// List searches payments of src. Zero rows is an empty result.
func (s *Service) List(ctx context.Context, src Source, p ListParams) (*ListResult, error) {
	stmt, page := ListStatement(src, p)
	if len(stmt.Skipped) > 0 {
		s.logger.Warn("payment filters skipped", slog.String("source", src.Name), slog.Any("skipped", stmt.Skipped))
	}
	rows, err := s.run(ctx, src.Name, stmt)
	if err != nil {
		return nil, err
	}
	return &ListResult{Rows: s.redactor.Apply(rows), Skipped: stmt.Skipped, Pagination: page}, nil
}

// Get returns one payment of src by id, or shared.ErrNotFound.
func (s *Service) Get(ctx context.Context, src Source, id int64) (redact.Row, error) {
	stmt := query.New(src.base()).
		Where(query.Equal("t.id", query.Int, strconv.FormatInt(id, 10))).
		Limit(1).
		Build()
	rows, err := s.run(ctx, src.Name, stmt)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, shared.ErrNotFound
	}
	return s.redactor.ApplyOne(rows[0]), nil
}

func (s *Service) run(ctx context.Context, source string, stmt query.Statement) ([]map[string]any, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	start := time.Now()
	rows, err := db.QueryMaps(ctx, s.db, "payments query", stmt.SQL, stmt.Args...)
	if s.metrics != nil {
		s.metrics.ObserveQuery("pagamentos_"+source, time.Since(start), err)
	}
	return rows, err
}
