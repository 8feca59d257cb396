package knowledge

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

type PostgresConfig struct {
	DSN     string        `envconfig:"DSN" split_words:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
	Migrate bool          `envconfig:"MIGRATE" split_words:"true" default:"false"`
}

func (c PostgresConfig) Enabled() bool {
	return strings.TrimSpace(c.DSN) != ""
}

type faqRow struct {
	bun.BaseModel `bun:"table:faq_entries"`

	Question string `bun:"question,pk"`
	Answer   string `bun:"answer,notnull"`
}

type techRow struct {
	bun.BaseModel `bun:"table:tech_solutions"`

	Issue    string `bun:"issue,pk"`
	Solution string `bun:"solution,notnull"`
}

type billingRow struct {
	bun.BaseModel `bun:"table:billing_records"`

	CustomerID      string `bun:"customer_id,pk"`
	Name            string `bun:"name"`
	Balance         string `bun:"balance"`
	LastPaymentDate string `bun:"last_payment_date"`
	Plan            string `bun:"plan"`
}

// PostgresSource loads catalogs from the faq_entries, tech_solutions and
// billing_records tables.
type PostgresSource struct {
	db      *bun.DB
	timeout time.Duration
}

var _ Source = (*PostgresSource)(nil)

func NewPostgresSource(cfg PostgresConfig) (*PostgresSource, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("knowledge database dsn is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithDSN(dsn),
		pgdriver.WithTimeout(timeout),
	))
	return &PostgresSource{
		db:      bun.NewDB(sqldb, pgdialect.New()),
		timeout: timeout,
	}, nil
}

// Migrate creates the catalog tables when they do not exist yet.
func (s *PostgresSource) Migrate(ctx context.Context) error {
	models := []any{(*faqRow)(nil), (*techRow)(nil), (*billingRow)(nil)}
	for _, m := range models {
		if _, err := s.db.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create catalog table: %w", err)
		}
	}
	return nil
}

func (s *PostgresSource) Load(ctx context.Context) (Catalogs, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var (
		faqs     []faqRow
		techs    []techRow
		billings []billingRow
		errs     []error
	)
	if err := s.db.NewSelect().Model(&faqs).Scan(ctx); err != nil {
		faqs = nil
		errs = append(errs, fmt.Errorf("select faq_entries: %w", err))
	}
	if err := s.db.NewSelect().Model(&techs).Scan(ctx); err != nil {
		techs = nil
		errs = append(errs, fmt.Errorf("select tech_solutions: %w", err))
	}
	if err := s.db.NewSelect().Model(&billings).Scan(ctx); err != nil {
		billings = nil
		errs = append(errs, fmt.Errorf("select billing_records: %w", err))
	}

	return catalogsFromRows(faqs, techs, billings), errors.Join(errs...)
}

func (s *PostgresSource) Close() error {
	return s.db.Close()
}

func catalogsFromRows(faqs []faqRow, techs []techRow, billings []billingRow) Catalogs {
	out := Catalogs{
		FAQ:     make(map[string]string, len(faqs)),
		Tech:    make(map[string]string, len(techs)),
		Billing: make(map[string]BillingRecord, len(billings)),
	}
	for _, r := range faqs {
		out.FAQ[r.Question] = r.Answer
	}
	for _, r := range techs {
		out.Tech[r.Issue] = r.Solution
	}
	for _, r := range billings {
		out.Billing[r.CustomerID] = BillingRecord{
			Name:            r.Name,
			Balance:         r.Balance,
			LastPaymentDate: r.LastPaymentDate,
			Plan:            r.Plan,
		}
	}
	return out
}
