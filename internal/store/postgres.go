package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"

	"github.com/salscrudato/product-console/internal/db"
	"github.com/salscrudato/product-console/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists the hottest queries, prepared on each new
// connection. The assistant rebuilds its context snapshot on every chat
// submission, so the full-collection reads dominate.
var preparedStatements = map[string]string{
	"list_products":      `SELECT id, name, product_code, form_number, effective_date, available_states, status, created_at, updated_at FROM products ORDER BY name`,
	"list_all_coverages": `SELECT id, product_id, coverage_code, coverage_name, parent_coverage_id, limits, deductibles, states, created_at, updated_at FROM coverages ORDER BY product_id, coverage_code`,
	"list_tasks":         `SELECT id, title, assignee, due_date, status, priority, phase, created_at, updated_at FROM tasks ORDER BY created_at DESC`,
	"get_feed_cache":     `SELECT kind, payload, fetched_at, expires_at FROM feed_cache WHERE kind = $1 AND expires_at > now()`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// Pool returns the underlying database pool for subsystems that need direct
// query access (e.g., the spreadsheet importer's COPY path).
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS products (
	id               TEXT PRIMARY KEY,
	name             TEXT NOT NULL,
	product_code     TEXT NOT NULL,
	form_number      TEXT NOT NULL DEFAULT '',
	effective_date   TIMESTAMPTZ NOT NULL,
	available_states JSONB NOT NULL DEFAULT '[]',
	status           TEXT NOT NULL DEFAULT 'draft',
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS coverages (
	id                 TEXT PRIMARY KEY,
	product_id         TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
	coverage_code      TEXT NOT NULL,
	coverage_name      TEXT NOT NULL,
	parent_coverage_id TEXT,
	limits             JSONB NOT NULL DEFAULT '[]',
	deductibles        JSONB NOT NULL DEFAULT '[]',
	states             JSONB NOT NULL DEFAULT '[]',
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS forms (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	form_number TEXT NOT NULL,
	category    TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS form_coverages (
	id          TEXT PRIMARY KEY,
	form_id     TEXT NOT NULL REFERENCES forms(id) ON DELETE CASCADE,
	product_id  TEXT NOT NULL,
	coverage_id TEXT
);

CREATE TABLE IF NOT EXISTS rules (
	id         TEXT PRIMARY KEY,
	product_id TEXT,
	rule_text  TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS pricing_steps (
	id         TEXT PRIMARY KEY,
	product_id TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
	step_order INTEGER NOT NULL,
	name       TEXT NOT NULL,
	operand    TEXT NOT NULL DEFAULT '',
	value      TEXT NOT NULL DEFAULT '0',
	table_ref  TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS tasks (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	assignee   TEXT NOT NULL DEFAULT '',
	due_date   TIMESTAMPTZ,
	status     TEXT NOT NULL DEFAULT 'open',
	priority   TEXT NOT NULL DEFAULT 'medium',
	phase      TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS news_summaries (
	id           TEXT PRIMARY KEY,
	article_id   TEXT NOT NULL UNIQUE,
	title        TEXT NOT NULL,
	summary      TEXT NOT NULL,
	source       TEXT NOT NULL DEFAULT '',
	url          TEXT NOT NULL DEFAULT '',
	published_at TIMESTAMPTZ NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS feed_cache (
	kind       TEXT PRIMARY KEY,
	payload    BYTEA NOT NULL,
	fetched_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_coverages_product_id ON coverages(product_id);
CREATE INDEX IF NOT EXISTS idx_form_coverages_form_id ON form_coverages(form_id);
CREATE INDEX IF NOT EXISTS idx_rules_product_id ON rules(product_id);
CREATE INDEX IF NOT EXISTS idx_pricing_steps_product_id ON pricing_steps(product_id, step_order);
CREATE INDEX IF NOT EXISTS idx_news_summaries_published_at ON news_summaries(published_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// --- Products ---

func (s *PostgresStore) CreateProduct(ctx context.Context, p model.Product) (*model.Product, error) {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	states, err := json.Marshal(stringsOrEmpty(p.AvailableStates))
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal states")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO products (id, name, product_code, form_number, effective_date, available_states, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID, p.Name, p.ProductCode, p.FormNumber, p.EffectiveDate, states, string(p.Status), p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create product")
	}
	return &p, nil
}

func (s *PostgresStore) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, name, product_code, form_number, effective_date, available_states, status, created_at, updated_at
		 FROM products WHERE id = $1`, id)

	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: get product")
	}
	return p, nil
}

func (s *PostgresStore) ListProducts(ctx context.Context) ([]model.Product, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, product_code, form_number, effective_date, available_states, status, created_at, updated_at
		 FROM products ORDER BY name`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list products")
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan product")
		}
		products = append(products, *p)
	}
	return products, eris.Wrap(rows.Err(), "postgres: list products rows")
}

func (s *PostgresStore) UpdateProduct(ctx context.Context, p model.Product) error {
	states, err := json.Marshal(stringsOrEmpty(p.AvailableStates))
	if err != nil {
		return eris.Wrap(err, "postgres: marshal states")
	}

	_, err = s.pool.Exec(ctx,
		`UPDATE products SET name = $1, product_code = $2, form_number = $3, effective_date = $4,
		 available_states = $5, status = $6, updated_at = $7 WHERE id = $8`,
		p.Name, p.ProductCode, p.FormNumber, p.EffectiveDate, states, string(p.Status), time.Now().UTC(), p.ID)
	return eris.Wrap(err, "postgres: update product")
}

func (s *PostgresStore) DeleteProduct(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	return eris.Wrap(err, "postgres: delete product")
}

// --- Coverages ---

func (s *PostgresStore) CreateCoverage(ctx context.Context, c model.Coverage) (*model.Coverage, error) {
	siblings, err := s.ListCoverages(ctx, c.ProductID)
	if err != nil {
		return nil, err
	}
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if err := model.ValidateParent(c, append(siblings, c)); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	limits, deductibles, states, err := marshalCoverageFields(c)
	if err != nil {
		return nil, err
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO coverages (id, product_id, coverage_code, coverage_name, parent_coverage_id, limits, deductibles, states, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, $9, $10)`,
		c.ID, c.ProductID, c.CoverageCode, c.CoverageName, c.ParentCoverageID, limits, deductibles, states, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create coverage")
	}
	return &c, nil
}

func (s *PostgresStore) GetCoverage(ctx context.Context, id string) (*model.Coverage, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, product_id, coverage_code, coverage_name, parent_coverage_id, limits, deductibles, states, created_at, updated_at
		 FROM coverages WHERE id = $1`, id)

	c, err := scanCoverage(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: get coverage")
	}
	return c, nil
}

func (s *PostgresStore) ListCoverages(ctx context.Context, productID string) ([]model.Coverage, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, product_id, coverage_code, coverage_name, parent_coverage_id, limits, deductibles, states, created_at, updated_at
		 FROM coverages WHERE product_id = $1 ORDER BY coverage_code`, productID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list coverages")
	}
	defer rows.Close()
	return collectCoverages(rows)
}

func (s *PostgresStore) ListAllCoverages(ctx context.Context) ([]model.Coverage, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, product_id, coverage_code, coverage_name, parent_coverage_id, limits, deductibles, states, created_at, updated_at
		 FROM coverages ORDER BY product_id, coverage_code`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list all coverages")
	}
	defer rows.Close()
	return collectCoverages(rows)
}

func (s *PostgresStore) UpdateCoverage(ctx context.Context, c model.Coverage) error {
	siblings, err := s.ListCoverages(ctx, c.ProductID)
	if err != nil {
		return err
	}
	// Replace the stored version of c in the sibling set before validating.
	for i := range siblings {
		if siblings[i].ID == c.ID {
			siblings[i] = c
		}
	}
	if err := model.ValidateParent(c, siblings); err != nil {
		return err
	}

	limits, deductibles, states, err := marshalCoverageFields(c)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx,
		`UPDATE coverages SET coverage_code = $1, coverage_name = $2, parent_coverage_id = NULLIF($3, ''),
		 limits = $4, deductibles = $5, states = $6, updated_at = $7 WHERE id = $8`,
		c.CoverageCode, c.CoverageName, c.ParentCoverageID, limits, deductibles, states, time.Now().UTC(), c.ID)
	return eris.Wrap(err, "postgres: update coverage")
}

func (s *PostgresStore) DeleteCoverage(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM coverages WHERE id = $1`, id)
	return eris.Wrap(err, "postgres: delete coverage")
}

func (s *PostgresStore) BulkInsertCoverages(ctx context.Context, covs []model.Coverage) (int64, error) {
	rows := make([][]any, 0, len(covs))
	now := time.Now().UTC()
	for _, c := range covs {
		if c.ID == "" {
			c.ID = uuid.New().String()
		}
		limits, deductibles, states, err := marshalCoverageFields(c)
		if err != nil {
			return 0, err
		}
		var parent any
		if c.ParentCoverageID != "" {
			parent = c.ParentCoverageID
		}
		rows = append(rows, []any{
			c.ID, c.ProductID, c.CoverageCode, c.CoverageName, parent,
			limits, deductibles, states, now, now,
		})
	}

	return db.CopyFrom(ctx, s.pool, "coverages",
		[]string{"id", "product_id", "coverage_code", "coverage_name", "parent_coverage_id", "limits", "deductibles", "states", "created_at", "updated_at"},
		rows)
}

// --- Forms ---

func (s *PostgresStore) CreateForm(ctx context.Context, f model.Form) (*model.Form, error) {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	f.CreatedAt = now
	f.UpdatedAt = now

	_, err := s.pool.Exec(ctx,
		`INSERT INTO forms (id, name, form_number, category, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		f.ID, f.Name, f.FormNumber, f.Category, f.CreatedAt, f.UpdatedAt)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create form")
	}
	return &f, nil
}

func (s *PostgresStore) ListForms(ctx context.Context) ([]model.Form, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, form_number, category, created_at, updated_at FROM forms ORDER BY form_number`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list forms")
	}
	defer rows.Close()

	var forms []model.Form
	for rows.Next() {
		var f model.Form
		if err := rows.Scan(&f.ID, &f.Name, &f.FormNumber, &f.Category, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan form")
		}
		forms = append(forms, f)
	}
	return forms, eris.Wrap(rows.Err(), "postgres: list forms rows")
}

func (s *PostgresStore) DeleteForm(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM forms WHERE id = $1`, id)
	return eris.Wrap(err, "postgres: delete form")
}

func (s *PostgresStore) LinkForm(ctx context.Context, link model.FormLink) (*model.FormLink, error) {
	if link.ID == "" {
		link.ID = uuid.New().String()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO form_coverages (id, form_id, product_id, coverage_id) VALUES ($1, $2, $3, NULLIF($4, ''))`,
		link.ID, link.FormID, link.ProductID, link.CoverageID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: link form")
	}
	return &link, nil
}

func (s *PostgresStore) ListFormLinks(ctx context.Context, formID string) ([]model.FormLink, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, form_id, product_id, COALESCE(coverage_id, '') FROM form_coverages WHERE form_id = $1`, formID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list form links")
	}
	defer rows.Close()
	return collectFormLinks(rows)
}

func (s *PostgresStore) ListAllFormLinks(ctx context.Context) ([]model.FormLink, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, form_id, product_id, COALESCE(coverage_id, '') FROM form_coverages`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list all form links")
	}
	defer rows.Close()
	return collectFormLinks(rows)
}

// --- Rules ---

func (s *PostgresStore) CreateRule(ctx context.Context, r model.Rule) (*model.Rule, error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now

	_, err := s.pool.Exec(ctx,
		`INSERT INTO rules (id, product_id, rule_text, created_at, updated_at) VALUES ($1, NULLIF($2, ''), $3, $4, $5)`,
		r.ID, r.ProductID, r.Text, r.CreatedAt, r.UpdatedAt)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create rule")
	}
	return &r, nil
}

func (s *PostgresStore) ListRules(ctx context.Context, filter RuleFilter) ([]model.Rule, error) {
	query := `SELECT id, COALESCE(product_id, ''), rule_text, created_at, updated_at FROM rules`
	var args []any
	if filter.ProductID != "" {
		query += ` WHERE product_id = $1`
		args = append(args, filter.ProductID)
	}
	query += ` ORDER BY created_at`
	if filter.Limit > 0 {
		query += ` LIMIT ` + strconv.Itoa(filter.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list rules")
	}
	defer rows.Close()

	var rules []model.Rule
	for rows.Next() {
		var r model.Rule
		if err := rows.Scan(&r.ID, &r.ProductID, &r.Text, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan rule")
		}
		rules = append(rules, r)
	}
	return rules, eris.Wrap(rows.Err(), "postgres: list rules rows")
}

func (s *PostgresStore) DeleteRule(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM rules WHERE id = $1`, id)
	return eris.Wrap(err, "postgres: delete rule")
}

// --- Pricing steps ---

func (s *PostgresStore) CreatePricingStep(ctx context.Context, step model.PricingStep) (*model.PricingStep, error) {
	if step.ID == "" {
		step.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	step.CreatedAt = now
	step.UpdatedAt = now

	_, err := s.pool.Exec(ctx,
		`INSERT INTO pricing_steps (id, product_id, step_order, name, operand, value, table_ref, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		step.ID, step.ProductID, step.StepOrder, step.Name, step.Operand, step.Value.String(), step.Table, step.CreatedAt, step.UpdatedAt)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pricing step")
	}
	return &step, nil
}

func (s *PostgresStore) ListPricingSteps(ctx context.Context, productID string) ([]model.PricingStep, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, product_id, step_order, name, operand, value, table_ref, created_at, updated_at
		 FROM pricing_steps WHERE product_id = $1 ORDER BY step_order`, productID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list pricing steps")
	}
	defer rows.Close()

	var steps []model.PricingStep
	for rows.Next() {
		var step model.PricingStep
		var value string
		if err := rows.Scan(&step.ID, &step.ProductID, &step.StepOrder, &step.Name, &step.Operand, &value, &step.Table, &step.CreatedAt, &step.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan pricing step")
		}
		step.Value, err = decimal.NewFromString(value)
		if err != nil {
			return nil, eris.Wrapf(err, "postgres: parse pricing value %q", value)
		}
		steps = append(steps, step)
	}
	return steps, eris.Wrap(rows.Err(), "postgres: list pricing steps rows")
}

func (s *PostgresStore) DeletePricingStep(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM pricing_steps WHERE id = $1`, id)
	return eris.Wrap(err, "postgres: delete pricing step")
}

// --- Tasks ---

func (s *PostgresStore) CreateTask(ctx context.Context, t model.Task) (*model.Task, error) {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	_, err := s.pool.Exec(ctx,
		`INSERT INTO tasks (id, title, assignee, due_date, status, priority, phase, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		t.ID, t.Title, t.Assignee, t.DueDate, string(t.Status), string(t.Priority), string(t.Phase), t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create task")
	}
	return &t, nil
}

func (s *PostgresStore) ListTasks(ctx context.Context) ([]model.Task, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, title, assignee, due_date, status, priority, phase, created_at, updated_at
		 FROM tasks ORDER BY created_at DESC`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list tasks")
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		var t model.Task
		if err := rows.Scan(&t.ID, &t.Title, &t.Assignee, &t.DueDate, &t.Status, &t.Priority, &t.Phase, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan task")
		}
		tasks = append(tasks, t)
	}
	return tasks, eris.Wrap(rows.Err(), "postgres: list tasks rows")
}

func (s *PostgresStore) UpdateTask(ctx context.Context, t model.Task) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE tasks SET title = $1, assignee = $2, due_date = $3, status = $4, priority = $5, phase = $6, updated_at = $7 WHERE id = $8`,
		t.Title, t.Assignee, t.DueDate, string(t.Status), string(t.Priority), string(t.Phase), time.Now().UTC(), t.ID)
	return eris.Wrap(err, "postgres: update task")
}

// --- News summaries ---

func (s *PostgresStore) UpsertNewsSummary(ctx context.Context, sum model.NewsSummary) error {
	if sum.ID == "" {
		sum.ID = uuid.New().String()
	}
	if sum.CreatedAt.IsZero() {
		sum.CreatedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO news_summaries (id, article_id, title, summary, source, url, published_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (article_id) DO UPDATE SET title = EXCLUDED.title, summary = EXCLUDED.summary`,
		sum.ID, sum.ArticleID, sum.Title, sum.Summary, sum.Source, sum.URL, sum.PublishedAt, sum.CreatedAt)
	return eris.Wrap(err, "postgres: upsert news summary")
}

func (s *PostgresStore) ListNewsSummaries(ctx context.Context, limit int) ([]model.NewsSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, article_id, title, summary, source, url, published_at, created_at
		 FROM news_summaries ORDER BY published_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list news summaries")
	}
	defer rows.Close()

	var sums []model.NewsSummary
	for rows.Next() {
		var sum model.NewsSummary
		if err := rows.Scan(&sum.ID, &sum.ArticleID, &sum.Title, &sum.Summary, &sum.Source, &sum.URL, &sum.PublishedAt, &sum.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan news summary")
		}
		sums = append(sums, sum)
	}
	return sums, eris.Wrap(rows.Err(), "postgres: list news summaries rows")
}

// --- Feed cache ---

func (s *PostgresStore) GetFeedCache(ctx context.Context, kind model.FeedKind) (*model.FeedCache, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT kind, payload, fetched_at, expires_at FROM feed_cache WHERE kind = $1 AND expires_at > now()`, string(kind))

	var fc model.FeedCache
	if err := row.Scan(&fc.Kind, &fc.Payload, &fc.FetchedAt, &fc.ExpiresAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: get feed cache")
	}
	return &fc, nil
}

func (s *PostgresStore) SetFeedCache(ctx context.Context, kind model.FeedKind, payload []byte, ttl time.Duration) error {
	now := time.Now().UTC()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO feed_cache (kind, payload, fetched_at, expires_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (kind) DO UPDATE SET payload = EXCLUDED.payload, fetched_at = EXCLUDED.fetched_at, expires_at = EXCLUDED.expires_at`,
		string(kind), payload, now, now.Add(ttl))
	return eris.Wrap(err, "postgres: set feed cache")
}

func (s *PostgresStore) ExtendFeedCache(ctx context.Context, kind model.FeedKind, extra time.Duration) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE feed_cache SET expires_at = expires_at + $1 WHERE kind = $2`,
		extra, string(kind))
	return eris.Wrap(err, "postgres: extend feed cache")
}

// --- scan helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*model.Product, error) {
	var p model.Product
	var states []byte
	if err := row.Scan(&p.ID, &p.Name, &p.ProductCode, &p.FormNumber, &p.EffectiveDate, &states, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(states, &p.AvailableStates); err != nil {
		return nil, eris.Wrap(err, "unmarshal states")
	}
	return &p, nil
}

func scanCoverage(row rowScanner) (*model.Coverage, error) {
	var c model.Coverage
	var parent *string
	var limits, deductibles, states []byte
	if err := row.Scan(&c.ID, &c.ProductID, &c.CoverageCode, &c.CoverageName, &parent, &limits, &deductibles, &states, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	if parent != nil {
		c.ParentCoverageID = *parent
	}
	if err := json.Unmarshal(limits, &c.Limits); err != nil {
		return nil, eris.Wrap(err, "unmarshal limits")
	}
	if err := json.Unmarshal(deductibles, &c.Deductibles); err != nil {
		return nil, eris.Wrap(err, "unmarshal deductibles")
	}
	if err := json.Unmarshal(states, &c.States); err != nil {
		return nil, eris.Wrap(err, "unmarshal states")
	}
	return &c, nil
}

func collectCoverages(rows pgx.Rows) ([]model.Coverage, error) {
	var coverages []model.Coverage
	for rows.Next() {
		c, err := scanCoverage(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan coverage")
		}
		coverages = append(coverages, *c)
	}
	return coverages, eris.Wrap(rows.Err(), "postgres: coverage rows")
}

func collectFormLinks(rows pgx.Rows) ([]model.FormLink, error) {
	var links []model.FormLink
	for rows.Next() {
		var l model.FormLink
		if err := rows.Scan(&l.ID, &l.FormID, &l.ProductID, &l.CoverageID); err != nil {
			return nil, eris.Wrap(err, "postgres: scan form link")
		}
		links = append(links, l)
	}
	return links, eris.Wrap(rows.Err(), "postgres: form link rows")
}

func marshalCoverageFields(c model.Coverage) (limits, deductibles, states []byte, err error) {
	if limits, err = json.Marshal(decimalsOrEmpty(c.Limits)); err != nil {
		return nil, nil, nil, eris.Wrap(err, "postgres: marshal limits")
	}
	if deductibles, err = json.Marshal(decimalsOrEmpty(c.Deductibles)); err != nil {
		return nil, nil, nil, eris.Wrap(err, "postgres: marshal deductibles")
	}
	if states, err = json.Marshal(stringsOrEmpty(c.States)); err != nil {
		return nil, nil, nil, eris.Wrap(err, "postgres: marshal states")
	}
	return limits, deductibles, states, nil
}

func stringsOrEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func decimalsOrEmpty(d []decimal.Decimal) []decimal.Decimal {
	if d == nil {
		return []decimal.Decimal{}
	}
	return d
}
