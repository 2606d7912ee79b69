package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/salscrudato/product-console/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. It backs local
// single-user deployments; array-valued fields are stored as JSON text.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	d, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := d.Exec(pragma); err != nil {
			d.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: d}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS products (
	id               TEXT PRIMARY KEY,
	name             TEXT NOT NULL,
	product_code     TEXT NOT NULL,
	form_number      TEXT NOT NULL DEFAULT '',
	effective_date   DATETIME NOT NULL,
	available_states TEXT NOT NULL DEFAULT '[]',
	status           TEXT NOT NULL DEFAULT 'draft',
	created_at       DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at       DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS coverages (
	id                 TEXT PRIMARY KEY,
	product_id         TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
	coverage_code      TEXT NOT NULL,
	coverage_name      TEXT NOT NULL,
	parent_coverage_id TEXT,
	limits             TEXT NOT NULL DEFAULT '[]',
	deductibles        TEXT NOT NULL DEFAULT '[]',
	states             TEXT NOT NULL DEFAULT '[]',
	created_at         DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at         DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS forms (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	form_number TEXT NOT NULL,
	category    TEXT NOT NULL DEFAULT '',
	created_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at  DATETIME NOT NULL DEFAULT (datetime('now'))
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
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS pricing_steps (
	id         TEXT PRIMARY KEY,
	product_id TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
	step_order INTEGER NOT NULL,
	name       TEXT NOT NULL,
	operand    TEXT NOT NULL DEFAULT '',
	value      TEXT NOT NULL DEFAULT '0',
	table_ref  TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS tasks (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	assignee   TEXT NOT NULL DEFAULT '',
	due_date   DATETIME,
	status     TEXT NOT NULL DEFAULT 'open',
	priority   TEXT NOT NULL DEFAULT 'medium',
	phase      TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS news_summaries (
	id           TEXT PRIMARY KEY,
	article_id   TEXT NOT NULL UNIQUE,
	title        TEXT NOT NULL,
	summary      TEXT NOT NULL,
	source       TEXT NOT NULL DEFAULT '',
	url          TEXT NOT NULL DEFAULT '',
	published_at DATETIME NOT NULL,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS feed_cache (
	kind       TEXT PRIMARY KEY,
	payload    BLOB NOT NULL,
	fetched_at DATETIME NOT NULL,
	expires_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_coverages_product_id ON coverages(product_id);
CREATE INDEX IF NOT EXISTS idx_form_coverages_form_id ON form_coverages(form_id);
CREATE INDEX IF NOT EXISTS idx_rules_product_id ON rules(product_id);
CREATE INDEX IF NOT EXISTS idx_pricing_steps_product_id ON pricing_steps(product_id, step_order);
CREATE INDEX IF NOT EXISTS idx_news_summaries_published_at ON news_summaries(published_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Products ---

func (s *SQLiteStore) CreateProduct(ctx context.Context, p model.Product) (*model.Product, error) {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	states, err := json.Marshal(stringsOrEmpty(p.AvailableStates))
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal states")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO products (id, name, product_code, form_number, effective_date, available_states, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.ProductCode, p.FormNumber, p.EffectiveDate, string(states), string(p.Status), p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: create product")
	}
	return &p, nil
}

func (s *SQLiteStore) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, product_code, form_number, effective_date, available_states, status, created_at, updated_at
		 FROM products WHERE id = ?`, id)

	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "sqlite: get product")
	}
	return p, nil
}

func (s *SQLiteStore) ListProducts(ctx context.Context) ([]model.Product, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, product_code, form_number, effective_date, available_states, status, created_at, updated_at
		 FROM products ORDER BY name`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list products")
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan product")
		}
		products = append(products, *p)
	}
	return products, eris.Wrap(rows.Err(), "sqlite: list products rows")
}

func (s *SQLiteStore) UpdateProduct(ctx context.Context, p model.Product) error {
	states, err := json.Marshal(stringsOrEmpty(p.AvailableStates))
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal states")
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE products SET name = ?, product_code = ?, form_number = ?, effective_date = ?,
		 available_states = ?, status = ?, updated_at = ? WHERE id = ?`,
		p.Name, p.ProductCode, p.FormNumber, p.EffectiveDate, string(states), string(p.Status), time.Now().UTC(), p.ID)
	return eris.Wrap(err, "sqlite: update product")
}

func (s *SQLiteStore) DeleteProduct(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	return eris.Wrap(err, "sqlite: delete product")
}

// --- Coverages ---

func (s *SQLiteStore) CreateCoverage(ctx context.Context, c model.Coverage) (*model.Coverage, error) {
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

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO coverages (id, product_id, coverage_code, coverage_name, parent_coverage_id, limits, deductibles, states, created_at, updated_at)
		 VALUES (?, ?, ?, ?, NULLIF(?, ''), ?, ?, ?, ?, ?)`,
		c.ID, c.ProductID, c.CoverageCode, c.CoverageName, c.ParentCoverageID,
		string(limits), string(deductibles), string(states), c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: create coverage")
	}
	return &c, nil
}

func (s *SQLiteStore) GetCoverage(ctx context.Context, id string) (*model.Coverage, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, product_id, coverage_code, coverage_name, parent_coverage_id, limits, deductibles, states, created_at, updated_at
		 FROM coverages WHERE id = ?`, id)

	c, err := scanCoverage(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "sqlite: get coverage")
	}
	return c, nil
}

func (s *SQLiteStore) ListCoverages(ctx context.Context, productID string) ([]model.Coverage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, product_id, coverage_code, coverage_name, parent_coverage_id, limits, deductibles, states, created_at, updated_at
		 FROM coverages WHERE product_id = ? ORDER BY coverage_code`, productID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list coverages")
	}
	defer rows.Close()
	return collectCoveragesSQL(rows)
}

func (s *SQLiteStore) ListAllCoverages(ctx context.Context) ([]model.Coverage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, product_id, coverage_code, coverage_name, parent_coverage_id, limits, deductibles, states, created_at, updated_at
		 FROM coverages ORDER BY product_id, coverage_code`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list all coverages")
	}
	defer rows.Close()
	return collectCoveragesSQL(rows)
}

func (s *SQLiteStore) UpdateCoverage(ctx context.Context, c model.Coverage) error {
	siblings, err := s.ListCoverages(ctx, c.ProductID)
	if err != nil {
		return err
	}
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

	_, err = s.db.ExecContext(ctx,
		`UPDATE coverages SET coverage_code = ?, coverage_name = ?, parent_coverage_id = NULLIF(?, ''),
		 limits = ?, deductibles = ?, states = ?, updated_at = ? WHERE id = ?`,
		c.CoverageCode, c.CoverageName, c.ParentCoverageID,
		string(limits), string(deductibles), string(states), time.Now().UTC(), c.ID)
	return eris.Wrap(err, "sqlite: update coverage")
}

func (s *SQLiteStore) DeleteCoverage(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM coverages WHERE id = ?`, id)
	return eris.Wrap(err, "sqlite: delete coverage")
}

func (s *SQLiteStore) BulkInsertCoverages(ctx context.Context, covs []model.Coverage) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin bulk insert")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO coverages (id, product_id, coverage_code, coverage_name, parent_coverage_id, limits, deductibles, states, created_at, updated_at)
		 VALUES (?, ?, ?, ?, NULLIF(?, ''), ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare bulk insert")
	}
	defer stmt.Close()

	now := time.Now().UTC()
	var inserted int64
	for _, c := range covs {
		if c.ID == "" {
			c.ID = uuid.New().String()
		}
		limits, deductibles, states, err := marshalCoverageFields(c)
		if err != nil {
			return 0, err
		}
		if _, err := stmt.ExecContext(ctx,
			c.ID, c.ProductID, c.CoverageCode, c.CoverageName, c.ParentCoverageID,
			string(limits), string(deductibles), string(states), now, now); err != nil {
			return 0, eris.Wrapf(err, "sqlite: bulk insert coverage %s", c.CoverageCode)
		}
		inserted++
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit bulk insert")
	}
	return inserted, nil
}

// --- Forms ---

func (s *SQLiteStore) CreateForm(ctx context.Context, f model.Form) (*model.Form, error) {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	f.CreatedAt = now
	f.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO forms (id, name, form_number, category, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		f.ID, f.Name, f.FormNumber, f.Category, f.CreatedAt, f.UpdatedAt)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: create form")
	}
	return &f, nil
}

func (s *SQLiteStore) ListForms(ctx context.Context) ([]model.Form, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, form_number, category, created_at, updated_at FROM forms ORDER BY form_number`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list forms")
	}
	defer rows.Close()

	var forms []model.Form
	for rows.Next() {
		var f model.Form
		if err := rows.Scan(&f.ID, &f.Name, &f.FormNumber, &f.Category, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan form")
		}
		forms = append(forms, f)
	}
	return forms, eris.Wrap(rows.Err(), "sqlite: list forms rows")
}

func (s *SQLiteStore) DeleteForm(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM forms WHERE id = ?`, id)
	return eris.Wrap(err, "sqlite: delete form")
}

func (s *SQLiteStore) LinkForm(ctx context.Context, link model.FormLink) (*model.FormLink, error) {
	if link.ID == "" {
		link.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO form_coverages (id, form_id, product_id, coverage_id) VALUES (?, ?, ?, NULLIF(?, ''))`,
		link.ID, link.FormID, link.ProductID, link.CoverageID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: link form")
	}
	return &link, nil
}

func (s *SQLiteStore) ListFormLinks(ctx context.Context, formID string) ([]model.FormLink, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, form_id, product_id, COALESCE(coverage_id, '') FROM form_coverages WHERE form_id = ?`, formID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list form links")
	}
	defer rows.Close()
	return collectFormLinksSQL(rows)
}

func (s *SQLiteStore) ListAllFormLinks(ctx context.Context) ([]model.FormLink, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, form_id, product_id, COALESCE(coverage_id, '') FROM form_coverages`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list all form links")
	}
	defer rows.Close()
	return collectFormLinksSQL(rows)
}

// --- Rules ---

func (s *SQLiteStore) CreateRule(ctx context.Context, r model.Rule) (*model.Rule, error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO rules (id, product_id, rule_text, created_at, updated_at) VALUES (?, NULLIF(?, ''), ?, ?, ?)`,
		r.ID, r.ProductID, r.Text, r.CreatedAt, r.UpdatedAt)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: create rule")
	}
	return &r, nil
}

func (s *SQLiteStore) ListRules(ctx context.Context, filter RuleFilter) ([]model.Rule, error) {
	query := `SELECT id, COALESCE(product_id, ''), rule_text, created_at, updated_at FROM rules WHERE 1=1`
	var args []any
	if filter.ProductID != "" {
		query += ` AND product_id = ?`
		args = append(args, filter.ProductID)
	}
	query += ` ORDER BY created_at`
	if filter.Limit > 0 {
		query += ` LIMIT ` + strconv.Itoa(filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list rules")
	}
	defer rows.Close()

	var rules []model.Rule
	for rows.Next() {
		var r model.Rule
		if err := rows.Scan(&r.ID, &r.ProductID, &r.Text, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan rule")
		}
		rules = append(rules, r)
	}
	return rules, eris.Wrap(rows.Err(), "sqlite: list rules rows")
}

func (s *SQLiteStore) DeleteRule(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM rules WHERE id = ?`, id)
	return eris.Wrap(err, "sqlite: delete rule")
}

// --- Pricing steps ---

func (s *SQLiteStore) CreatePricingStep(ctx context.Context, step model.PricingStep) (*model.PricingStep, error) {
	if step.ID == "" {
		step.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	step.CreatedAt = now
	step.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pricing_steps (id, product_id, step_order, name, operand, value, table_ref, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		step.ID, step.ProductID, step.StepOrder, step.Name, step.Operand, step.Value.String(), step.Table, step.CreatedAt, step.UpdatedAt)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: create pricing step")
	}
	return &step, nil
}

func (s *SQLiteStore) ListPricingSteps(ctx context.Context, productID string) ([]model.PricingStep, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, product_id, step_order, name, operand, value, table_ref, created_at, updated_at
		 FROM pricing_steps WHERE product_id = ? ORDER BY step_order`, productID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list pricing steps")
	}
	defer rows.Close()

	var steps []model.PricingStep
	for rows.Next() {
		var step model.PricingStep
		var value string
		if err := rows.Scan(&step.ID, &step.ProductID, &step.StepOrder, &step.Name, &step.Operand, &value, &step.Table, &step.CreatedAt, &step.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan pricing step")
		}
		step.Value, err = decimal.NewFromString(value)
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: parse pricing value %q", value)
		}
		steps = append(steps, step)
	}
	return steps, eris.Wrap(rows.Err(), "sqlite: list pricing steps rows")
}

func (s *SQLiteStore) DeletePricingStep(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM pricing_steps WHERE id = ?`, id)
	return eris.Wrap(err, "sqlite: delete pricing step")
}

// --- Tasks ---

func (s *SQLiteStore) CreateTask(ctx context.Context, t model.Task) (*model.Task, error) {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (id, title, assignee, due_date, status, priority, phase, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Title, t.Assignee, t.DueDate, string(t.Status), string(t.Priority), string(t.Phase), t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: create task")
	}
	return &t, nil
}

func (s *SQLiteStore) ListTasks(ctx context.Context) ([]model.Task, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, assignee, due_date, status, priority, phase, created_at, updated_at
		 FROM tasks ORDER BY created_at DESC`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list tasks")
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		var t model.Task
		var status, priority, phase string
		if err := rows.Scan(&t.ID, &t.Title, &t.Assignee, &t.DueDate, &status, &priority, &phase, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan task")
		}
		t.Status = model.TaskStatus(status)
		t.Priority = model.TaskPriority(priority)
		t.Phase = model.TaskPhase(phase)
		tasks = append(tasks, t)
	}
	return tasks, eris.Wrap(rows.Err(), "sqlite: list tasks rows")
}

func (s *SQLiteStore) UpdateTask(ctx context.Context, t model.Task) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET title = ?, assignee = ?, due_date = ?, status = ?, priority = ?, phase = ?, updated_at = ? WHERE id = ?`,
		t.Title, t.Assignee, t.DueDate, string(t.Status), string(t.Priority), string(t.Phase), time.Now().UTC(), t.ID)
	return eris.Wrap(err, "sqlite: update task")
}

// --- News summaries ---

func (s *SQLiteStore) UpsertNewsSummary(ctx context.Context, sum model.NewsSummary) error {
	if sum.ID == "" {
		sum.ID = uuid.New().String()
	}
	if sum.CreatedAt.IsZero() {
		sum.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO news_summaries (id, article_id, title, summary, source, url, published_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (article_id) DO UPDATE SET title = excluded.title, summary = excluded.summary`,
		sum.ID, sum.ArticleID, sum.Title, sum.Summary, sum.Source, sum.URL, sum.PublishedAt, sum.CreatedAt)
	return eris.Wrap(err, "sqlite: upsert news summary")
}

func (s *SQLiteStore) ListNewsSummaries(ctx context.Context, limit int) ([]model.NewsSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, article_id, title, summary, source, url, published_at, created_at
		 FROM news_summaries ORDER BY published_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list news summaries")
	}
	defer rows.Close()

	var sums []model.NewsSummary
	for rows.Next() {
		var sum model.NewsSummary
		if err := rows.Scan(&sum.ID, &sum.ArticleID, &sum.Title, &sum.Summary, &sum.Source, &sum.URL, &sum.PublishedAt, &sum.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan news summary")
		}
		sums = append(sums, sum)
	}
	return sums, eris.Wrap(rows.Err(), "sqlite: list news summaries rows")
}

// --- Feed cache ---

func (s *SQLiteStore) GetFeedCache(ctx context.Context, kind model.FeedKind) (*model.FeedCache, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT kind, payload, fetched_at, expires_at FROM feed_cache WHERE kind = ? AND expires_at > ?`,
		string(kind), time.Now().UTC())

	var fc model.FeedCache
	if err := row.Scan(&fc.Kind, &fc.Payload, &fc.FetchedAt, &fc.ExpiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "sqlite: get feed cache")
	}
	return &fc, nil
}

func (s *SQLiteStore) SetFeedCache(ctx context.Context, kind model.FeedKind, payload []byte, ttl time.Duration) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO feed_cache (kind, payload, fetched_at, expires_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (kind) DO UPDATE SET payload = excluded.payload, fetched_at = excluded.fetched_at, expires_at = excluded.expires_at`,
		string(kind), payload, now, now.Add(ttl))
	return eris.Wrap(err, "sqlite: set feed cache")
}

func (s *SQLiteStore) ExtendFeedCache(ctx context.Context, kind model.FeedKind, extra time.Duration) error {
	row := s.db.QueryRowContext(ctx,
		`SELECT expires_at FROM feed_cache WHERE kind = ?`, string(kind))
	var expires time.Time
	if err := row.Scan(&expires); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return eris.Wrap(err, "sqlite: read feed cache expiry")
	}

	_, err := s.db.ExecContext(ctx,
		`UPDATE feed_cache SET expires_at = ? WHERE kind = ?`,
		expires.Add(extra), string(kind))
	return eris.Wrap(err, "sqlite: extend feed cache")
}

// --- scan helpers ---

func collectCoveragesSQL(rows *sql.Rows) ([]model.Coverage, error) {
	var coverages []model.Coverage
	for rows.Next() {
		c, err := scanCoverage(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan coverage")
		}
		coverages = append(coverages, *c)
	}
	return coverages, eris.Wrap(rows.Err(), "sqlite: coverage rows")
}

func collectFormLinksSQL(rows *sql.Rows) ([]model.FormLink, error) {
	var links []model.FormLink
	for rows.Next() {
		var l model.FormLink
		if err := rows.Scan(&l.ID, &l.FormID, &l.ProductID, &l.CoverageID); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan form link")
		}
		links = append(links, l)
	}
	return links, eris.Wrap(rows.Err(), "sqlite: form link rows")
}
