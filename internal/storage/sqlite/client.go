package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/scheme-sahayak/backend/internal/storage"
	"github.com/scheme-sahayak/backend/internal/storage/models"
	"github.com/scheme-sahayak/backend/pkg/logger"
)

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec("PRAGMA foreign_keys = ON")
	if err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	_, err = db.Exec("PRAGMA journal_mode = WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schemes (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		name_hi TEXT NOT NULL DEFAULT '',
		name_ta TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL,
		description_hi TEXT NOT NULL DEFAULT '',
		description_ta TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		category_hi TEXT NOT NULL DEFAULT '',
		category_ta TEXT NOT NULL DEFAULT '',
		eligibility TEXT NOT NULL DEFAULT '',
		eligibility_hi TEXT NOT NULL DEFAULT '',
		eligibility_ta TEXT NOT NULL DEFAULT '',
		criteria TEXT NOT NULL DEFAULT '{}',
		benefits TEXT NOT NULL DEFAULT '[]',
		documents TEXT NOT NULL DEFAULT '[]',
		steps TEXT NOT NULL DEFAULT '[]',
		source TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_schemes_category ON schemes(category);

	CREATE TABLE IF NOT EXISTS popular_queries (
		normalized_form TEXT PRIMARY KEY,
		original_text TEXT NOT NULL,
		search_count INTEGER NOT NULL DEFAULT 1,
		language TEXT NOT NULL DEFAULT 'en',
		related_queries TEXT NOT NULL DEFAULT '[]',
		last_seen_at INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_queries_count ON popular_queries(search_count);

	CREATE TABLE IF NOT EXISTS conversations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL DEFAULT '',
		user_id TEXT NOT NULL DEFAULT '',
		question TEXT NOT NULL,
		answer TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_conversations_session ON conversations(session_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_conversations_user ON conversations(user_id, created_at);

	CREATE TABLE IF NOT EXISTS faqs (
		id TEXT PRIMARY KEY,
		question TEXT NOT NULL UNIQUE,
		answer TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		auto_generated INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_faqs_created ON faqs(created_at);

	CREATE TABLE IF NOT EXISTS user_profiles (
		id TEXT PRIMARY KEY,
		age INTEGER,
		income REAL,
		state TEXT NOT NULL DEFAULT '',
		gender TEXT NOT NULL DEFAULT ''
	);
	`

	_, err := c.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

const schemeColumns = `id, name, name_hi, name_ta, description, description_hi, description_ta,
	category, category_hi, category_ta, eligibility, eligibility_hi, eligibility_ta,
	criteria, benefits, documents, steps, source, created_at, updated_at`

func (c *Client) UpsertScheme(ctx context.Context, s *models.Scheme) error {
	criteriaJSON, _ := json.Marshal(s.Criteria)
	benefitsJSON, _ := json.Marshal(s.Benefits)
	documentsJSON, _ := json.Marshal(s.Documents)
	stepsJSON, _ := json.Marshal(s.Steps)

	query := `
		INSERT INTO schemes (` + schemeColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			name_hi = excluded.name_hi,
			name_ta = excluded.name_ta,
			description = excluded.description,
			description_hi = excluded.description_hi,
			description_ta = excluded.description_ta,
			category = excluded.category,
			category_hi = excluded.category_hi,
			category_ta = excluded.category_ta,
			eligibility = excluded.eligibility,
			eligibility_hi = excluded.eligibility_hi,
			eligibility_ta = excluded.eligibility_ta,
			criteria = excluded.criteria,
			benefits = excluded.benefits,
			documents = excluded.documents,
			steps = excluded.steps,
			source = excluded.source,
			updated_at = excluded.updated_at
	`

	_, err := c.db.ExecContext(ctx, query,
		s.ID, s.Name, s.NameHI, s.NameTA,
		s.Description, s.DescriptionHI, s.DescriptionTA,
		s.Category, s.CategoryHI, s.CategoryTA,
		s.Eligibility, s.EligibilityHI, s.EligibilityTA,
		string(criteriaJSON), string(benefitsJSON), string(documentsJSON), string(stepsJSON),
		s.Source, s.CreatedAt.Unix(), s.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert scheme: %w", err)
	}

	logger.Debug("Scheme upserted", zap.String("scheme_id", s.ID), zap.String("name", s.Name))
	return nil
}

func (c *Client) GetScheme(ctx context.Context, id string) (*models.Scheme, error) {
	row := c.db.QueryRowContext(ctx,
		`SELECT `+schemeColumns+` FROM schemes WHERE id = ?`, id)

	s, err := scanScheme(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scheme: %w", err)
	}
	return s, nil
}

// FilterSchemes runs the fast-path containment filter: category is a
// case-insensitive substring match on the English category field, keyword
// is OR-matched across the six localized name/description fields.
func (c *Client) FilterSchemes(ctx context.Context, keyword, category string, limit int) ([]models.Scheme, error) {
	conditions := []string{}
	args := []interface{}{}

	if category != "" {
		conditions = append(conditions, `lower(category) LIKE '%' || lower(?) || '%'`)
		args = append(args, category)
	}
	if keyword != "" {
		conditions = append(conditions, `(
			lower(name) LIKE '%' || lower(?) || '%' OR
			lower(name_hi) LIKE '%' || lower(?) || '%' OR
			lower(name_ta) LIKE '%' || lower(?) || '%' OR
			lower(description) LIKE '%' || lower(?) || '%' OR
			lower(description_hi) LIKE '%' || lower(?) || '%' OR
			lower(description_ta) LIKE '%' || lower(?) || '%'
		)`)
		for i := 0; i < 6; i++ {
			args = append(args, keyword)
		}
	}

	query := `SELECT ` + schemeColumns + ` FROM schemes`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, ` AND `)
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	return c.querySchemes(ctx, query, args...)
}

// SearchSchemesRanked scores each scheme by weighted keyword hits (name
// fields weigh 2, description fields 1) and returns the top matches in
// descending relevance order.
func (c *Client) SearchSchemesRanked(ctx context.Context, query string, limit int) ([]models.Scheme, error) {
	keywords := strings.Fields(strings.ToLower(query))
	if len(keywords) == 0 {
		return nil, nil
	}

	conditions := make([]string, 0, len(keywords))
	args := []interface{}{}
	for _, kw := range keywords {
		conditions = append(conditions, `(
			lower(name) LIKE '%' || ? || '%' OR
			lower(name_hi) LIKE '%' || ? || '%' OR
			lower(name_ta) LIKE '%' || ? || '%' OR
			lower(description) LIKE '%' || ? || '%' OR
			lower(description_hi) LIKE '%' || ? || '%' OR
			lower(description_ta) LIKE '%' || ? || '%'
		)`)
		for i := 0; i < 6; i++ {
			args = append(args, kw)
		}
	}

	sqlQuery := `SELECT ` + schemeColumns + ` FROM schemes WHERE ` + strings.Join(conditions, ` OR `)

	candidates, err := c.querySchemes(ctx, sqlQuery, args...)
	if err != nil {
		return nil, err
	}

	type scored struct {
		scheme models.Scheme
		score  int
	}
	ranked := make([]scored, 0, len(candidates))
	for _, s := range candidates {
		ranked = append(ranked, scored{scheme: s, score: relevanceScore(&s, keywords)})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}

	results := make([]models.Scheme, 0, len(ranked))
	for _, r := range ranked {
		results = append(results, r.scheme)
	}
	return results, nil
}

func relevanceScore(s *models.Scheme, keywords []string) int {
	nameFields := []string{s.Name, s.NameHI, s.NameTA}
	descFields := []string{s.Description, s.DescriptionHI, s.DescriptionTA}

	score := 0
	for _, kw := range keywords {
		for _, f := range nameFields {
			if strings.Contains(strings.ToLower(f), kw) {
				score += 2
			}
		}
		for _, f := range descFields {
			if strings.Contains(strings.ToLower(f), kw) {
				score++
			}
		}
	}
	return score
}

// SearchSchemesByLanguage restricts the containment match to the single
// requested language's name/description fields.
func (c *Client) SearchSchemesByLanguage(ctx context.Context, keyword, language string) ([]models.Scheme, error) {
	nameCol, descCol := "name", "description"
	switch language {
	case "hi":
		nameCol, descCol = "name_hi", "description_hi"
	case "ta":
		nameCol, descCol = "name_ta", "description_ta"
	}

	query := fmt.Sprintf(`SELECT %s FROM schemes
		WHERE lower(%s) LIKE '%%' || lower(?) || '%%'
		   OR lower(%s) LIKE '%%' || lower(?) || '%%'`,
		schemeColumns, nameCol, descCol)

	return c.querySchemes(ctx, query, keyword, keyword)
}

func (c *Client) querySchemes(ctx context.Context, query string, args ...interface{}) ([]models.Scheme, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query schemes: %w", err)
	}
	defer rows.Close()

	var schemes []models.Scheme
	for rows.Next() {
		s, err := scanScheme(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan scheme row: %w", err)
		}
		schemes = append(schemes, *s)
	}
	return schemes, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanScheme(row rowScanner) (*models.Scheme, error) {
	var s models.Scheme
	var criteriaJSON, benefitsJSON, documentsJSON, stepsJSON string
	var createdAt, updatedAt int64

	err := row.Scan(
		&s.ID, &s.Name, &s.NameHI, &s.NameTA,
		&s.Description, &s.DescriptionHI, &s.DescriptionTA,
		&s.Category, &s.CategoryHI, &s.CategoryTA,
		&s.Eligibility, &s.EligibilityHI, &s.EligibilityTA,
		&criteriaJSON, &benefitsJSON, &documentsJSON, &stepsJSON,
		&s.Source, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	json.Unmarshal([]byte(criteriaJSON), &s.Criteria)
	json.Unmarshal([]byte(benefitsJSON), &s.Benefits)
	json.Unmarshal([]byte(documentsJSON), &s.Documents)
	json.Unmarshal([]byte(stepsJSON), &s.Steps)
	s.CreatedAt = time.Unix(createdAt, 0)
	s.UpdatedAt = time.Unix(updatedAt, 0)

	return &s, nil
}

func (c *Client) GetQueryRecord(ctx context.Context, normalizedForm string) (*models.QueryRecord, error) {
	row := c.db.QueryRowContext(ctx, `
		SELECT normalized_form, original_text, search_count, language, related_queries, last_seen_at, created_at
		FROM popular_queries WHERE normalized_form = ?`, normalizedForm)

	rec, err := scanQueryRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get query record: %w", err)
	}
	return rec, nil
}

func (c *Client) ListQueryRecords(ctx context.Context) ([]models.QueryRecord, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT normalized_form, original_text, search_count, language, related_queries, last_seen_at, created_at
		FROM popular_queries`)
	if err != nil {
		return nil, fmt.Errorf("failed to list query records: %w", err)
	}
	defer rows.Close()

	return collectQueryRecords(rows)
}

func (c *Client) TopQueryRecords(ctx context.Context, n int) ([]models.QueryRecord, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT normalized_form, original_text, search_count, language, related_queries, last_seen_at, created_at
		FROM popular_queries ORDER BY search_count DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("failed to get top query records: %w", err)
	}
	defer rows.Close()

	return collectQueryRecords(rows)
}

func (c *Client) InsertQueryRecord(ctx context.Context, rec *models.QueryRecord) error {
	relatedJSON, _ := json.Marshal(rec.RelatedQueries)

	_, err := c.db.ExecContext(ctx, `
		INSERT INTO popular_queries (normalized_form, original_text, search_count, language, related_queries, last_seen_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.NormalizedForm, rec.OriginalText, rec.SearchCount, rec.Language,
		string(relatedJSON), rec.LastSeenAt.Unix(), rec.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert query record: %w", err)
	}
	return nil
}

func (c *Client) UpdateQueryRecord(ctx context.Context, rec *models.QueryRecord) error {
	relatedJSON, _ := json.Marshal(rec.RelatedQueries)

	_, err := c.db.ExecContext(ctx, `
		UPDATE popular_queries
		SET search_count = ?, related_queries = ?, last_seen_at = ?
		WHERE normalized_form = ?`,
		rec.SearchCount, string(relatedJSON), rec.LastSeenAt.Unix(), rec.NormalizedForm,
	)
	if err != nil {
		return fmt.Errorf("failed to update query record: %w", err)
	}
	return nil
}

func scanQueryRecord(row rowScanner) (*models.QueryRecord, error) {
	var rec models.QueryRecord
	var relatedJSON string
	var lastSeen, createdAt int64

	err := row.Scan(&rec.NormalizedForm, &rec.OriginalText, &rec.SearchCount,
		&rec.Language, &relatedJSON, &lastSeen, &createdAt)
	if err != nil {
		return nil, err
	}

	json.Unmarshal([]byte(relatedJSON), &rec.RelatedQueries)
	rec.LastSeenAt = time.Unix(lastSeen, 0)
	rec.CreatedAt = time.Unix(createdAt, 0)
	return &rec, nil
}

func collectQueryRecords(rows *sql.Rows) ([]models.QueryRecord, error) {
	var records []models.QueryRecord
	for rows.Next() {
		rec, err := scanQueryRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan query record: %w", err)
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

func (c *Client) AppendConversationTurn(ctx context.Context, turn *models.ConversationTurn) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO conversations (session_id, user_id, question, answer, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		turn.SessionID, turn.UserID, turn.Question, turn.Answer, turn.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to append conversation turn: %w", err)
	}
	return nil
}

// RecentConversationTurns returns the last n turns for a session or
// user, oldest first.
func (c *Client) RecentConversationTurns(ctx context.Context, sessionID, userID string, n int) ([]models.ConversationTurn, error) {
	query := `
		SELECT id, session_id, user_id, question, answer, created_at
		FROM conversations
		WHERE (session_id = ? AND session_id != '') OR (user_id = ? AND user_id != '')
		ORDER BY created_at DESC, id DESC
		LIMIT ?`

	rows, err := c.db.QueryContext(ctx, query, sessionID, userID, n)
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation turns: %w", err)
	}
	defer rows.Close()

	var turns []models.ConversationTurn
	for rows.Next() {
		var t models.ConversationTurn
		var createdAt int64
		if err := rows.Scan(&t.ID, &t.SessionID, &t.UserID, &t.Question, &t.Answer, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan conversation turn: %w", err)
		}
		t.CreatedAt = time.Unix(createdAt, 0)
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// reverse newest-first into oldest-first
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

// InsertFAQ inserts a FAQ unless one with an identical question already
// exists. Returns whether a row was inserted. The UNIQUE constraint on
// question makes concurrent generation runs safe.
func (c *Client) InsertFAQ(ctx context.Context, faq *models.FAQ) (bool, error) {
	autoGenerated := 0
	if faq.IsAutoGenerated {
		autoGenerated = 1
	}

	res, err := c.db.ExecContext(ctx, `
		INSERT INTO faqs (id, question, answer, category, auto_generated, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(question) DO NOTHING`,
		faq.ID, faq.Question, faq.Answer, faq.Category, autoGenerated, faq.CreatedAt.Unix(),
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert FAQ: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read insert result: %w", err)
	}
	return affected > 0, nil
}

func (c *Client) ListFAQs(ctx context.Context, offset, limit int) ([]models.FAQ, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, question, answer, category, auto_generated, created_at
		FROM faqs ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list FAQs: %w", err)
	}
	defer rows.Close()

	var faqs []models.FAQ
	for rows.Next() {
		var f models.FAQ
		var autoGenerated int
		var createdAt int64
		if err := rows.Scan(&f.ID, &f.Question, &f.Answer, &f.Category, &autoGenerated, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan FAQ: %w", err)
		}
		f.IsAutoGenerated = autoGenerated == 1
		f.CreatedAt = time.Unix(createdAt, 0)
		faqs = append(faqs, f)
	}
	return faqs, rows.Err()
}

func (c *Client) CountFAQs(ctx context.Context) (int, error) {
	var count int
	err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM faqs`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count FAQs: %w", err)
	}
	return count, nil
}

func (c *Client) GetUserProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	var p models.UserProfile
	var age sql.NullInt64
	var income sql.NullFloat64

	err := c.db.QueryRowContext(ctx, `
		SELECT id, age, income, state, gender FROM user_profiles WHERE id = ?`, userID).
		Scan(&p.ID, &age, &income, &p.State, &p.Gender)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user profile: %w", err)
	}

	if age.Valid {
		v := int(age.Int64)
		p.Age = &v
	}
	if income.Valid {
		v := income.Float64
		p.Income = &v
	}
	return &p, nil
}
