package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sellerdesk/trust-engine/internal/model"
)

// pgPool is the subset of pgxpool.Pool the store uses; pgxmock satisfies it.
type pgPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool pgPool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS patterns (
	id                         TEXT PRIMARY KEY,
	store_id                   TEXT NOT NULL,
	pattern_hash               TEXT NOT NULL,
	canonical_question         TEXT NOT NULL,
	canonical_answer           TEXT,
	occurrence_count           INTEGER NOT NULL DEFAULT 1,
	approval_count             INTEGER NOT NULL DEFAULT 0,
	rejection_count            INTEGER NOT NULL DEFAULT 0,
	modification_count         INTEGER NOT NULL DEFAULT 0,
	confidence_score           DOUBLE PRECISION NOT NULL DEFAULT 0,
	seniority_level            TEXT NOT NULL DEFAULT 'JUNIOR',
	auto_submit_eligible       BOOLEAN NOT NULL DEFAULT FALSE,
	auto_submit_enabled_at     TIMESTAMPTZ,
	auto_submit_disable_reason TEXT,
	product_id                 TEXT,
	category                   TEXT,
	first_seen_at              TIMESTAMPTZ NOT NULL,
	last_seen_at               TIMESTAMPTZ NOT NULL,
	last_human_review          TIMESTAMPTZ,
	updated_at                 TIMESTAMPTZ NOT NULL,
	UNIQUE(store_id, pattern_hash)
);

CREATE TABLE IF NOT EXISTS questions (
	id          TEXT PRIMARY KEY,
	store_id    TEXT NOT NULL,
	text        TEXT NOT NULL,
	text_hash   TEXT NOT NULL,
	answer_text TEXT,
	pattern_id  TEXT REFERENCES patterns(id),
	created_at  TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS suggestions (
	id                 TEXT PRIMARY KEY,
	store_id           TEXT NOT NULL,
	suggested_title    TEXT NOT NULL,
	suggested_content  TEXT NOT NULL,
	sample_questions   JSONB NOT NULL,
	question_count     INTEGER NOT NULL,
	priority           TEXT NOT NULL,
	status             TEXT NOT NULL DEFAULT 'PENDING',
	knowledge_entry_id TEXT,
	created_at         TIMESTAMPTZ NOT NULL,
	updated_at         TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS alerts (
	id                TEXT PRIMARY KEY,
	store_id          TEXT NOT NULL,
	question_id       TEXT,
	type              TEXT NOT NULL,
	severity          TEXT NOT NULL,
	source_a          TEXT NOT NULL,
	source_b          TEXT,
	detected_keywords JSONB NOT NULL,
	status            TEXT NOT NULL DEFAULT 'ACTIVE',
	resolution_notes  TEXT,
	resolved_by       TEXT,
	resolved_at       TIMESTAMPTZ,
	created_at        TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS knowledge_entries (
	id         TEXT PRIMARY KEY,
	store_id   TEXT NOT NULL,
	title      TEXT NOT NULL,
	content    TEXT NOT NULL,
	priority   TEXT NOT NULL,
	active     BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_patterns_store_hash ON patterns(store_id, pattern_hash);
CREATE INDEX IF NOT EXISTS idx_questions_store_created ON questions(store_id, created_at);
CREATE INDEX IF NOT EXISTS idx_suggestions_store_status ON suggestions(store_id, status);
CREATE INDEX IF NOT EXISTS idx_alerts_question ON alerts(question_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreatePattern(ctx context.Context, p *model.CanonicalPattern) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO patterns (`+patternColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`,
		p.ID, p.StoreID, p.PatternHash, p.CanonicalQuestion, nullStr(p.CanonicalAnswer),
		p.OccurrenceCount, p.ApprovalCount, p.RejectionCount, p.ModificationCount,
		p.ConfidenceScore, string(p.SeniorityLevel), p.AutoSubmitEligible, p.AutoSubmitEnabledAt,
		nullStr(p.AutoSubmitDisableReason), nullStr(p.ProductID), nullStr(p.Category),
		p.FirstSeenAt, p.LastSeenAt, p.LastHumanReview, p.UpdatedAt,
	)
	return eris.Wrapf(err, "postgres: insert pattern %s", p.ID)
}

func (s *PostgresStore) GetPattern(ctx context.Context, id string) (*model.CanonicalPattern, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+patternColumns+` FROM patterns WHERE id = $1`, id)
	p, err := scanPattern(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(model.ErrNotFound, "postgres: pattern %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get pattern %s", id)
	}
	return p, nil
}

func (s *PostgresStore) GetPatternByHash(ctx context.Context, storeID, hash string) (*model.CanonicalPattern, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+patternColumns+` FROM patterns WHERE store_id = $1 AND pattern_hash = $2`,
		storeID, hash)
	p, err := scanPattern(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get pattern by hash")
	}
	return p, nil
}

func (s *PostgresStore) ListPatterns(ctx context.Context, filter PatternFilter) ([]model.CanonicalPattern, error) {
	query := `SELECT ` + patternColumns + ` FROM patterns WHERE 1=1`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.StoreID != "" {
		query += ` AND store_id = ` + arg(filter.StoreID)
	}
	if filter.Level != "" {
		query += ` AND seniority_level = ` + arg(string(filter.Level))
	}
	if filter.EligibleOnly {
		query += ` AND auto_submit_eligible`
	}
	if filter.ProductID != "" {
		query += ` AND product_id = ` + arg(filter.ProductID)
	}
	if filter.Category != "" {
		query += ` AND category = ` + arg(filter.Category)
	}
	query += ` ORDER BY first_seen_at ASC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 1000
	}
	query += ` LIMIT ` + arg(limit)
	if filter.Offset > 0 {
		query += ` OFFSET ` + arg(filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list patterns")
	}
	defer rows.Close()

	var patterns []model.CanonicalPattern
	for rows.Next() {
		p, err := scanPattern(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan pattern")
		}
		patterns = append(patterns, *p)
	}
	return patterns, eris.Wrap(rows.Err(), "postgres: list patterns iterate")
}

func (s *PostgresStore) IncrementOccurrence(ctx context.Context, id string, seenAt time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE patterns SET occurrence_count = occurrence_count + 1, last_seen_at = $1, updated_at = $2
		 WHERE id = $3`,
		seenAt, seenAt, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: increment occurrence %s", id)
	}
	return checkTag(tag, "pattern", id)
}

// UpdatePatternScoring writes back the review counters and derived trust
// state. occurrence_count and last_seen_at are owned by IncrementOccurrence
// and deliberately left out, so a concurrent bump is never overwritten by a
// stale in-memory copy.
func (s *PostgresStore) UpdatePatternScoring(ctx context.Context, p *model.CanonicalPattern) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE patterns SET
			canonical_answer = $1, approval_count = $2,
			rejection_count = $3, modification_count = $4, confidence_score = $5,
			seniority_level = $6, auto_submit_eligible = $7, auto_submit_enabled_at = $8,
			auto_submit_disable_reason = $9, last_human_review = $10, updated_at = $11
		 WHERE id = $12`,
		nullStr(p.CanonicalAnswer), p.ApprovalCount,
		p.RejectionCount, p.ModificationCount, p.ConfidenceScore,
		string(p.SeniorityLevel), p.AutoSubmitEligible, p.AutoSubmitEnabledAt,
		nullStr(p.AutoSubmitDisableReason), p.LastHumanReview, p.UpdatedAt,
		p.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update pattern scoring %s", p.ID)
	}
	return checkTag(tag, "pattern", p.ID)
}

func (s *PostgresStore) ListAwaitingAutoSubmit(ctx context.Context) ([]model.CanonicalPattern, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+patternColumns+` FROM patterns
		 WHERE auto_submit_enabled_at IS NOT NULL AND NOT auto_submit_eligible`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list awaiting auto-submit")
	}
	defer rows.Close()

	var patterns []model.CanonicalPattern
	for rows.Next() {
		p, err := scanPattern(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan pattern")
		}
		patterns = append(patterns, *p)
	}
	return patterns, eris.Wrap(rows.Err(), "postgres: list awaiting iterate")
}

func (s *PostgresStore) CreateQuestion(ctx context.Context, q *model.CustomerQuestion) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO questions (id, store_id, text, text_hash, answer_text, pattern_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		q.ID, q.StoreID, q.Text, q.TextHash, nullStr(q.AnswerText), nullStr(q.PatternID), q.CreatedAt,
	)
	return eris.Wrapf(err, "postgres: insert question %s", q.ID)
}

func (s *PostgresStore) GetQuestion(ctx context.Context, id string) (*model.CustomerQuestion, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, store_id, text, text_hash, answer_text, pattern_id, created_at
		 FROM questions WHERE id = $1`, id)
	q, err := scanQuestion(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(model.ErrNotFound, "postgres: question %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get question %s", id)
	}
	return q, nil
}

func (s *PostgresStore) LinkQuestionPattern(ctx context.Context, questionID, patternID, answerText string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE questions SET pattern_id = $1, answer_text = $2 WHERE id = $3`,
		patternID, nullStr(answerText), questionID)
	if err != nil {
		return eris.Wrapf(err, "postgres: link question %s", questionID)
	}
	return checkTag(tag, "question", questionID)
}

func (s *PostgresStore) ListUnpatternedQuestions(ctx context.Context, storeID string, since time.Time) ([]model.CustomerQuestion, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, store_id, text, text_hash, answer_text, pattern_id, created_at
		 FROM questions
		 WHERE store_id = $1 AND pattern_id IS NULL AND created_at >= $2
		 ORDER BY created_at ASC`,
		storeID, since)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list unpatterned questions")
	}
	defer rows.Close()

	var questions []model.CustomerQuestion
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan question")
		}
		questions = append(questions, *q)
	}
	return questions, eris.Wrap(rows.Err(), "postgres: list questions iterate")
}

func (s *PostgresStore) ListStoreIDs(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT store_id FROM questions ORDER BY store_id`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list store ids")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "postgres: scan store id")
		}
		ids = append(ids, id)
	}
	return ids, eris.Wrap(rows.Err(), "postgres: list store ids iterate")
}

func (s *PostgresStore) CreateSuggestion(ctx context.Context, sg *model.KnowledgeSuggestion) error {
	samples, err := json.Marshal(sg.SampleQuestions)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal sample questions")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO suggestions (id, store_id, suggested_title, suggested_content,
			sample_questions, question_count, priority, status, knowledge_entry_id,
			created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		sg.ID, sg.StoreID, sg.SuggestedTitle, sg.SuggestedContent,
		string(samples), sg.QuestionCount, string(sg.Priority), string(sg.Status),
		nullStr(sg.KnowledgeEntryID), sg.CreatedAt, sg.UpdatedAt,
	)
	return eris.Wrapf(err, "postgres: insert suggestion %s", sg.ID)
}

func (s *PostgresStore) GetSuggestion(ctx context.Context, id string) (*model.KnowledgeSuggestion, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, store_id, suggested_title, suggested_content, sample_questions,
			question_count, priority, status, knowledge_entry_id, created_at, updated_at
		 FROM suggestions WHERE id = $1`, id)
	sg, err := scanSuggestion(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(model.ErrNotFound, "postgres: suggestion %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get suggestion %s", id)
	}
	return sg, nil
}

func (s *PostgresStore) ListPendingSuggestions(ctx context.Context, storeID string) ([]model.KnowledgeSuggestion, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, store_id, suggested_title, suggested_content, sample_questions,
			question_count, priority, status, knowledge_entry_id, created_at, updated_at
		 FROM suggestions WHERE store_id = $1 AND status = 'PENDING'
		 ORDER BY created_at ASC`,
		storeID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list pending suggestions")
	}
	defer rows.Close()

	var suggestions []model.KnowledgeSuggestion
	for rows.Next() {
		sg, err := scanSuggestion(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan suggestion")
		}
		suggestions = append(suggestions, *sg)
	}
	return suggestions, eris.Wrap(rows.Err(), "postgres: list suggestions iterate")
}

func (s *PostgresStore) UpdateSuggestion(ctx context.Context, sg *model.KnowledgeSuggestion) error {
	samples, err := json.Marshal(sg.SampleQuestions)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal sample questions")
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE suggestions SET suggested_title = $1, suggested_content = $2,
			sample_questions = $3, question_count = $4, priority = $5, status = $6,
			knowledge_entry_id = $7, updated_at = $8
		 WHERE id = $9`,
		sg.SuggestedTitle, sg.SuggestedContent, string(samples), sg.QuestionCount,
		string(sg.Priority), string(sg.Status), nullStr(sg.KnowledgeEntryID),
		sg.UpdatedAt, sg.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update suggestion %s", sg.ID)
	}
	return checkTag(tag, "suggestion", sg.ID)
}

func (s *PostgresStore) CreateAlert(ctx context.Context, a *model.ConflictAlert) error {
	keywords, err := json.Marshal(a.DetectedKeywords)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal detected keywords")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO alerts (id, store_id, question_id, type, severity, source_a,
			source_b, detected_keywords, status, resolution_notes, resolved_by,
			resolved_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		a.ID, a.StoreID, nullStr(a.QuestionID), string(a.Type), string(a.Severity),
		a.SourceA, nullStr(a.SourceB), string(keywords), string(a.Status),
		nullStr(a.ResolutionNotes), nullStr(a.ResolvedBy), a.ResolvedAt, a.CreatedAt,
	)
	return eris.Wrapf(err, "postgres: insert alert %s", a.ID)
}

func (s *PostgresStore) GetAlert(ctx context.Context, id string) (*model.ConflictAlert, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, store_id, question_id, type, severity, source_a, source_b,
			detected_keywords, status, resolution_notes, resolved_by, resolved_at, created_at
		 FROM alerts WHERE id = $1`, id)
	a, err := scanAlert(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(model.ErrNotFound, "postgres: alert %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get alert %s", id)
	}
	return a, nil
}

func (s *PostgresStore) UpdateAlert(ctx context.Context, a *model.ConflictAlert) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE alerts SET status = $1, resolution_notes = $2, resolved_by = $3, resolved_at = $4
		 WHERE id = $5`,
		string(a.Status), nullStr(a.ResolutionNotes), nullStr(a.ResolvedBy), a.ResolvedAt, a.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update alert %s", a.ID)
	}
	return checkTag(tag, "alert", a.ID)
}

func (s *PostgresStore) HasActiveCriticalAlert(ctx context.Context, questionID string) (bool, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(1) FROM alerts
		 WHERE question_id = $1 AND status = 'ACTIVE' AND severity = 'CRITICAL'`,
		questionID).Scan(&n)
	if err != nil {
		return false, eris.Wrap(err, "postgres: count critical alerts")
	}
	return n > 0, nil
}

func (s *PostgresStore) CreateKnowledgeEntry(ctx context.Context, e *model.KnowledgeEntry) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO knowledge_entries (id, store_id, title, content, priority, active, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.StoreID, e.Title, e.Content, string(e.Priority), e.Active, e.CreatedAt,
	)
	return eris.Wrapf(err, "postgres: insert knowledge entry %s", e.ID)
}

func (s *PostgresStore) ListActiveKnowledge(ctx context.Context, storeID string) ([]model.KnowledgeEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, store_id, title, content, priority, active, created_at
		 FROM knowledge_entries WHERE store_id = $1 AND active
		 ORDER BY created_at ASC`,
		storeID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list active knowledge")
	}
	defer rows.Close()

	var entries []model.KnowledgeEntry
	for rows.Next() {
		var e model.KnowledgeEntry
		var priority string
		if err := rows.Scan(&e.ID, &e.StoreID, &e.Title, &e.Content, &priority, &e.Active, &e.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan knowledge entry")
		}
		e.Priority = model.SuggestionPriority(priority)
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "postgres: list knowledge iterate")
}

func checkTag(tag pgconn.CommandTag, entity, id string) error {
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(model.ErrNotFound, "%s %s", entity, id)
	}
	return nil
}
