package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sellerdesk/trust-engine/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
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
	confidence_score           REAL NOT NULL DEFAULT 0,
	seniority_level            TEXT NOT NULL DEFAULT 'JUNIOR',
	auto_submit_eligible       INTEGER NOT NULL DEFAULT 0,
	auto_submit_enabled_at     DATETIME,
	auto_submit_disable_reason TEXT,
	product_id                 TEXT,
	category                   TEXT,
	first_seen_at              DATETIME NOT NULL,
	last_seen_at               DATETIME NOT NULL,
	last_human_review          DATETIME,
	updated_at                 DATETIME NOT NULL,
	UNIQUE(store_id, pattern_hash)
);

CREATE TABLE IF NOT EXISTS questions (
	id          TEXT PRIMARY KEY,
	store_id    TEXT NOT NULL,
	text        TEXT NOT NULL,
	text_hash   TEXT NOT NULL,
	answer_text TEXT,
	pattern_id  TEXT REFERENCES patterns(id),
	created_at  DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS suggestions (
	id                 TEXT PRIMARY KEY,
	store_id           TEXT NOT NULL,
	suggested_title    TEXT NOT NULL,
	suggested_content  TEXT NOT NULL,
	sample_questions   TEXT NOT NULL,
	question_count     INTEGER NOT NULL,
	priority           TEXT NOT NULL,
	status             TEXT NOT NULL DEFAULT 'PENDING',
	knowledge_entry_id TEXT,
	created_at         DATETIME NOT NULL,
	updated_at         DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS alerts (
	id                TEXT PRIMARY KEY,
	store_id          TEXT NOT NULL,
	question_id       TEXT,
	type              TEXT NOT NULL,
	severity          TEXT NOT NULL,
	source_a          TEXT NOT NULL,
	source_b          TEXT,
	detected_keywords TEXT NOT NULL,
	status            TEXT NOT NULL DEFAULT 'ACTIVE',
	resolution_notes  TEXT,
	resolved_by       TEXT,
	resolved_at       DATETIME,
	created_at        DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS knowledge_entries (
	id         TEXT PRIMARY KEY,
	store_id   TEXT NOT NULL,
	title      TEXT NOT NULL,
	content    TEXT NOT NULL,
	priority   TEXT NOT NULL,
	active     INTEGER NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_patterns_store_hash ON patterns(store_id, pattern_hash);
CREATE INDEX IF NOT EXISTS idx_patterns_level ON patterns(seniority_level);
CREATE INDEX IF NOT EXISTS idx_questions_store_created ON questions(store_id, created_at);
CREATE INDEX IF NOT EXISTS idx_questions_pattern ON questions(pattern_id);
CREATE INDEX IF NOT EXISTS idx_suggestions_store_status ON suggestions(store_id, status);
CREATE INDEX IF NOT EXISTS idx_alerts_question ON alerts(question_id);
CREATE INDEX IF NOT EXISTS idx_alerts_status ON alerts(status);
CREATE INDEX IF NOT EXISTS idx_knowledge_store_active ON knowledge_entries(store_id, active);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const patternColumns = `id, store_id, pattern_hash, canonical_question, canonical_answer,
	occurrence_count, approval_count, rejection_count, modification_count,
	confidence_score, seniority_level, auto_submit_eligible, auto_submit_enabled_at,
	auto_submit_disable_reason, product_id, category,
	first_seen_at, last_seen_at, last_human_review, updated_at`

func (s *SQLiteStore) CreatePattern(ctx context.Context, p *model.CanonicalPattern) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO patterns (`+patternColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.StoreID, p.PatternHash, p.CanonicalQuestion, nullStr(p.CanonicalAnswer),
		p.OccurrenceCount, p.ApprovalCount, p.RejectionCount, p.ModificationCount,
		p.ConfidenceScore, string(p.SeniorityLevel), p.AutoSubmitEligible, p.AutoSubmitEnabledAt,
		nullStr(p.AutoSubmitDisableReason), nullStr(p.ProductID), nullStr(p.Category),
		p.FirstSeenAt, p.LastSeenAt, p.LastHumanReview, p.UpdatedAt,
	)
	return eris.Wrapf(err, "sqlite: insert pattern %s", p.ID)
}

func (s *SQLiteStore) GetPattern(ctx context.Context, id string) (*model.CanonicalPattern, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+patternColumns+` FROM patterns WHERE id = ?`, id)
	p, err := scanPattern(row)
	if err == sql.ErrNoRows {
		return nil, eris.Wrapf(model.ErrNotFound, "sqlite: pattern %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get pattern %s", id)
	}
	return p, nil
}

func (s *SQLiteStore) GetPatternByHash(ctx context.Context, storeID, hash string) (*model.CanonicalPattern, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+patternColumns+` FROM patterns WHERE store_id = ? AND pattern_hash = ?`,
		storeID, hash)
	p, err := scanPattern(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get pattern by hash")
	}
	return p, nil
}

func (s *SQLiteStore) ListPatterns(ctx context.Context, filter PatternFilter) ([]model.CanonicalPattern, error) {
	query := `SELECT ` + patternColumns + ` FROM patterns WHERE 1=1`
	var args []any

	if filter.StoreID != "" {
		query += ` AND store_id = ?`
		args = append(args, filter.StoreID)
	}
	if filter.Level != "" {
		query += ` AND seniority_level = ?`
		args = append(args, string(filter.Level))
	}
	if filter.EligibleOnly {
		query += ` AND auto_submit_eligible = 1`
	}
	if filter.ProductID != "" {
		query += ` AND product_id = ?`
		args = append(args, filter.ProductID)
	}
	if filter.Category != "" {
		query += ` AND category = ?`
		args = append(args, filter.Category)
	}
	query += ` ORDER BY first_seen_at ASC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 1000
	}
	query += ` LIMIT ?`
	args = append(args, limit)
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list patterns")
	}
	defer rows.Close()

	var patterns []model.CanonicalPattern
	for rows.Next() {
		p, err := scanPattern(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan pattern")
		}
		patterns = append(patterns, *p)
	}
	return patterns, eris.Wrap(rows.Err(), "sqlite: list patterns iterate")
}

func (s *SQLiteStore) IncrementOccurrence(ctx context.Context, id string, seenAt time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE patterns SET occurrence_count = occurrence_count + 1, last_seen_at = ?, updated_at = ?
		 WHERE id = ?`,
		seenAt, seenAt, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: increment occurrence %s", id)
	}
	return checkRowsAffected(res, "pattern", id)
}

// UpdatePatternScoring writes back the review counters and derived trust
// state. occurrence_count and last_seen_at are owned by IncrementOccurrence
// and deliberately left out, so a concurrent bump is never overwritten by a
// stale in-memory copy.
func (s *SQLiteStore) UpdatePatternScoring(ctx context.Context, p *model.CanonicalPattern) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE patterns SET
			canonical_answer = ?, approval_count = ?,
			rejection_count = ?, modification_count = ?, confidence_score = ?,
			seniority_level = ?, auto_submit_eligible = ?, auto_submit_enabled_at = ?,
			auto_submit_disable_reason = ?, last_human_review = ?, updated_at = ?
		 WHERE id = ?`,
		nullStr(p.CanonicalAnswer), p.ApprovalCount,
		p.RejectionCount, p.ModificationCount, p.ConfidenceScore,
		string(p.SeniorityLevel), p.AutoSubmitEligible, p.AutoSubmitEnabledAt,
		nullStr(p.AutoSubmitDisableReason), p.LastHumanReview, p.UpdatedAt,
		p.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update pattern scoring %s", p.ID)
	}
	return checkRowsAffected(res, "pattern", p.ID)
}

func (s *SQLiteStore) ListAwaitingAutoSubmit(ctx context.Context) ([]model.CanonicalPattern, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+patternColumns+` FROM patterns
		 WHERE auto_submit_enabled_at IS NOT NULL AND auto_submit_eligible = 0`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list awaiting auto-submit")
	}
	defer rows.Close()

	var patterns []model.CanonicalPattern
	for rows.Next() {
		p, err := scanPattern(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan pattern")
		}
		patterns = append(patterns, *p)
	}
	return patterns, eris.Wrap(rows.Err(), "sqlite: list awaiting iterate")
}

func (s *SQLiteStore) CreateQuestion(ctx context.Context, q *model.CustomerQuestion) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO questions (id, store_id, text, text_hash, answer_text, pattern_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		q.ID, q.StoreID, q.Text, q.TextHash, nullStr(q.AnswerText), nullStr(q.PatternID), q.CreatedAt,
	)
	return eris.Wrapf(err, "sqlite: insert question %s", q.ID)
}

func (s *SQLiteStore) GetQuestion(ctx context.Context, id string) (*model.CustomerQuestion, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, store_id, text, text_hash, answer_text, pattern_id, created_at
		 FROM questions WHERE id = ?`, id)
	q, err := scanQuestion(row)
	if err == sql.ErrNoRows {
		return nil, eris.Wrapf(model.ErrNotFound, "sqlite: question %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get question %s", id)
	}
	return q, nil
}

func (s *SQLiteStore) LinkQuestionPattern(ctx context.Context, questionID, patternID, answerText string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE questions SET pattern_id = ?, answer_text = ? WHERE id = ?`,
		patternID, nullStr(answerText), questionID)
	if err != nil {
		return eris.Wrapf(err, "sqlite: link question %s", questionID)
	}
	return checkRowsAffected(res, "question", questionID)
}

func (s *SQLiteStore) ListUnpatternedQuestions(ctx context.Context, storeID string, since time.Time) ([]model.CustomerQuestion, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, store_id, text, text_hash, answer_text, pattern_id, created_at
		 FROM questions
		 WHERE store_id = ? AND pattern_id IS NULL AND created_at >= ?
		 ORDER BY created_at ASC`,
		storeID, since)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list unpatterned questions")
	}
	defer rows.Close()

	var questions []model.CustomerQuestion
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan question")
		}
		questions = append(questions, *q)
	}
	return questions, eris.Wrap(rows.Err(), "sqlite: list questions iterate")
}

func (s *SQLiteStore) ListStoreIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT store_id FROM questions ORDER BY store_id`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list store ids")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan store id")
		}
		ids = append(ids, id)
	}
	return ids, eris.Wrap(rows.Err(), "sqlite: list store ids iterate")
}

func (s *SQLiteStore) CreateSuggestion(ctx context.Context, sg *model.KnowledgeSuggestion) error {
	samples, err := json.Marshal(sg.SampleQuestions)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal sample questions")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO suggestions (id, store_id, suggested_title, suggested_content,
			sample_questions, question_count, priority, status, knowledge_entry_id,
			created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sg.ID, sg.StoreID, sg.SuggestedTitle, sg.SuggestedContent,
		string(samples), sg.QuestionCount, string(sg.Priority), string(sg.Status),
		nullStr(sg.KnowledgeEntryID), sg.CreatedAt, sg.UpdatedAt,
	)
	return eris.Wrapf(err, "sqlite: insert suggestion %s", sg.ID)
}

func (s *SQLiteStore) GetSuggestion(ctx context.Context, id string) (*model.KnowledgeSuggestion, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, store_id, suggested_title, suggested_content, sample_questions,
			question_count, priority, status, knowledge_entry_id, created_at, updated_at
		 FROM suggestions WHERE id = ?`, id)
	sg, err := scanSuggestion(row)
	if err == sql.ErrNoRows {
		return nil, eris.Wrapf(model.ErrNotFound, "sqlite: suggestion %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get suggestion %s", id)
	}
	return sg, nil
}

func (s *SQLiteStore) ListPendingSuggestions(ctx context.Context, storeID string) ([]model.KnowledgeSuggestion, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, store_id, suggested_title, suggested_content, sample_questions,
			question_count, priority, status, knowledge_entry_id, created_at, updated_at
		 FROM suggestions WHERE store_id = ? AND status = 'PENDING'
		 ORDER BY created_at ASC`,
		storeID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list pending suggestions")
	}
	defer rows.Close()

	var suggestions []model.KnowledgeSuggestion
	for rows.Next() {
		sg, err := scanSuggestion(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan suggestion")
		}
		suggestions = append(suggestions, *sg)
	}
	return suggestions, eris.Wrap(rows.Err(), "sqlite: list suggestions iterate")
}

func (s *SQLiteStore) UpdateSuggestion(ctx context.Context, sg *model.KnowledgeSuggestion) error {
	samples, err := json.Marshal(sg.SampleQuestions)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal sample questions")
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE suggestions SET suggested_title = ?, suggested_content = ?,
			sample_questions = ?, question_count = ?, priority = ?, status = ?,
			knowledge_entry_id = ?, updated_at = ?
		 WHERE id = ?`,
		sg.SuggestedTitle, sg.SuggestedContent, string(samples), sg.QuestionCount,
		string(sg.Priority), string(sg.Status), nullStr(sg.KnowledgeEntryID),
		sg.UpdatedAt, sg.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update suggestion %s", sg.ID)
	}
	return checkRowsAffected(res, "suggestion", sg.ID)
}

func (s *SQLiteStore) CreateAlert(ctx context.Context, a *model.ConflictAlert) error {
	keywords, err := json.Marshal(a.DetectedKeywords)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal detected keywords")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO alerts (id, store_id, question_id, type, severity, source_a,
			source_b, detected_keywords, status, resolution_notes, resolved_by,
			resolved_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.StoreID, nullStr(a.QuestionID), string(a.Type), string(a.Severity),
		a.SourceA, nullStr(a.SourceB), string(keywords), string(a.Status),
		nullStr(a.ResolutionNotes), nullStr(a.ResolvedBy), a.ResolvedAt, a.CreatedAt,
	)
	return eris.Wrapf(err, "sqlite: insert alert %s", a.ID)
}

func (s *SQLiteStore) GetAlert(ctx context.Context, id string) (*model.ConflictAlert, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, store_id, question_id, type, severity, source_a, source_b,
			detected_keywords, status, resolution_notes, resolved_by, resolved_at, created_at
		 FROM alerts WHERE id = ?`, id)
	a, err := scanAlert(row)
	if err == sql.ErrNoRows {
		return nil, eris.Wrapf(model.ErrNotFound, "sqlite: alert %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get alert %s", id)
	}
	return a, nil
}

func (s *SQLiteStore) UpdateAlert(ctx context.Context, a *model.ConflictAlert) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE alerts SET status = ?, resolution_notes = ?, resolved_by = ?, resolved_at = ?
		 WHERE id = ?`,
		string(a.Status), nullStr(a.ResolutionNotes), nullStr(a.ResolvedBy), a.ResolvedAt, a.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update alert %s", a.ID)
	}
	return checkRowsAffected(res, "alert", a.ID)
}

func (s *SQLiteStore) HasActiveCriticalAlert(ctx context.Context, questionID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM alerts
		 WHERE question_id = ? AND status = 'ACTIVE' AND severity = 'CRITICAL'`,
		questionID).Scan(&n)
	if err != nil {
		return false, eris.Wrap(err, "sqlite: count critical alerts")
	}
	return n > 0, nil
}

func (s *SQLiteStore) CreateKnowledgeEntry(ctx context.Context, e *model.KnowledgeEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO knowledge_entries (id, store_id, title, content, priority, active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.StoreID, e.Title, e.Content, string(e.Priority), e.Active, e.CreatedAt,
	)
	return eris.Wrapf(err, "sqlite: insert knowledge entry %s", e.ID)
}

func (s *SQLiteStore) ListActiveKnowledge(ctx context.Context, storeID string) ([]model.KnowledgeEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, store_id, title, content, priority, active, created_at
		 FROM knowledge_entries WHERE store_id = ? AND active = 1
		 ORDER BY created_at ASC`,
		storeID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list active knowledge")
	}
	defer rows.Close()

	var entries []model.KnowledgeEntry
	for rows.Next() {
		var e model.KnowledgeEntry
		var priority string
		if err := rows.Scan(&e.ID, &e.StoreID, &e.Title, &e.Content, &priority, &e.Active, &e.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan knowledge entry")
		}
		e.Priority = model.SuggestionPriority(priority)
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "sqlite: list knowledge iterate")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(model.ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

type scannable interface {
	Scan(dest ...any) error
}

func scanPattern(row scannable) (*model.CanonicalPattern, error) {
	var p model.CanonicalPattern
	var answer, disableReason, productID, category sql.NullString
	var level string
	var enabledAt, lastReview sql.NullTime

	err := row.Scan(
		&p.ID, &p.StoreID, &p.PatternHash, &p.CanonicalQuestion, &answer,
		&p.OccurrenceCount, &p.ApprovalCount, &p.RejectionCount, &p.ModificationCount,
		&p.ConfidenceScore, &level, &p.AutoSubmitEligible, &enabledAt,
		&disableReason, &productID, &category,
		&p.FirstSeenAt, &p.LastSeenAt, &lastReview, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.CanonicalAnswer = answer.String
	p.SeniorityLevel = model.SeniorityLevel(level)
	p.AutoSubmitDisableReason = disableReason.String
	p.ProductID = productID.String
	p.Category = category.String
	if enabledAt.Valid {
		t := enabledAt.Time
		p.AutoSubmitEnabledAt = &t
	}
	if lastReview.Valid {
		t := lastReview.Time
		p.LastHumanReview = &t
	}
	return &p, nil
}

func scanQuestion(row scannable) (*model.CustomerQuestion, error) {
	var q model.CustomerQuestion
	var answer, patternID sql.NullString
	err := row.Scan(&q.ID, &q.StoreID, &q.Text, &q.TextHash, &answer, &patternID, &q.CreatedAt)
	if err != nil {
		return nil, err
	}
	q.AnswerText = answer.String
	q.PatternID = patternID.String
	return &q, nil
}

func scanSuggestion(row scannable) (*model.KnowledgeSuggestion, error) {
	var sg model.KnowledgeSuggestion
	var samples, priority, status string
	var entryID sql.NullString
	err := row.Scan(&sg.ID, &sg.StoreID, &sg.SuggestedTitle, &sg.SuggestedContent,
		&samples, &sg.QuestionCount, &priority, &status, &entryID,
		&sg.CreatedAt, &sg.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(samples), &sg.SampleQuestions); err != nil {
		return nil, eris.Wrap(err, "unmarshal sample questions")
	}
	sg.Priority = model.SuggestionPriority(priority)
	sg.Status = model.SuggestionStatus(status)
	sg.KnowledgeEntryID = entryID.String
	return &sg, nil
}

func scanAlert(row scannable) (*model.ConflictAlert, error) {
	var a model.ConflictAlert
	var questionID, sourceB, notes, resolvedBy sql.NullString
	var keywords, typ, severity, status string
	var resolvedAt sql.NullTime
	err := row.Scan(&a.ID, &a.StoreID, &questionID, &typ, &severity, &a.SourceA,
		&sourceB, &keywords, &status, &notes, &resolvedBy, &resolvedAt, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(keywords), &a.DetectedKeywords); err != nil {
		return nil, eris.Wrap(err, "unmarshal detected keywords")
	}
	a.QuestionID = questionID.String
	a.Type = model.ConflictType(typ)
	a.Severity = model.AlertSeverity(severity)
	a.SourceB = sourceB.String
	a.Status = model.AlertStatus(status)
	a.ResolutionNotes = notes.String
	a.ResolvedBy = resolvedBy.String
	if resolvedAt.Valid {
		t := resolvedAt.Time
		a.ResolvedAt = &t
	}
	return &a, nil
}
