package ticket

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database and provisions the
// questions table. A store that cannot be provisioned fails here, at startup,
// rather than on first use.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("ticket store: open: %w", err)
	}

	// Enable WAL mode for better concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("ticket store: wal: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS questions (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			channel     TEXT NOT NULL,
			user_id     TEXT NOT NULL,
			user_name   TEXT NOT NULL DEFAULT '',
			chat_id     TEXT NOT NULL,
			question    TEXT NOT NULL,
			answered    INTEGER NOT NULL DEFAULT 0,
			created_at  TEXT NOT NULL,
			answered_at TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_questions_answered ON questions(answered);
		CREATE INDEX IF NOT EXISTS idx_questions_user ON questions(user_id);
	`)
	if err != nil {
		return fmt.Errorf("ticket store: migrate: %w", err)
	}
	return nil
}

// Create inserts the ticket and returns the assigned ID in one statement, so
// concurrent intakes can never observe the same ID.
func (s *SQLiteStore) Create(t *Ticket) (int64, error) {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	var id int64
	err := s.db.QueryRow(`
		INSERT INTO questions (channel, user_id, user_name, chat_id, question, answered, created_at)
		VALUES (?, ?, ?, ?, ?, 0, ?)
		RETURNING id
	`, t.Channel, t.UserID, t.UserName, t.ChatID, t.Question, t.CreatedAt.Format(time.RFC3339)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("ticket store: create: %w", err)
	}
	t.ID = id
	return id, nil
}

func (s *SQLiteStore) Get(id int64) (*Ticket, error) {
	row := s.db.QueryRow(`SELECT id, channel, user_id, user_name, chat_id, question, answered, created_at, answered_at
		FROM questions WHERE id = ?`, id)
	t, err := scanTicket(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ticket store: get: %w", err)
	}
	return t, nil
}

func (s *SQLiteStore) FindOpen(id int64) (*Ticket, error) {
	row := s.db.QueryRow(`SELECT id, channel, user_id, user_name, chat_id, question, answered, created_at, answered_at
		FROM questions WHERE id = ? AND answered = 0`, id)
	t, err := scanTicket(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ticket store: find open: %w", err)
	}
	return t, nil
}

// MarkAnswered flips the answered flag. The answered=0 predicate makes the
// flip race-safe under operator double-sends: only one update can win.
func (s *SQLiteStore) MarkAnswered(id int64) error {
	now := time.Now().Format(time.RFC3339)
	result, err := s.db.Exec(`UPDATE questions SET answered = 1, answered_at = ? WHERE id = ? AND answered = 0`,
		now, id)
	if err != nil {
		return fmt.Errorf("ticket store: mark answered: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) List(filter Filter) ([]*Ticket, error) {
	query := `SELECT id, channel, user_id, user_name, chat_id, question, answered, created_at, answered_at
		FROM questions WHERE 1=1`
	var args []any

	if filter.Answered != nil {
		query += " AND answered = ?"
		args = append(args, boolToInt(*filter.Answered))
	}
	if filter.Channel != "" {
		query += " AND channel = ?"
		args = append(args, filter.Channel)
	}
	query += " ORDER BY id DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("ticket store: list: %w", err)
	}
	defer rows.Close()

	var tickets []*Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("ticket store: list scan: %w", err)
		}
		tickets = append(tickets, t)
	}
	return tickets, rows.Err()
}

func (s *SQLiteStore) Count(filter Filter) (int, error) {
	query := "SELECT COUNT(*) FROM questions WHERE 1=1"
	var args []any

	if filter.Answered != nil {
		query += " AND answered = ?"
		args = append(args, boolToInt(*filter.Answered))
	}
	if filter.Channel != "" {
		query += " AND channel = ?"
		args = append(args, filter.Channel)
	}

	var count int
	if err := s.db.QueryRow(query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("ticket store: count: %w", err)
	}
	return count, nil
}

func (s *SQLiteStore) ListOverdue(cutoff time.Time) ([]*Ticket, error) {
	rows, err := s.db.Query(`SELECT id, channel, user_id, user_name, chat_id, question, answered, created_at, answered_at
		FROM questions WHERE answered = 0 AND created_at < ? ORDER BY id`,
		cutoff.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("ticket store: list overdue: %w", err)
	}
	defer rows.Close()

	var tickets []*Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("ticket store: overdue scan: %w", err)
		}
		tickets = append(tickets, t)
	}
	return tickets, rows.Err()
}

// DB returns the underlying database connection (for testing or direct access).
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// --- helpers ---

type scannable interface {
	Scan(dest ...any) error
}

func scanTicket(row scannable) (*Ticket, error) {
	var t Ticket
	var answered int
	var createdAt string
	var answeredAt *string

	err := row.Scan(&t.ID, &t.Channel, &t.UserID, &t.UserName, &t.ChatID,
		&t.Question, &answered, &createdAt, &answeredAt)
	if err != nil {
		return nil, err
	}

	t.Answered = answered != 0
	t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	if answeredAt != nil {
		at, _ := time.Parse(time.RFC3339, *answeredAt)
		t.AnsweredAt = &at
	}
	return &t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
