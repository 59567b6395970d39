package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"archcanvas/internal/domain"
	"archcanvas/internal/notify"
	"archcanvas/internal/repository"

	_ "modernc.org/sqlite"
)

var _ repository.Repository = (*Repository)(nil)

var pragmas = []string{
	"PRAGMA foreign_keys = ON",
	"PRAGMA busy_timeout = 5000",
	"PRAGMA journal_mode = WAL",
}

// Repository implements repository.Repository using SQLite
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

// New creates a new SQLite repository. dbPath may be ":memory:".
func New(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps pragmas and in-memory databases consistent
	db.SetMaxOpenConns(1)

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("applying pragma %q: %w", pragma, err)
		}
	}

	repo := &Repository{db: db, now: time.Now}
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return repo, nil
}

func (r *Repository) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		architecture_id TEXT,
		architecture_name TEXT,
		save_seq INTEGER NOT NULL DEFAULT 0,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS components (
		session_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		local_id TEXT NOT NULL,
		remote_id TEXT NOT NULL,
		type TEXT NOT NULL,
		subtype TEXT,
		display_name TEXT NOT NULL,
		custom_name TEXT,
		heuristics JSON,
		properties JSON,
		position_x REAL NOT NULL DEFAULT 0,
		position_y REAL NOT NULL DEFAULT 0,
		PRIMARY KEY (session_id, local_id),
		FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS links (
		session_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		local_id TEXT NOT NULL,
		remote_id TEXT NOT NULL,
		source_id TEXT NOT NULL,
		target_id TEXT NOT NULL,
		link_type TEXT NOT NULL,
		label TEXT NOT NULL DEFAULT '',
		heuristics JSON,
		PRIMARY KEY (session_id, local_id),
		FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE,
		FOREIGN KEY (session_id, source_id) REFERENCES components(session_id, local_id) ON DELETE CASCADE,
		FOREIGN KEY (session_id, target_id) REFERENCES components(session_id, local_id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS notifications (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT,
		level TEXT NOT NULL,
		op TEXT NOT NULL,
		message TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_components_session ON components(session_id, seq);
	CREATE INDEX IF NOT EXISTS idx_links_session ON links(session_id, seq);
	CREATE INDEX IF NOT EXISTS idx_notifications_session ON notifications(session_id, id);
	`

	_, err := r.db.Exec(schema)
	return err
}

// SaveCanvas replaces the stored snapshot of the canvas's session.
// Optimistic edges are not written.
func (r *Repository) SaveCanvas(ctx context.Context, canvas *domain.Canvas) error {
	if canvas.SessionID == "" {
		return fmt.Errorf("save canvas: missing session id")
	}
	canvas = canvas.Confirmed()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var archID, archName sql.NullString
	if canvas.Architecture != nil {
		archID = stringToNull(canvas.Architecture.ID)
		archName = stringToNull(canvas.Architecture.Name)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sessions (id, architecture_id, architecture_name, save_seq, updated_at)
		VALUES (?, ?, ?, (SELECT COALESCE(MAX(save_seq), 0) + 1 FROM sessions), ?)
		ON CONFLICT(id) DO UPDATE SET
			architecture_id = excluded.architecture_id,
			architecture_name = excluded.architecture_name,
			save_seq = excluded.save_seq,
			updated_at = excluded.updated_at
	`, canvas.SessionID, archID, archName, timeToMillis(r.now()))
	if err != nil {
		return fmt.Errorf("failed to upsert session: %w", err)
	}

	// Links reference components, so clear them first
	if _, err := tx.ExecContext(ctx, `DELETE FROM links WHERE session_id = ?`, canvas.SessionID); err != nil {
		return fmt.Errorf("failed to clear links: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM components WHERE session_id = ?`, canvas.SessionID); err != nil {
		return fmt.Errorf("failed to clear components: %w", err)
	}

	for i, node := range canvas.Nodes {
		args, err := componentInsertArgs(node)
		if err != nil {
			return fmt.Errorf("component %s: %w", node.LocalID, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO components (session_id, seq, `+componentColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, append([]interface{}{canvas.SessionID, i}, args...)...)
		if err != nil {
			return fmt.Errorf("failed to insert component %s: %w", node.LocalID, err)
		}
	}

	for i, edge := range canvas.Edges {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO links (session_id, seq, `+linkColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, append([]interface{}{canvas.SessionID, i}, linkInsertArgs(edge)...)...)
		if err != nil {
			return fmt.Errorf("failed to insert link %s: %w", edge.LocalID, err)
		}
	}

	return tx.Commit()
}

// LoadCanvas loads the saved snapshot of a session
func (r *Repository) LoadCanvas(ctx context.Context, sessionID string) (*domain.Canvas, error) {
	var archID, archName sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT architecture_id, architecture_name FROM sessions WHERE id = ?
	`, sessionID).Scan(&archID, &archName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %s: %w", sessionID, repository.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	canvas := domain.NewCanvas(sessionID)
	if archID.Valid {
		canvas.Architecture = &domain.Architecture{ID: archID.String, Name: nullToString(archName)}
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+componentColumns+` FROM components WHERE session_id = ? ORDER BY seq
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query components: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var row componentRow
		if err := rows.Scan(row.scanArgs()...); err != nil {
			return nil, fmt.Errorf("failed to scan component: %w", err)
		}
		node, err := row.toDomain()
		if err != nil {
			return nil, fmt.Errorf("component %s: %w", row.LocalID, err)
		}
		canvas.AddNode(node)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating components: %w", err)
	}

	linkRows, err := r.db.QueryContext(ctx, `
		SELECT `+linkColumns+` FROM links WHERE session_id = ? ORDER BY seq
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query links: %w", err)
	}
	defer linkRows.Close()

	for linkRows.Next() {
		var row linkRow
		if err := linkRows.Scan(row.scanArgs()...); err != nil {
			return nil, fmt.Errorf("failed to scan link: %w", err)
		}
		canvas.AddEdge(row.toDomain())
	}
	if err := linkRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating links: %w", err)
	}

	return canvas, nil
}

// LatestSession returns the id of the most recently saved session
func (r *Repository) LatestSession(ctx context.Context) (string, error) {
	var id string
	err := r.db.QueryRowContext(ctx, `
		SELECT id FROM sessions ORDER BY save_seq DESC LIMIT 1
	`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("latest session: %w", repository.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to query latest session: %w", err)
	}
	return id, nil
}

// ListSessions returns every saved session, most recent first
func (r *Repository) ListSessions(ctx context.Context) ([]repository.SessionSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT s.id, s.architecture_id, s.architecture_name, s.updated_at,
			(SELECT COUNT(*) FROM components c WHERE c.session_id = s.id),
			(SELECT COUNT(*) FROM links l WHERE l.session_id = s.id)
		FROM sessions s
		ORDER BY s.save_seq DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]repository.SessionSummary, 0)
	for rows.Next() {
		var (
			s                sessionScan
			archID, archName sql.NullString
		)
		if err := rows.Scan(&s.ID, &archID, &archName, &s.UpdatedAt, &s.Nodes, &s.Edges); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, repository.SessionSummary{
			ID:               s.ID,
			ArchitectureID:   nullToString(archID),
			ArchitectureName: nullToString(archName),
			Nodes:            s.Nodes,
			Edges:            s.Edges,
			UpdatedAt:        millisToTime(s.UpdatedAt),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}
	return sessions, nil
}

// sessionScan holds the raw session columns read by ListSessions
type sessionScan struct {
	ID        string
	UpdatedAt int64
	Nodes     int
	Edges     int
}

// DeleteSession removes a session's snapshot and journal
func (r *Repository) DeleteSession(ctx context.Context, sessionID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("session %s: %w", sessionID, repository.ErrNotFound)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM notifications WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("failed to delete notifications: %w", err)
	}
	return tx.Commit()
}

// AppendNotification adds a notification to the journal
func (r *Repository) AppendNotification(ctx context.Context, n notify.Notification) error {
	at := n.Time
	if at.IsZero() {
		at = r.now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO notifications (`+notificationColumns+`) VALUES (?, ?, ?, ?, ?)
	`, stringToNull(n.SessionID), string(n.Level), n.Op, n.Message, timeToMillis(at))
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

// Notifications returns up to limit of a session's most recent
// notifications, oldest first. A limit of zero or less returns all of them.
func (r *Repository) Notifications(ctx context.Context, sessionID string, limit int) ([]notify.Notification, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+notificationColumns+` FROM (
			SELECT id, `+notificationColumns+` FROM notifications
			WHERE session_id = ?
			ORDER BY id DESC LIMIT ?
		) ORDER BY id
	`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	out := make([]notify.Notification, 0)
	for rows.Next() {
		var row notificationRow
		if err := rows.Scan(row.scanArgs()...); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		out = append(out, row.toDomain())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notifications: %w", err)
	}
	return out, nil
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.db.Close()
}
