package db

import (
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/mutecomm/go-sqlcipher/v4" // SQLCipher driver
	"github.com/rs/zerolog"

	"github.com/Vansh-Raja/mremote-sync/internal/crypto"
	"github.com/Vansh-Raja/mremote-sync/internal/watch"
)

// FileName is the database file inside the data directory.
const FileName = "sources.db"

const schemaVersion = "1"

// The store key is derived with a fixed salt; SQLCipher adds its own
// per-database salt on top.
var storeSalt = []byte("mremote-sync-sqlcipher-salt-v1")

// Store persists linked sources in an encrypted SQLite database. It
// implements watch.Repository and watch.Notifier.
type Store struct {
	db   *sql.DB
	path string
	log  zerolog.Logger

	notifyOnce sync.Once
	changes    chan struct{}
	done       chan struct{}
	closeOnce  sync.Once
	wg         sync.WaitGroup

	versionMu   sync.Mutex
	dataVersion int64
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Store) { s.log = log }
}

var (
	_ watch.Repository = (*Store)(nil)
	_ watch.Notifier   = (*Store)(nil)
)

// Path returns the database path inside dataDir.
func Path(dataDir string) string {
	return filepath.Join(dataDir, FileName)
}

// Exists reports whether a database file is present at path.
func Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Open opens or creates the database at path, keyed by passphrase. An
// existing database is verified read-only first so a wrong passphrase can
// never write a fresh schema over it.
func Open(path, passphrase string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	exists, err := Exists(path)
	if err != nil {
		return nil, err
	}

	key, _, err := crypto.DeriveKey(passphrase, storeSalt)
	if err != nil {
		return nil, fmt.Errorf("failed to derive store key: %w", err)
	}
	keyHex := hex.EncodeToString(key)

	if exists {
		ro, err := sql.Open("sqlite3", dsn(path, keyHex, "ro"))
		if err != nil {
			return nil, err
		}
		if err := verifyUnlocked(ro); err != nil {
			ro.Close()
			return nil, classifyUnlockError(err, path)
		}
		_ = ro.Close()
	}

	conn, err := sql.Open("sqlite3", dsn(path, keyHex, "rwc"))
	if err != nil {
		return nil, err
	}
	// One connection, so PRAGMA data_version only moves for other writers.
	conn.SetMaxOpenConns(1)

	if err := createSchema(conn); err != nil {
		conn.Close()
		return nil, classifyUnlockError(err, path)
	}

	s := &Store{
		db:      conn,
		path:    path,
		log:     zerolog.Nop(),
		changes: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With().Str("component", "store").Logger()

	if v, err := s.readDataVersion(); err == nil {
		s.dataVersion = v
	}
	return s, nil
}

func dsn(path, keyHex, mode string) string {
	return fmt.Sprintf("file:%s?mode=%s&_pragma_key=x'%s'&_pragma_cipher_page_size=4096", path, mode, keyHex)
}

// Close stops change notifications and closes the database.
func (s *Store) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	s.wg.Wait()
	return s.db.Close()
}

func verifyUnlocked(db *sql.DB) error {
	// With a wrong key SQLCipher cannot read any page.
	var name string
	err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' LIMIT 1").Scan(&name)
	if err != nil && err != sql.ErrNoRows {
		return err
	}

	hasMeta, err := hasTable(db, "meta")
	if err != nil {
		return err
	}
	if !hasMeta {
		return fmt.Errorf("locked or uninitialized")
	}
	var version string
	if err := db.QueryRow("SELECT value FROM meta WHERE key = 'schema_version'").Scan(&version); err != nil {
		return err
	}
	if version == "" {
		return fmt.Errorf("missing schema version")
	}
	return nil
}

func classifyUnlockError(err error, path string) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(msg, "requires cgo"),
		strings.Contains(msg, "compiled with 'cgo_enabled=0'"):
		return fmt.Errorf("this binary was built without CGO support; rebuild with CGO_ENABLED=1")
	case strings.Contains(msg, "database is locked"),
		strings.Contains(msg, "database is busy"):
		return fmt.Errorf("database is in use by another process: %s", path)
	case strings.Contains(msg, "permission denied"),
		strings.Contains(msg, "access is denied"):
		return fmt.Errorf("cannot access database file: %s", path)
	case strings.Contains(msg, "file is encrypted"),
		strings.Contains(msg, "file is not a database"),
		strings.Contains(msg, "locked or uninitialized"),
		strings.Contains(msg, "missing schema version"):
		return fmt.Errorf("invalid passphrase for database: %s", path)
	default:
		return fmt.Errorf("failed to open database: %w", err)
	}
}

func hasTable(db *sql.DB, name string) (bool, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", name).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS linked_sources (
		id TEXT PRIMARY KEY,
		file_name TEXT NOT NULL,
		file_path TEXT,
		source_url TEXT,
		linked_at TEXT,
		file_hash TEXT,
		last_notified_hash TEXT,
		last_checked_at TEXT,
		interval_ms INTEGER DEFAULT 0,
		merge_options TEXT,
		updated_at TEXT
	);
	`)
	if err != nil {
		return err
	}

	// Added after the first release.
	if err := ensureColumn(db, "linked_sources", "download_pattern", "TEXT"); err != nil {
		return err
	}

	_, err = db.Exec("INSERT OR IGNORE INTO meta (key, value) VALUES ('schema_version', ?)", schemaVersion)
	return err
}

func ensureColumn(db *sql.DB, table, column, typ string) error {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return err
	}
	found := false
	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notnull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			rows.Close()
			return err
		}
		if name == column {
			found = true
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()
	if found {
		return nil
	}
	_, err = db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, typ))
	return err
}

const sourceColumns = `id, file_name, file_path, source_url, download_pattern, linked_at,
	file_hash, last_notified_hash, last_checked_at, interval_ms, merge_options`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSource(row rowScanner) (*watch.LinkedSource, error) {
	var (
		src                                         watch.LinkedSource
		filePath, sourceURL, pattern                sql.NullString
		linkedAt, fileHash, notifiedHash, checkedAt sql.NullString
		mergeOptions                                sql.NullString
		intervalMs                                  sql.NullInt64
	)
	err := row.Scan(&src.ID, &src.FileName, &filePath, &sourceURL, &pattern, &linkedAt,
		&fileHash, &notifiedHash, &checkedAt, &intervalMs, &mergeOptions)
	if err != nil {
		return nil, err
	}
	src.FilePath = filePath.String
	src.SourceURL = sourceURL.String
	src.DownloadPattern = pattern.String
	src.LinkedAt = parseTimestamp(linkedAt.String)
	src.FileHash = fileHash.String
	src.LastNotifiedHash = notifiedHash.String
	src.LastCheckedAt = parseTimestamp(checkedAt.String)
	src.IntervalMs = intervalMs.Int64
	if mergeOptions.String != "" {
		if err := json.Unmarshal([]byte(mergeOptions.String), &src.MergeOptions); err != nil {
			return nil, fmt.Errorf("failed to decode merge options for %s: %w", src.ID, err)
		}
	}
	return &src, nil
}

// Get returns the source with the given id or watch.ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (*watch.LinkedSource, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+sourceColumns+" FROM linked_sources WHERE id = ?", id)
	src, err := scanSource(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, watch.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load linked source: %w", err)
	}
	return src, nil
}

// Put inserts or replaces src.
func (s *Store) Put(ctx context.Context, src *watch.LinkedSource) error {
	if src == nil || src.ID == "" {
		return errors.New("linked source id is empty")
	}
	opts, err := json.Marshal(src.MergeOptions)
	if err != nil {
		return fmt.Errorf("failed to encode merge options: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
	INSERT INTO linked_sources (`+sourceColumns+`, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		file_name = excluded.file_name,
		file_path = excluded.file_path,
		source_url = excluded.source_url,
		download_pattern = excluded.download_pattern,
		linked_at = excluded.linked_at,
		file_hash = excluded.file_hash,
		last_notified_hash = excluded.last_notified_hash,
		last_checked_at = excluded.last_checked_at,
		interval_ms = excluded.interval_ms,
		merge_options = excluded.merge_options,
		updated_at = excluded.updated_at`,
		src.ID, src.FileName, src.FilePath, src.SourceURL, src.DownloadPattern,
		formatTimestamp(src.LinkedAt), src.FileHash, src.LastNotifiedHash,
		formatTimestamp(src.LastCheckedAt), src.IntervalMs, string(opts),
		formatTimestamp(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("failed to save linked source: %w", err)
	}
	return nil
}

// Update replaces an existing source. It returns watch.ErrNotFound when the
// source was removed, so a late write cannot bring it back.
func (s *Store) Update(ctx context.Context, src *watch.LinkedSource) error {
	if src == nil || src.ID == "" {
		return errors.New("linked source id is empty")
	}
	opts, err := json.Marshal(src.MergeOptions)
	if err != nil {
		return fmt.Errorf("failed to encode merge options: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
	UPDATE linked_sources SET
		file_name = ?,
		file_path = ?,
		source_url = ?,
		download_pattern = ?,
		linked_at = ?,
		file_hash = ?,
		last_notified_hash = ?,
		last_checked_at = ?,
		interval_ms = ?,
		merge_options = ?,
		updated_at = ?
	WHERE id = ?`,
		src.FileName, src.FilePath, src.SourceURL, src.DownloadPattern,
		formatTimestamp(src.LinkedAt), src.FileHash, src.LastNotifiedHash,
		formatTimestamp(src.LastCheckedAt), src.IntervalMs, string(opts),
		formatTimestamp(time.Now()), src.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update linked source: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return watch.ErrNotFound
	}
	return nil
}

// List returns all sources ordered by link time.
func (s *Store) List(ctx context.Context) ([]*watch.LinkedSource, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+sourceColumns+" FROM linked_sources ORDER BY linked_at, id")
	if err != nil {
		return nil, fmt.Errorf("failed to list linked sources: %w", err)
	}
	defer rows.Close()

	var out []*watch.LinkedSource
	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, src)
	}
	return out, rows.Err()
}

// Remove deletes a source.
func (s *Store) Remove(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM linked_sources WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to remove linked source: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return watch.ErrNotFound
	}
	return nil
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTimestamp accepts the formats SQLite and older rows use.
func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05.999999999",
	}
	for _, f := range formats {
		if t, err := time.Parse(f, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
