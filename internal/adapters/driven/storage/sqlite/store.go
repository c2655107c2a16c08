package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/filingwatch/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/filingwatch/internal/core/domain"
	"github.com/custodia-labs/filingwatch/internal/core/ports/driven"
)

// DatabaseFile is the file name of the database inside the data directory.
const DatabaseFile = "filingwatch.db"

// Store is a unified SQLite-based storage that provides access to
// all store interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store in the specified data directory.
// If dataDir is empty, defaults to ~/.filingwatch/data.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".filingwatch", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, DatabaseFile)

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// FilingStore returns a FilingStore interface backed by this store.
func (s *Store) FilingStore() driven.FilingStore {
	return &filingStore{store: s}
}

// SubscriptionStore returns a SubscriptionStore interface backed by this store.
func (s *Store) SubscriptionStore() driven.SubscriptionStore {
	return &subscriptionStore{store: s}
}

// UserStore returns a UserStore interface backed by this store.
func (s *Store) UserStore() driven.UserStore {
	return &userStore{store: s}
}

// SchedulerStore returns a SchedulerStore interface backed by this store.
func (s *Store) SchedulerStore() driven.SchedulerStore {
	return &schedulerStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Filing Store ====================

// filingStore implements driven.FilingStore.
type filingStore struct {
	store *Store
}

var _ driven.FilingStore = (*filingStore)(nil)

const filingColumns = `id, form_type, filed_date, ingested_at, updated_at, source_path,
	issuer_cik, issuer_name, documents, form_data`

// Get retrieves a filing by ID.
func (s *filingStore) Get(ctx context.Context, id string) (*domain.OwnershipFiling, error) {
	row := s.store.db.QueryRowContext(ctx, "SELECT "+filingColumns+" FROM filings WHERE id = ?", id)
	filing, err := scanFiling(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	owners, err := s.owners(ctx, s.store.db, id)
	if err != nil {
		return nil, err
	}
	filing.OwnerCIKs = owners
	return filing, nil
}

// FiledDate reads the filed_date column alone, leaving the payload unread.
func (s *filingStore) FiledDate(ctx context.Context, id string) (time.Time, error) {
	var filed string
	err := s.store.db.QueryRowContext(ctx, "SELECT filed_date FROM filings WHERE id = ?", id).Scan(&filed)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, domain.ErrNotFound
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("querying filed date of %s: %w", id, err)
	}
	t, err := time.Parse(time.DateOnly, filed)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing filed date %q: %w", filed, err)
	}
	return t, nil
}

// Insert stores a new filing.
func (s *filingStore) Insert(ctx context.Context, filing *domain.OwnershipFiling) error {
	documents, formData, err := marshalFilingPayload(filing)
	if err != nil {
		return err
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	err = tx.QueryRowContext(ctx, "SELECT 1 FROM filings WHERE id = ?", filing.ID).Scan(&exists)
	if err == nil {
		return domain.ErrAlreadyExists
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("checking filing: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO filings (`+filingColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, filing.ID, filing.FormType, formatDate(filing.FiledDate),
		filing.IngestedAt.UnixNano(), filing.UpdatedAt.UnixNano(), filing.SourcePath,
		nullString(filing.IssuerCIK), nullString(filing.IssuerName), documents, formData)
	if err != nil {
		return fmt.Errorf("inserting filing: %w", err)
	}

	if err := s.saveOwners(ctx, tx, filing.ID, filing.OwnerCIKs); err != nil {
		return err
	}
	return tx.Commit()
}

// Replace overwrites a filing, keeping its original ingested_at.
func (s *filingStore) Replace(ctx context.Context, filing *domain.OwnershipFiling) error {
	documents, formData, err := marshalFilingPayload(filing)
	if err != nil {
		return err
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		UPDATE filings SET
			form_type = ?,
			filed_date = ?,
			updated_at = ?,
			source_path = ?,
			issuer_cik = ?,
			issuer_name = ?,
			documents = ?,
			form_data = ?
		WHERE id = ?
	`, filing.FormType, formatDate(filing.FiledDate), filing.UpdatedAt.UnixNano(), filing.SourcePath,
		nullString(filing.IssuerCIK), nullString(filing.IssuerName), documents, formData, filing.ID)
	if err != nil {
		return fmt.Errorf("updating filing: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM filing_owners WHERE filing_id = ?", filing.ID); err != nil {
		return fmt.Errorf("clearing owners: %w", err)
	}
	if err := s.saveOwners(ctx, tx, filing.ID, filing.OwnerCIKs); err != nil {
		return err
	}
	return tx.Commit()
}

// LatestFiledDate returns the most recent filed date.
func (s *filingStore) LatestFiledDate(ctx context.Context) (time.Time, error) {
	var latest sql.NullString
	if err := s.store.db.QueryRowContext(ctx, "SELECT MAX(filed_date) FROM filings").Scan(&latest); err != nil {
		return time.Time{}, fmt.Errorf("querying latest filed date: %w", err)
	}
	if !latest.Valid || latest.String == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.DateOnly, latest.String)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing filed date %q: %w", latest.String, err)
	}
	return t, nil
}

// Query returns matching filings ordered by ingested_at ascending.
func (s *filingStore) Query(ctx context.Context, q domain.FilingQuery) ([]domain.OwnershipFiling, error) {
	var (
		where = []string{"f.ingested_at > ?"}
		args  = []any{q.IngestedAfter.UnixNano()}
	)
	if len(q.FormTypes) > 0 {
		where = append(where, "f.form_type IN ("+placeholders(len(q.FormTypes))+")")
		args = appendStrings(args, q.FormTypes)
	}
	if len(q.IssuerCIKs) > 0 {
		where = append(where, "f.issuer_cik IN ("+placeholders(len(q.IssuerCIKs))+")")
		args = appendStrings(args, q.IssuerCIKs)
	}
	if len(q.OwnerCIKs) > 0 {
		where = append(where, `EXISTS (SELECT 1 FROM filing_owners o
			WHERE o.filing_id = f.id AND o.owner_cik IN (`+placeholders(len(q.OwnerCIKs))+`))`)
		args = appendStrings(args, q.OwnerCIKs)
	}
	if q.IngestedAfter.IsZero() {
		// The zero time predates the Unix epoch; accept everything.
		where[0] = "1 = 1"
		args = args[1:]
	}

	rows, err := s.store.db.QueryContext(ctx, "SELECT "+prefixColumns("f.", filingColumns)+
		" FROM filings f WHERE "+strings.Join(where, " AND ")+
		" ORDER BY f.ingested_at ASC, f.id ASC", args...)
	if err != nil {
		return nil, fmt.Errorf("querying filings: %w", err)
	}
	defer rows.Close()

	var filings []domain.OwnershipFiling //nolint:prealloc // size unknown from query
	for rows.Next() {
		filing, err := scanFiling(rows)
		if err != nil {
			return nil, err
		}
		filings = append(filings, *filing)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating filings: %w", err)
	}

	for i := range filings {
		owners, err := s.owners(ctx, s.store.db, filings[i].ID)
		if err != nil {
			return nil, err
		}
		filings[i].OwnerCIKs = owners
	}
	return filings, nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *filingStore) owners(ctx context.Context, q queryer, filingID string) ([]string, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT owner_cik FROM filing_owners WHERE filing_id = ? ORDER BY position", filingID)
	if err != nil {
		return nil, fmt.Errorf("querying owners: %w", err)
	}
	defer rows.Close()

	var owners []string
	for rows.Next() {
		var cik string
		if err := rows.Scan(&cik); err != nil {
			return nil, fmt.Errorf("scanning owner: %w", err)
		}
		owners = append(owners, cik)
	}
	return owners, rows.Err()
}

func (s *filingStore) saveOwners(ctx context.Context, tx *sql.Tx, filingID string, owners []string) error {
	for i, cik := range owners {
		_, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO filing_owners (filing_id, owner_cik, position)
			VALUES (?, ?, ?)
		`, filingID, cik, i)
		if err != nil {
			return fmt.Errorf("saving owner: %w", err)
		}
	}
	return nil
}

// ==================== User Store ====================

// userStore implements driven.UserStore.
type userStore struct {
	store *Store
}

var _ driven.UserStore = (*userStore)(nil)

// Get retrieves a user by ID.
func (s *userStore) Get(ctx context.Context, id string) (*domain.User, error) {
	var user domain.User
	var name sql.NullString
	err := s.store.db.QueryRowContext(ctx, "SELECT id, email, name FROM users WHERE id = ?", id).
		Scan(&user.ID, &user.Email, &name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning user: %w", err)
	}
	user.Name = name.String
	return &user, nil
}

// Save stores or updates a user.
func (s *userStore) Save(ctx context.Context, user *domain.User) error {
	if user == nil || user.Email == "" {
		return domain.ErrInvalidInput
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO users (id, email, name) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			email = excluded.email,
			name = excluded.name
	`, user.ID, user.Email, nullString(user.Name))
	if err != nil {
		return fmt.Errorf("saving user: %w", err)
	}
	return nil
}

// ==================== Subscription Store ====================

// subscriptionStore implements driven.SubscriptionStore.
type subscriptionStore struct {
	store *Store
}

var _ driven.SubscriptionStore = (*subscriptionStore)(nil)

const subscriptionColumns = `id, user_id, issuer_ciks, owner_ciks, form_types, description,
	created_at, last_triggered`

// Save stores or updates a subscription.
func (s *subscriptionStore) Save(ctx context.Context, sub *domain.Subscription) error {
	if sub == nil || sub.UserID == "" {
		return domain.ErrInvalidInput
	}
	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now()
	}

	issuers, err := marshalList(sub.IssuerCIKs)
	if err != nil {
		return err
	}
	owners, err := marshalList(sub.OwnerCIKs)
	if err != nil {
		return err
	}
	formTypes, err := marshalList(sub.FormTypes)
	if err != nil {
		return err
	}

	var lastTriggered any
	if sub.LastTriggered != nil {
		lastTriggered = sub.LastTriggered.UnixNano()
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO subscriptions (`+subscriptionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			issuer_ciks = excluded.issuer_ciks,
			owner_ciks = excluded.owner_ciks,
			form_types = excluded.form_types,
			description = excluded.description,
			created_at = excluded.created_at,
			last_triggered = excluded.last_triggered
	`, sub.ID, sub.UserID, issuers, owners, formTypes, nullString(sub.Description),
		sub.CreatedAt.UnixNano(), lastTriggered)
	if err != nil {
		return fmt.Errorf("saving subscription: %w", err)
	}
	return nil
}

// Get retrieves a subscription by ID.
func (s *subscriptionStore) Get(ctx context.Context, id string) (*domain.Subscription, error) {
	row := s.store.db.QueryRowContext(ctx, "SELECT "+subscriptionColumns+" FROM subscriptions WHERE id = ?", id)
	sub, err := scanSubscription(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return sub, err
}

// Delete removes a subscription.
func (s *subscriptionStore) Delete(ctx context.Context, id string) error {
	res, err := s.store.db.ExecContext(ctx, "DELETE FROM subscriptions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting subscription: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListGroupedByUser returns subscriptions grouped by user.
func (s *subscriptionStore) ListGroupedByUser(ctx context.Context) ([]domain.UserSubscriptions, error) {
	rows, err := s.store.db.QueryContext(ctx, "SELECT "+subscriptionColumns+
		" FROM subscriptions ORDER BY user_id, created_at, id")
	if err != nil {
		return nil, fmt.Errorf("querying subscriptions: %w", err)
	}
	defer rows.Close()

	var groups []domain.UserSubscriptions
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		if n := len(groups); n == 0 || groups[n-1].UserID != sub.UserID {
			groups = append(groups, domain.UserSubscriptions{UserID: sub.UserID})
		}
		last := &groups[len(groups)-1]
		last.Subscriptions = append(last.Subscriptions, *sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating subscriptions: %w", err)
	}
	return groups, nil
}

// UpdateLastTriggered advances last_triggered, never moving it backwards.
func (s *subscriptionStore) UpdateLastTriggered(ctx context.Context, id string, at time.Time) error {
	res, err := s.store.db.ExecContext(ctx, `
		UPDATE subscriptions SET last_triggered = ?
		WHERE id = ? AND (last_triggered IS NULL OR last_triggered < ?)
	`, at.UnixNano(), id, at.UnixNano())
	if err != nil {
		return fmt.Errorf("updating last triggered: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}

	var exists int
	err = s.store.db.QueryRowContext(ctx, "SELECT 1 FROM subscriptions WHERE id = ?", id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("checking subscription: %w", err)
	}
	return nil
}

// ==================== Helper Functions ====================

type scanner interface {
	Scan(dest ...any) error
}

// scanFiling scans a filing row, without owners.
func scanFiling(row scanner) (*domain.OwnershipFiling, error) {
	var filing domain.OwnershipFiling
	var filedDate, documents string
	var ingestedAt, updatedAt int64
	var issuerCIK, issuerName, formData sql.NullString

	if err := row.Scan(&filing.ID, &filing.FormType, &filedDate, &ingestedAt, &updatedAt,
		&filing.SourcePath, &issuerCIK, &issuerName, &documents, &formData); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning filing: %w", err)
	}

	filed, err := time.Parse(time.DateOnly, filedDate)
	if err != nil {
		return nil, fmt.Errorf("parsing filed date %q: %w", filedDate, err)
	}
	filing.FiledDate = filed
	filing.IngestedAt = time.Unix(0, ingestedAt).UTC()
	filing.UpdatedAt = time.Unix(0, updatedAt).UTC()
	filing.IssuerCIK = issuerCIK.String
	filing.IssuerName = issuerName.String

	if err := json.Unmarshal([]byte(documents), &filing.Documents); err != nil {
		return nil, fmt.Errorf("unmarshalling documents: %w", err)
	}
	if formData.Valid && formData.String != "" {
		var form domain.OwnershipForm
		if err := json.Unmarshal([]byte(formData.String), &form); err != nil {
			return nil, fmt.Errorf("unmarshalling form data: %w", err)
		}
		filing.FormData = &form
	}
	return &filing, nil
}

// scanSubscription scans a subscription row.
func scanSubscription(row scanner) (*domain.Subscription, error) {
	var sub domain.Subscription
	var issuers, owners, formTypes string
	var description sql.NullString
	var createdAt int64
	var lastTriggered sql.NullInt64

	if err := row.Scan(&sub.ID, &sub.UserID, &issuers, &owners, &formTypes, &description,
		&createdAt, &lastTriggered); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning subscription: %w", err)
	}

	for _, f := range []struct {
		raw  string
		dest *[]string
	}{{issuers, &sub.IssuerCIKs}, {owners, &sub.OwnerCIKs}, {formTypes, &sub.FormTypes}} {
		if err := json.Unmarshal([]byte(f.raw), f.dest); err != nil {
			return nil, fmt.Errorf("unmarshalling subscription list: %w", err)
		}
	}

	sub.Description = description.String
	sub.CreatedAt = time.Unix(0, createdAt).UTC()
	if lastTriggered.Valid {
		t := time.Unix(0, lastTriggered.Int64).UTC()
		sub.LastTriggered = &t
	}
	return &sub, nil
}

// marshalFilingPayload encodes documents and the optional form as JSON.
func marshalFilingPayload(filing *domain.OwnershipFiling) (documents string, formData any, err error) {
	docs := filing.Documents
	if docs == nil {
		docs = []domain.EmbeddedDocument{}
	}
	raw, err := json.Marshal(docs)
	if err != nil {
		return "", nil, fmt.Errorf("marshalling documents: %w", err)
	}
	if filing.FormData == nil {
		return string(raw), nil, nil
	}
	form, err := json.Marshal(filing.FormData)
	if err != nil {
		return "", nil, fmt.Errorf("marshalling form data: %w", err)
	}
	return string(raw), string(form), nil
}

func marshalList(list []string) (string, error) {
	if list == nil {
		list = []string{}
	}
	raw, err := json.Marshal(list)
	if err != nil {
		return "", fmt.Errorf("marshalling list: %w", err)
	}
	return string(raw), nil
}

func formatDate(t time.Time) string {
	return domain.DayOf(t).Format(time.DateOnly)
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func appendStrings(args []any, values []string) []any {
	for _, v := range values {
		args = append(args, v)
	}
	return args
}

func prefixColumns(prefix, columns string) string {
	parts := strings.Split(columns, ",")
	for i, part := range parts {
		parts[i] = prefix + strings.TrimSpace(part)
	}
	return strings.Join(parts, ", ")
}
