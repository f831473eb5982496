// Package database provides database connection management, migrations, and data access methods for the AuthorHash registry.
package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/librisventures/authorhash/internal/config"
	"github.com/librisventures/authorhash/internal/database/models"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrDuplicateReference is returned when a certificate insert collides with
// an existing reference.
var ErrDuplicateReference = errors.New("certificate reference already exists")

// Database represents the database connection and operations
type Database struct {
	db     *sql.DB
	dbType string
}

// New creates a new database connection
func New(cfg *config.Config) (*Database, error) {
	var db *sql.DB
	var err error

	switch cfg.Database.Type {
	case "sqlite":
		db, err = sql.Open("sqlite3", cfg.Database.SQLite.Path+"?_foreign_keys=on")
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite database: %w", err)
		}
		// SQLite only allows one writer at a time
		db.SetMaxOpenConns(1)
	case "postgres":
		db, err = sql.Open("postgres", cfg.GetDSN())
		if err != nil {
			return nil, fmt.Errorf("failed to open PostgreSQL database: %w", err)
		}
		db.SetMaxOpenConns(cfg.Database.Postgres.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Database.Postgres.MaxIdleConns)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Database.Type)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Database{
		db:     db,
		dbType: cfg.Database.Type,
	}, nil
}

// Close closes the database connection
func (d *Database) Close() error {
	return d.db.Close()
}

// Migrate runs database migrations
func (d *Database) Migrate() error {
	var migrationFiles []string
	if d.dbType == "postgres" {
		migrationFiles = []string{
			"migrations/000001_init_schema.postgres.up.sql",
		}
	} else {
		migrationFiles = []string{
			"migrations/000001_init_schema.up.sql",
		}
	}

	for _, migrationFile := range migrationFiles {
		content, err := migrationsFS.ReadFile(migrationFile)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", migrationFile, err)
		}

		// Remove comments and split into statements
		var statements []string
		lines := strings.Split(string(content), "\n")
		var currentStmt strings.Builder

		for _, line := range lines {
			line = strings.TrimSpace(line)
			if strings.HasPrefix(line, "--") || line == "" {
				continue
			}

			currentStmt.WriteString(line)
			currentStmt.WriteString("\n")

			if strings.HasSuffix(line, ";") {
				stmt := strings.TrimSpace(currentStmt.String())
				if stmt != "" {
					statements = append(statements, stmt)
				}
				currentStmt.Reset()
			}
		}

		for _, stmt := range statements {
			if _, err := d.db.Exec(stmt); err != nil {
				// Ignore "already exists" errors for idempotent migrations
				if !strings.Contains(err.Error(), "already exists") {
					return fmt.Errorf("migration %s failed: %w\nStatement: %s", migrationFile, err, stmt)
				}
			}
		}
	}

	return nil
}

// DB returns the underlying database connection for direct queries
func (d *Database) DB() *sql.DB {
	return d.db
}

// isUniqueViolation reports whether err is a unique-constraint failure in
// either supported dialect.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}

// Certificate operations

// CreateCertificate persists the public and private rows of a certificate in
// a single transaction. Both rows land or neither does.
func (d *Database) CreateCertificate(cert *models.Certificate, priv *models.CertificatePrivate) error {
	pubQuery := `INSERT INTO certificates (id, reference, content_hash, registered_at, anchor_status, created_at)
	             VALUES (?, ?, ?, ?, ?, ?)`
	privQuery := `INSERT INTO certificate_private (reference, registrant_email, anchor_proof, payment_transaction_id, created_at)
	              VALUES (?, ?, ?, ?, ?)`

	if d.dbType == "postgres" {
		pubQuery = `INSERT INTO certificates (id, reference, content_hash, registered_at, anchor_status, created_at)
		            VALUES ($1, $2, $3, $4, $5, $6)`
		privQuery = `INSERT INTO certificate_private (reference, registrant_email, anchor_proof, payment_transaction_id, created_at)
		             VALUES ($1, $2, $3, $4, $5)`
	}

	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(pubQuery,
		cert.ID, cert.Reference, cert.ContentHash, cert.RegisteredAt, cert.AnchorStatus, cert.CreatedAt,
	); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateReference
		}
		return err
	}

	if _, err := tx.Exec(privQuery,
		priv.Reference, priv.RegistrantEmail, priv.AnchorProof, priv.PaymentTransactionID, priv.CreatedAt,
	); err != nil {
		return err
	}

	return tx.Commit()
}

// GetCertificateByReference retrieves a certificate by its reference.
// References are stored in canonical uppercase, so the lookup is
// case-insensitive for callers.
func (d *Database) GetCertificateByReference(reference string) (*models.Certificate, error) {
	query := `SELECT id, reference, content_hash, registered_at, anchor_status, created_at
	          FROM certificates WHERE reference = ?`
	if d.dbType == "postgres" {
		query = `SELECT id, reference, content_hash, registered_at, anchor_status, created_at
		         FROM certificates WHERE reference = $1`
	}

	var cert models.Certificate
	err := d.db.QueryRow(query, strings.ToUpper(reference)).Scan(
		&cert.ID, &cert.Reference, &cert.ContentHash, &cert.RegisteredAt, &cert.AnchorStatus, &cert.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &cert, nil
}

// FindCertificatesByHash retrieves all certificates for a content hash.
// Re-registering the same file at a later time is legitimate, so multiple
// rows may match.
func (d *Database) FindCertificatesByHash(contentHash string) ([]*models.Certificate, error) {
	query := `SELECT id, reference, content_hash, registered_at, anchor_status, created_at
	          FROM certificates WHERE content_hash = ? ORDER BY registered_at DESC`
	if d.dbType == "postgres" {
		query = `SELECT id, reference, content_hash, registered_at, anchor_status, created_at
		         FROM certificates WHERE content_hash = $1 ORDER BY registered_at DESC`
	}

	return d.queryCertificates(query, contentHash)
}

// FindCertificatesByEmail retrieves all certificates registered under an
// email, most recent first. The ordering is a user-facing contract.
func (d *Database) FindCertificatesByEmail(email string) ([]*models.Certificate, error) {
	query := `SELECT c.id, c.reference, c.content_hash, c.registered_at, c.anchor_status, c.created_at
	          FROM certificates c
	          JOIN certificate_private p ON p.reference = c.reference
	          WHERE p.registrant_email = ?
	          ORDER BY c.registered_at DESC`
	if d.dbType == "postgres" {
		query = `SELECT c.id, c.reference, c.content_hash, c.registered_at, c.anchor_status, c.created_at
		         FROM certificates c
		         JOIN certificate_private p ON p.reference = c.reference
		         WHERE p.registrant_email = $1
		         ORDER BY c.registered_at DESC`
	}

	return d.queryCertificates(query, email)
}

// ListPendingCertificates retrieves all certificates awaiting anchor
// confirmation. The result is the reconciliation sweep's snapshot.
func (d *Database) ListPendingCertificates() ([]*models.Certificate, error) {
	query := `SELECT id, reference, content_hash, registered_at, anchor_status, created_at
	          FROM certificates WHERE anchor_status = ? ORDER BY registered_at ASC`
	if d.dbType == "postgres" {
		query = `SELECT id, reference, content_hash, registered_at, anchor_status, created_at
		         FROM certificates WHERE anchor_status = $1 ORDER BY registered_at ASC`
	}

	return d.queryCertificates(query, models.AnchorStatusPending)
}

// ListCertificates retrieves all certificates, most recent first
func (d *Database) ListCertificates() ([]*models.Certificate, error) {
	query := `SELECT id, reference, content_hash, registered_at, anchor_status, created_at
	          FROM certificates ORDER BY registered_at DESC`

	return d.queryCertificates(query)
}

func (d *Database) queryCertificates(query string, args ...interface{}) ([]*models.Certificate, error) {
	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var certificates []*models.Certificate
	for rows.Next() {
		var cert models.Certificate
		err := rows.Scan(
			&cert.ID, &cert.Reference, &cert.ContentHash, &cert.RegisteredAt, &cert.AnchorStatus, &cert.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		certificates = append(certificates, &cert)
	}

	return certificates, rows.Err()
}

// GetCertificatePrivate retrieves the private row for a reference
func (d *Database) GetCertificatePrivate(reference string) (*models.CertificatePrivate, error) {
	query := `SELECT reference, registrant_email, anchor_proof, payment_transaction_id, created_at
	          FROM certificate_private WHERE reference = ?`
	if d.dbType == "postgres" {
		query = `SELECT reference, registrant_email, anchor_proof, payment_transaction_id, created_at
		         FROM certificate_private WHERE reference = $1`
	}

	var priv models.CertificatePrivate
	err := d.db.QueryRow(query, strings.ToUpper(reference)).Scan(
		&priv.Reference, &priv.RegistrantEmail, &priv.AnchorProof, &priv.PaymentTransactionID, &priv.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &priv, nil
}

// ConfirmCertificate transitions a pending certificate to confirmed and
// replaces its anchor proof in one transaction. Confirming an already
// confirmed certificate is a no-op; confirming a missing reference returns
// sql.ErrNoRows.
func (d *Database) ConfirmCertificate(reference string, proof []byte) error {
	statusQuery := `UPDATE certificates SET anchor_status = ? WHERE reference = ? AND anchor_status = ?`
	proofQuery := `UPDATE certificate_private SET anchor_proof = ? WHERE reference = ?`
	if d.dbType == "postgres" {
		statusQuery = `UPDATE certificates SET anchor_status = $1 WHERE reference = $2 AND anchor_status = $3`
		proofQuery = `UPDATE certificate_private SET anchor_proof = $1 WHERE reference = $2`
	}

	reference = strings.ToUpper(reference)

	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(statusQuery, models.AnchorStatusConfirmed, reference, models.AnchorStatusPending)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		// Either already confirmed (no-op) or the reference does not exist
		var id string
		selectQuery := `SELECT id FROM certificates WHERE reference = ?`
		if d.dbType == "postgres" {
			selectQuery = `SELECT id FROM certificates WHERE reference = $1`
		}
		if err := tx.QueryRow(selectQuery, reference).Scan(&id); err != nil {
			return err
		}
		return tx.Commit()
	}

	if _, err := tx.Exec(proofQuery, proof, reference); err != nil {
		return err
	}

	return tx.Commit()
}

// Access token operations

// CreateAccessToken persists a new access token
func (d *Database) CreateAccessToken(token *models.AccessToken) error {
	query := `INSERT INTO access_tokens (token, email, expires_at, used, created_at)
	          VALUES (?, ?, ?, ?, ?)`
	if d.dbType == "postgres" {
		query = `INSERT INTO access_tokens (token, email, expires_at, used, created_at)
		         VALUES ($1, $2, $3, $4, $5)`
	}

	_, err := d.db.Exec(query, token.Token, token.Email, token.ExpiresAt, token.Used, token.CreatedAt)
	return err
}

// GetAccessToken retrieves an access token by its value
func (d *Database) GetAccessToken(token string) (*models.AccessToken, error) {
	query := `SELECT token, email, expires_at, used, created_at FROM access_tokens WHERE token = ?`
	if d.dbType == "postgres" {
		query = `SELECT token, email, expires_at, used, created_at FROM access_tokens WHERE token = $1`
	}

	var t models.AccessToken
	err := d.db.QueryRow(query, token).Scan(&t.Token, &t.Email, &t.ExpiresAt, &t.Used, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ConsumeAccessToken marks a token used with a conditional update. It
// returns false when the token was already consumed (or does not exist), so
// two concurrent validations can never both succeed.
func (d *Database) ConsumeAccessToken(token string) (bool, error) {
	query := `UPDATE access_tokens SET used = ? WHERE token = ? AND used = ?`
	if d.dbType == "postgres" {
		query = `UPDATE access_tokens SET used = $1 WHERE token = $2 AND used = $3`
	}

	result, err := d.db.Exec(query, true, token, false)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rowsAffected > 0, nil
}

// DeleteExpiredAccessTokens removes tokens past their expiry and returns the
// number deleted. Backstop for any storage-level TTL mechanism.
func (d *Database) DeleteExpiredAccessTokens(now int64) (int64, error) {
	query := `DELETE FROM access_tokens WHERE expires_at < ?`
	if d.dbType == "postgres" {
		query = `DELETE FROM access_tokens WHERE expires_at < $1`
	}

	result, err := d.db.Exec(query, now)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

// Mail outbox operations

// EnqueueMail writes an outbound message to the mail outbox. An external
// mailer consumes the rows; this system never sends directly.
func (d *Database) EnqueueMail(msg *models.MailMessage) error {
	query := `INSERT INTO mail_outbox (id, recipient, subject, body, created_at)
	          VALUES (?, ?, ?, ?, ?)`
	if d.dbType == "postgres" {
		query = `INSERT INTO mail_outbox (id, recipient, subject, body, created_at)
		         VALUES ($1, $2, $3, $4, $5)`
	}

	_, err := d.db.Exec(query, msg.ID, msg.Recipient, msg.Subject, msg.Body, msg.CreatedAt)
	return err
}

// CountQueuedMail returns the number of unsent messages in the outbox
func (d *Database) CountQueuedMail() (int, error) {
	query := `SELECT COUNT(*) FROM mail_outbox WHERE sent_at IS NULL`

	var count int
	err := d.db.QueryRow(query).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// User operations

// CreateUser creates a new operator user
func (d *Database) CreateUser(user *models.User) error {
	query := `INSERT INTO users (id, username, password_hash, role, created_at)
	          VALUES (?, ?, ?, ?, ?)`
	if d.dbType == "postgres" {
		query = `INSERT INTO users (id, username, password_hash, role, created_at)
		         VALUES ($1, $2, $3, $4, $5)`
	}

	_, err := d.db.Exec(query, user.ID, user.Username, user.PasswordHash, user.Role, user.CreatedAt)
	return err
}

// GetUserByUsername retrieves a user by username
func (d *Database) GetUserByUsername(username string) (*models.User, error) {
	query := `SELECT id, username, password_hash, role, created_at FROM users WHERE username = ?`
	if d.dbType == "postgres" {
		query = `SELECT id, username, password_hash, role, created_at FROM users WHERE username = $1`
	}

	var user models.User
	err := d.db.QueryRow(query, username).Scan(
		&user.ID, &user.Username, &user.PasswordHash, &user.Role, &user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// IsSetupComplete checks if initial setup has been completed
func (d *Database) IsSetupComplete() (bool, error) {
	query := `SELECT COUNT(*) FROM users`
	var count int
	err := d.db.QueryRow(query).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
