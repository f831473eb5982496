// Package models defines the data structures for database entities in the
// AuthorHash registry. It includes models for certificates (split into
// publicly verifiable and private rows), access tokens, queued mail, and
// operator users.
package models

import (
	"database/sql"
	"time"
)

// Anchor status values for a certificate.
const (
	AnchorStatusPending   = "pending"
	AnchorStatusConfirmed = "confirmed"
)

// Certificate represents the publicly verifiable part of an issued
// certificate. Anyone holding the reference or the content hash may see
// these fields.
type Certificate struct {
	ID           string    `db:"id" json:"id"`
	Reference    string    `db:"reference" json:"reference"`
	ContentHash  string    `db:"content_hash" json:"content_hash"`
	RegisteredAt int64     `db:"registered_at" json:"registered_at"`
	AnchorStatus string    `db:"anchor_status" json:"anchor_status"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// CertificatePrivate holds the fields that must never appear in public
// lookups: the registrant's email, the anchor proof blob, and the payment
// transaction reference. It shares its primary key with the public row.
type CertificatePrivate struct {
	Reference            string         `db:"reference"`
	RegistrantEmail      sql.NullString `db:"registrant_email"`
	AnchorProof          []byte         `db:"anchor_proof"`
	PaymentTransactionID sql.NullString `db:"payment_transaction_id"`
	CreatedAt            time.Time      `db:"created_at"`
}

// AccessToken represents a one-time, time-boxed grant to view all
// certificates registered under an email address.
type AccessToken struct {
	Token     string    `db:"token"`
	Email     string    `db:"email"`
	ExpiresAt int64     `db:"expires_at"`
	Used      bool      `db:"used"`
	CreatedAt time.Time `db:"created_at"`
}

// MailMessage is a queued outbound email. Rows are written by this system
// and consumed by an external mailer; SentAt stays NULL until then.
type MailMessage struct {
	ID        string       `db:"id"`
	Recipient string       `db:"recipient"`
	Subject   string       `db:"subject"`
	Body      string       `db:"body"`
	CreatedAt time.Time    `db:"created_at"`
	SentAt    sql.NullTime `db:"sent_at"`
}

// User represents an operator account for the admin surface
type User struct {
	ID           string    `db:"id"`
	Username     string    `db:"username"`
	PasswordHash string    `db:"password_hash"`
	Role         string    `db:"role"`
	CreatedAt    time.Time `db:"created_at"`
}
