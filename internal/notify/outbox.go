// Package notify writes outbound email into the mail outbox table and
// builds the message bodies. An external mailer consumes the outbox; a
// failed enqueue must never roll back the write that triggered it, so
// callers log enqueue errors and move on.
package notify

import (
	"time"

	"github.com/google/uuid"
	"github.com/librisventures/authorhash/internal/database"
	"github.com/librisventures/authorhash/internal/database/models"
)

// Outbox queues messages for the external mailer
type Outbox struct {
	db *database.Database
}

// NewOutbox creates a new outbox writer
func NewOutbox(db *database.Database) *Outbox {
	return &Outbox{db: db}
}

// Enqueue writes one message to the outbox
func (o *Outbox) Enqueue(recipient, subject, body string) error {
	msg := &models.MailMessage{
		ID:        uuid.New().String(),
		Recipient: recipient,
		Subject:   subject,
		Body:      body,
		CreatedAt: time.Now(),
	}
	return o.db.EnqueueMail(msg)
}
