// internal/model/batch.go
package model

import "time"

// Processing statuses reported back to the caller of a send request
const (
	ProcessedSaved   = "saved"
	ProcessedDBError = "db_error"
)

// Recipient is one classified address inside a batch. RecordID is zero when the
// record could not be persisted.
type Recipient struct {
	Email    string
	Company  string
	RecordID int64
	Subject  string
	Body     string
}

// Batch groups the recipients submitted together. It is never persisted.
type Batch struct {
	ID         string
	SenderName string
	Subject    string
	Body       string
	SentDate   string
	SentTime   string
	Recipients []Recipient
}

// ProcessedEmail is the per-recipient result of the persistence phase
type ProcessedEmail struct {
	Email       string `json:"email"`
	CompanyName string `json:"company_name"`
	DBID        int64  `json:"db_id,omitempty"`
	Status      string `json:"status"` // saved, db_error
	Error       string `json:"error,omitempty"`
}

// DeliveryOutcome is the result of one transport attempt
type DeliveryOutcome struct {
	RecordID  int64         `json:"record_id,omitempty"`
	Email     string        `json:"email"`
	Company   string        `json:"company"`
	Status    string        `json:"status"` // sent, failed
	MessageID string        `json:"message_id,omitempty"`
	Error     string        `json:"error,omitempty"`
	Offset    time.Duration `json:"offset"`
}
