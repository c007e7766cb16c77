// internal/model/send_record.go
package model

import "time"

const (
	StatusPending = "pending"
	StatusSent    = "sent"
	StatusFailed  = "failed"
)

const (
	// DateLayout and TimeLayout are the local calendar formats stored on a record
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// SendRecord is one persisted send attempt for a single recipient
type SendRecord struct {
	ID          int64      `db:"id" json:"id"`
	ToEmail     string     `db:"to_email" json:"to_email"`
	CompanyName string     `db:"company_name" json:"company_name"`
	Subject     string     `db:"subject" json:"subject"`
	Body        string     `db:"body" json:"body"`
	SentDate    string     `db:"sent_date" json:"sent_date"`
	SentTime    string     `db:"sent_time" json:"sent_time"`
	Status      string     `db:"status" json:"status"` // pending, sent, failed
	MessageID   string     `db:"message_id" json:"message_id,omitempty"`
	LastError   string     `db:"last_error" json:"last_error,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}

// RecordFilter narrows a record listing. Empty fields are ignored.
type RecordFilter struct {
	Company  string `json:"company,omitempty"`
	DateFrom string `json:"date_from,omitempty"`
	DateTo   string `json:"date_to,omitempty"`
}
