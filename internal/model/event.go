// internal/model/event.go
package model

import "time"

const (
	ActionBatchStarted   = "email_batch_started"
	ActionEmailSent      = "email_sent"
	ActionEmailFailed    = "email_failed"
	ActionBatchCompleted = "batch_completed"
)

// CompanyInfo is the classification attached to a batch_started event
type CompanyInfo struct {
	Email   string `json:"email"`
	Company string `json:"company"`
	Date    string `json:"date"`
	Time    string `json:"time"`
}

// Event is a batch lifecycle notification. Only the fields relevant to the
// action are set.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	BatchID   string    `json:"batch_id"`

	// email_batch_started
	TotalRecipients    int           `json:"total_recipients,omitempty"`
	Sender             string        `json:"sender,omitempty"`
	Subject            string        `json:"subject,omitempty"`
	ExtractedCompanies []CompanyInfo `json:"extracted_companies,omitempty"`

	// email_sent / email_failed
	Recipient string `json:"recipient,omitempty"`
	Company   string `json:"company,omitempty"`
	Date      string `json:"date,omitempty"`
	Time      string `json:"time,omitempty"`
	MessageID string `json:"message_id,omitempty"`
	Success   *bool  `json:"success,omitempty"`
	Error     string `json:"error,omitempty"`

	// batch_completed
	TotalScheduled   int      `json:"total_scheduled,omitempty"`
	SuccessfulEmails []string `json:"successful_emails,omitempty"`
}
