// internal/model/stats.go
package model

type CompanyCount struct {
	CompanyName string `json:"company_name"`
	Count       int    `json:"count"`
}

type DateCount struct {
	SentDate string `json:"sent_date"`
	Count    int    `json:"count"`
}

// Stats aggregates the record table
type Stats struct {
	TotalEmails     int            `json:"total_emails"`
	EmailsByCompany []CompanyCount `json:"emails_by_company"`
	EmailsByDate    []DateCount    `json:"emails_by_date"`
	EmailsByStatus  map[string]int `json:"emails_by_status"`
}
