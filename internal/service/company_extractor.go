// internal/service/company_extractor.go
package service

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/unclebandit/jobmailer-backend/internal/repository"
)

const (
	UnknownAddress = "Unknown"
	PersonalEmail  = "Personal Email"
	UnknownCompany = repository.UnknownCompany
)

var personalProviders = map[string]struct{}{
	"gmail.com":      {},
	"yahoo.com":      {},
	"hotmail.com":    {},
	"outlook.com":    {},
	"icloud.com":     {},
	"aol.com":        {},
	"protonmail.com": {},
	"tutanota.com":   {},
	"yandex.com":     {},
	"mail.com":       {},
	"zoho.com":       {},
	"fastmail.com":   {},
}

// checked in order, first match wins
var tldSuffixes = []string{".co.uk", ".com", ".org", ".net", ".edu", ".gov", ".fr", ".de", ".ca", ".au"}

// checked in order; each match is stripped, so "hr-careers-" chains
var recruitingPrefixes = []string{"hr-", "careers-", "jobs-", "recruitment-", "talent-"}

// ExtractCompanyName derives an organization label from the domain of an email address.
// It never returns an empty string.
func ExtractCompanyName(address string) string {
	_, rest, ok := strings.Cut(address, "@")
	if !ok {
		return UnknownAddress
	}
	// anything after a second @ is not part of the domain
	domain, _, _ := strings.Cut(rest, "@")
	domain = strings.ToLower(domain)

	if _, ok := personalProviders[domain]; ok {
		return PersonalEmail
	}

	name := domain
	for _, suffix := range tldSuffixes {
		if strings.HasSuffix(name, suffix) {
			name = strings.TrimSuffix(name, suffix)
			break
		}
	}
	name = strings.TrimPrefix(name, "www.")

	if parts := strings.Split(name, "."); len(parts) > 1 {
		name = parts[len(parts)-2]
		if name == "" {
			name = parts[0]
		}
	}

	for _, prefix := range recruitingPrefixes {
		name = strings.TrimPrefix(name, prefix)
	}

	name = titleWords(strings.NewReplacer("-", " ", "_", " ").Replace(name))

	if utf8.RuneCountInString(name) < 2 {
		name = strings.ToUpper(strings.Split(domain, ".")[0])
	}
	if name == "" {
		return UnknownCompany
	}
	return name
}

func titleWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + strings.ToLower(w[size:])
	}
	return strings.Join(words, " ")
}
