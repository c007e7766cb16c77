// internal/service/template_service.go
package service

import (
	"strings"
)

// RenderTemplate replaces {key} placeholders with values from data in a single pass.
// Unknown placeholders are left as they are.
func RenderTemplate(template string, data map[string]string) string {
	if !strings.Contains(template, "{") {
		return template
	}
	pairs := make([]string, 0, len(data)*2)
	for k, v := range data {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

func recipientData(email, company, sender string) map[string]string {
	return map[string]string{
		"company": company,
		"email":   email,
		"sender":  sender,
	}
}
