package service_test

import (
	"testing"

	"github.com/unclebandit/jobmailer-backend/internal/service"
)

func TestRenderTemplate(t *testing.T) {
	data := map[string]string{"company": "Acme", "email": "hr@acme.com", "sender": "Jane"}

	tests := []struct {
		name     string
		template string
		want     string
	}{
		{"all placeholders", "Dear {company} team ({email}), regards {sender}", "Dear Acme team (hr@acme.com), regards Jane"},
		{"repeated", "{company}/{company}", "Acme/Acme"},
		{"no placeholders", "Plain text", "Plain text"},
		{"unknown placeholder", "Hi {name}", "Hi {name}"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := service.RenderTemplate(tt.template, data); got != tt.want {
				t.Errorf("RenderTemplate(%q) = %q, want %q", tt.template, got, tt.want)
			}
		})
	}
}

func TestRenderTemplateSinglePass(t *testing.T) {
	got := service.RenderTemplate("{company}", map[string]string{"company": "{email}", "email": "x"})
	if got != "{email}" {
		t.Errorf("substituted values must not be expanded again, got %q", got)
	}
}
