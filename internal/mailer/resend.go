package mailer

import (
	"context"
	"fmt"
	"net/http"
	"net/mail"

	"github.com/resend/resend-go/v2"
)

// Resend sends through the Resend API
type Resend struct {
	client *resend.Client
}

var _ Sender = (*Resend)(nil)

func NewResend(apiKey string) *Resend {
	return &Resend{client: resend.NewClient(apiKey)}
}

// NewResendWithClient uses the given HTTP client, e.g. one wired to httpmock
func NewResendWithClient(httpClient *http.Client, apiKey string) *Resend {
	return &Resend{client: resend.NewCustomClient(httpClient, apiKey)}
}

func (s *Resend) Send(ctx context.Context, msg Message) (string, error) {
	from := (&mail.Address{Name: msg.FromName, Address: msg.FromAddress}).String()

	params := &resend.SendEmailRequest{
		From:    from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Text:    msg.Body,
	}
	for _, a := range msg.Attachments {
		params.Attachments = append(params.Attachments, &resend.Attachment{
			Content:     a.Content,
			Filename:    a.Filename,
			ContentType: a.ContentType,
		})
	}

	sent, err := s.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return "", fmt.Errorf("resend send failed: %w", err)
	}
	return sent.Id, nil
}
