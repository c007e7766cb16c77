package mailer

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/unclebandit/jobmailer-backend/internal/config"
)

// Attachment is a file carried by every message of a batch
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Message is one outbound email to a single recipient
type Message struct {
	FromName    string
	FromAddress string
	To          string
	Subject     string
	Body        string
	Attachments []Attachment
}

// Sender delivers a message and returns the provider message id
type Sender interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// Router picks the transport configured by the provider name
type Router struct {
	provider string
	smtp     Sender
	resend   Sender
	log      Sender
}

var _ Sender = (*Router)(nil)

func NewRouter(cfg config.MailConfig, log zerolog.Logger) *Router {
	return &Router{
		provider: strings.ToLower(cfg.Provider),
		smtp:     NewSMTP(cfg.SMTP),
		resend:   NewResend(cfg.Resend.APIKey),
		log:      NewLogSender(log),
	}
}

func (r *Router) Send(ctx context.Context, msg Message) (string, error) {
	switch r.provider {
	case "smtp":
		return r.smtp.Send(ctx, msg)
	case "resend":
		return r.resend.Send(ctx, msg)
	default:
		return r.log.Send(ctx, msg)
	}
}

// LoadAttachment reads the file attached to every message. A missing file is not an
// error: it is logged and nil is returned so batches go out without it.
func LoadAttachment(path, name string, log zerolog.Logger) (*Attachment, error) {
	if path == "" {
		return nil, nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Warn().Str("path", path).Msg("attachment not found, sending without it")
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read attachment %s: %w", path, err)
	}
	if name == "" {
		name = filepath.Base(path)
	}
	return &Attachment{
		Filename:    name,
		ContentType: contentType(name, content),
		Content:     content,
	}, nil
}

func contentType(name string, content []byte) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); ct != "" {
		return ct
	}
	return http.DetectContentType(content)
}
