package notification_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/jobmailer-backend/internal/logger"
	"github.com/unclebandit/jobmailer-backend/internal/model"
	"github.com/unclebandit/jobmailer-backend/internal/notification"
)

const hookURL = "https://hooks.example.org/mailer"

func sentEvent() model.Event {
	ok := true
	return model.Event{
		Timestamp: time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
		Action:    model.ActionEmailSent,
		BatchID:   "batch-1",
		Recipient: "hr@acme.com",
		Company:   "Acme",
		MessageID: "m-1",
		Success:   &ok,
	}
}

func newWebhook(t *testing.T) *notification.WebhookRelay {
	t.Helper()
	relay := notification.NewWebhookRelay(hookURL, time.Second)
	httpmock.ActivateNonDefault(relay.Client)
	t.Cleanup(httpmock.DeactivateAndReset)
	return relay
}

func TestWebhookRelayPostsEvent(t *testing.T) {
	relay := newWebhook(t)

	var got map[string]any
	var contentType string
	httpmock.RegisterResponder(http.MethodPost, hookURL, func(req *http.Request) (*http.Response, error) {
		contentType = req.Header.Get("Content-Type")
		if err := json.NewDecoder(req.Body).Decode(&got); err != nil {
			return nil, err
		}
		return httpmock.NewStringResponse(http.StatusOK, "ok"), nil
	})

	require.NoError(t, relay.Notify(context.Background(), sentEvent()))
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
	assert.Equal(t, "application/json", contentType)
	assert.Equal(t, "email_sent", got["action"])
	assert.Equal(t, "batch-1", got["batch_id"])
	assert.Equal(t, "hr@acme.com", got["recipient"])
	assert.Equal(t, true, got["success"])
	assert.NotContains(t, got, "successful_emails")
}

func TestWebhookRelayRejectsNon2xx(t *testing.T) {
	relay := newWebhook(t)
	httpmock.RegisterResponder(http.MethodPost, hookURL, httpmock.NewStringResponder(http.StatusBadGateway, ""))

	err := relay.Notify(context.Background(), sentEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
	assert.Equal(t, 1, httpmock.GetTotalCallCount(), "no retry")
}

func TestWebhookRelayTransportError(t *testing.T) {
	relay := newWebhook(t)
	httpmock.RegisterResponder(http.MethodPost, hookURL, httpmock.NewErrorResponder(errors.New("connection refused")))

	assert.Error(t, relay.Notify(context.Background(), sentEvent()))
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

type recordingRelay struct {
	events []model.Event
	err    error
}

func (r *recordingRelay) Notify(_ context.Context, ev model.Event) error {
	r.events = append(r.events, ev)
	return r.err
}

func TestFanoutDeliversToEveryRelay(t *testing.T) {
	failing := &recordingRelay{err: errors.New("down")}
	ok := &recordingRelay{}
	f := notification.Fanout{failing, ok, &notification.LogRelay{Log: logger.Nop()}}

	err := f.Notify(context.Background(), sentEvent())
	require.Error(t, err)
	assert.Len(t, failing.events, 1)
	assert.Len(t, ok.events, 1, "a failing relay does not block the others")
}

type capturePublisher struct {
	bodies [][]byte
}

func (c *capturePublisher) Publish(_ context.Context, body []byte) error {
	c.bodies = append(c.bodies, body)
	return nil
}

func TestAMQPRelayAndForwarderRoundTrip(t *testing.T) {
	pub := &capturePublisher{}
	relay := &notification.AMQPRelay{Publisher: pub}
	require.NoError(t, relay.Notify(context.Background(), sentEvent()))
	require.Len(t, pub.bodies, 1)

	sink := &recordingRelay{}
	fwd := &notification.Forwarder{Relay: sink}
	require.NoError(t, fwd.Handle(context.Background(), pub.bodies[0]))
	require.Len(t, sink.events, 1)
	assert.Equal(t, model.ActionEmailSent, sink.events[0].Action)
	assert.Equal(t, "hr@acme.com", sink.events[0].Recipient)
}

func TestForwarderRejectsGarbage(t *testing.T) {
	fwd := &notification.Forwarder{Relay: &recordingRelay{}}
	assert.Error(t, fwd.Handle(context.Background(), []byte("not json")))
	assert.Error(t, fwd.Handle(context.Background(), []byte(`{}`)))
}
