package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/accounts/internal/logging"
)

func TestMessage_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		msg     Message
		wantErr bool
	}{
		{name: "ok", msg: Message{To: "a@example.com", Subject: "s"}},
		{name: "no recipient", msg: Message{Subject: "s"}, wantErr: true},
		{name: "bad recipient", msg: Message{To: "not-an-email", Subject: "s"}, wantErr: true},
		{name: "no subject", msg: Message{To: "a@example.com"}, wantErr: true},
	}

	for _, tt := range tests {
		err := tt.msg.Validate()
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrFailedToSend, tt.name)
		} else {
			assert.NoError(t, err, tt.name)
		}
	}
}

func TestResetInstructions_ContainsLink(t *testing.T) {
	t.Parallel()

	msg := ResetInstructions("a@example.com", "http://localhost:8080/account/reset/abc")
	assert.Equal(t, "a@example.com", msg.To)
	assert.Contains(t, msg.Body, "http://localhost:8080/account/reset/abc")
	assert.NoError(t, msg.Validate())

	changed := PasswordChanged("a@example.com")
	assert.Contains(t, changed.Body, "a@example.com")
	assert.NoError(t, changed.Validate())
}

func TestLogNotifier_Send(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	n := &LogNotifier{Logger: logging.NewWithWriter(&buf, "info")}
	require.NoError(t, n.Send(context.Background(), PasswordChanged("a@example.com")))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "email_outbox", rec["msg"])
	assert.Equal(t, "a@example.com", rec["to"])
	assert.Equal(t, "password-changed", rec["tag"])
}

func TestNewPostmarkNotifier_Config(t *testing.T) {
	t.Parallel()

	_, err := NewPostmarkNotifier(PostmarkConfig{SenderEmail: "from@example.com"})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewPostmarkNotifier(PostmarkConfig{ServerToken: "tok"})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	n, err := NewPostmarkNotifier(PostmarkConfig{ServerToken: "tok", SenderEmail: "from@example.com"})
	require.NoError(t, err)
	assert.NotNil(t, n)
}

func TestPostmarkNotifier_Send(t *testing.T) {
	t.Parallel()

	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		assert.Equal(t, "tok", r.Header.Get("X-Postmark-Server-Token"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ErrorCode":0,"Message":"OK","MessageID":"1","To":"a@example.com"}`))
	}))
	t.Cleanup(srv.Close)

	n, err := NewPostmarkNotifier(PostmarkConfig{ServerToken: "tok", SenderEmail: "from@example.com"})
	require.NoError(t, err)
	n.client.BaseURL = srv.URL

	require.NoError(t, n.Send(context.Background(), ResetInstructions("a@example.com", "http://x/reset/1")))
	assert.Equal(t, "from@example.com", got["From"])
	assert.Equal(t, "a@example.com", got["To"])
	assert.Equal(t, "password-reset", got["Tag"])
}

func TestPostmarkNotifier_SendProviderError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ErrorCode":300,"Message":"Invalid email request"}`))
	}))
	t.Cleanup(srv.Close)

	n, err := NewPostmarkNotifier(PostmarkConfig{ServerToken: "tok", SenderEmail: "from@example.com"})
	require.NoError(t, err)
	n.client.BaseURL = srv.URL

	err = n.Send(context.Background(), PasswordChanged("a@example.com"))
	assert.ErrorIs(t, err, ErrFailedToSend)
}
