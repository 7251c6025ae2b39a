package ses_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/missive/pkg/mailer"
	"github.com/dmitrymomot/missive/pkg/mailer/ses"
)

type sendEmailRequest struct {
	Content struct {
		Raw struct {
			Data []byte `json:"Data"`
		} `json:"Raw"`
	} `json:"Content"`
	Destination struct {
		ToAddresses  []string `json:"ToAddresses"`
		CcAddresses  []string `json:"CcAddresses"`
		BccAddresses []string `json:"BccAddresses"`
	} `json:"Destination"`
	ConfigurationSetName string `json:"ConfigurationSetName"`
}

func newSESServer(t *testing.T, status int) (*httptest.Server, func() sendEmailRequest) {
	t.Helper()

	var (
		mu  sync.Mutex
		got sendEmailRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v2/email/outbound-emails" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		body, _ := io.ReadAll(r.Body)

		mu.Lock()
		_ = json.Unmarshal(body, &got)
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.Header().Set("X-Amzn-ErrorType", "MessageRejected")
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"message":"Email address is not verified."}`))
			return
		}
		_, _ = w.Write([]byte(`{"MessageId":"0100018c-test"}`))
	}))
	t.Cleanup(srv.Close)

	return srv, func() sendEmailRequest {
		mu.Lock()
		defer mu.Unlock()
		return got
	}
}

func TestSender_Send(t *testing.T) {
	t.Parallel()

	srv, got := newSESServer(t, http.StatusOK)
	s, err := ses.New(context.Background(), ses.Config{
		Region:           "eu-west-1",
		AccessKey:        "test",
		SecretKey:        "test",
		Endpoint:         srv.URL,
		From:             "noreply@example.com",
		ConfigurationSet: "transactional",
	})
	require.NoError(t, err)

	err = s.Send(context.Background(), &mailer.Message{
		To:          []string{"a@example.com"},
		CC:          []string{"c@example.com"},
		BCC:         []string{"b@example.com"},
		Subject:     "Receipt",
		Text:        "Thanks",
		HTML:        "<p>Thanks</p>",
		ContentType: mailer.ContentTypeHTML,
		Attachments: []mailer.Attachment{{Filename: "receipt.pdf", ContentType: "application/pdf", Content: []byte("%PDF")}},
	})
	require.NoError(t, err)

	req := got()
	require.Equal(t, []string{"a@example.com"}, req.Destination.ToAddresses)
	require.Equal(t, []string{"c@example.com"}, req.Destination.CcAddresses)
	require.Equal(t, []string{"b@example.com"}, req.Destination.BccAddresses)
	require.Equal(t, "transactional", req.ConfigurationSetName)

	raw := string(req.Content.Raw.Data)
	require.Contains(t, raw, "From: noreply@example.com")
	require.Contains(t, raw, "Subject: Receipt")
	require.Contains(t, raw, `filename="receipt.pdf"`)
	require.NotContains(t, raw, "b@example.com")
}

func TestSender_Send_Rejected(t *testing.T) {
	t.Parallel()

	srv, _ := newSESServer(t, http.StatusBadRequest)
	s, err := ses.New(context.Background(), ses.Config{
		Region:    "eu-west-1",
		AccessKey: "test",
		SecretKey: "test",
		Endpoint:  srv.URL,
	})
	require.NoError(t, err)

	err = s.Send(context.Background(), &mailer.Message{
		From:    "a@example.com",
		To:      []string{"b@example.com"},
		Subject: "s",
		Text:    "t",
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "ses")
}

func TestSender_Send_NoFrom(t *testing.T) {
	t.Parallel()

	srv, _ := newSESServer(t, http.StatusOK)
	s, err := ses.New(context.Background(), ses.Config{Region: "eu-west-1", AccessKey: "k", SecretKey: "s", Endpoint: srv.URL})
	require.NoError(t, err)

	err = s.Send(context.Background(), &mailer.Message{To: []string{"b@example.com"}, Text: "t"})
	require.Error(t, err)
}
