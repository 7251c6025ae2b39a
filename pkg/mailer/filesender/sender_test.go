package filesender_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/missive/pkg/mailer"
	"github.com/dmitrymomot/missive/pkg/mailer/filesender"
)

var fixedNow = time.Date(2025, 1, 2, 15, 4, 5, 1000, time.UTC)

func clock() time.Time { return fixedNow }

func TestSender_Send(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "outbox")
	s := filesender.New(dir, filesender.WithClock(clock))

	err := s.Send(context.Background(), &mailer.Message{
		From:        "noreply@example.com",
		To:          []string{"alice@example.com"},
		BCC:         []string{"audit@example.com"},
		Subject:     "Welcome, Alice!",
		Text:        "Hello Alice",
		HTML:        "<p>Hello Alice</p>",
		ContentType: mailer.ContentTypeMarkdown,
		Attachments: []mailer.Attachment{
			{Filename: "report 2025.pdf", ContentType: "application/pdf", Content: []byte("%PDF")},
		},
	})
	require.NoError(t, err)

	base := filepath.Join(dir, "2025_01_02_150405_000001_welcome_alice")

	text, err := os.ReadFile(base + ".txt")
	require.NoError(t, err)
	require.Equal(t, "Hello Alice", string(text))

	html, err := os.ReadFile(base + ".html")
	require.NoError(t, err)
	require.Equal(t, "<p>Hello Alice</p>", string(html))

	attachment, err := os.ReadFile(base + "_report_2025.pdf")
	require.NoError(t, err)
	require.Equal(t, "%PDF", string(attachment))

	raw, err := os.ReadFile(base + ".json")
	require.NoError(t, err)

	var meta filesender.Metadata
	require.NoError(t, json.Unmarshal(raw, &meta))
	require.Equal(t, "2025-01-02T15:04:05Z", meta.Timestamp)
	require.Equal(t, []string{"alice@example.com"}, meta.To)
	require.Equal(t, []string{"audit@example.com"}, meta.BCC)
	require.Equal(t, "markdown", meta.ContentType)
	require.Equal(t, []string{"2025_01_02_150405_000001_welcome_alice_report_2025.pdf"}, meta.Attachments)
}

func TestSender_PlainTextSkipsHTML(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s := filesender.New(dir, filesender.WithClock(clock))

	err := s.Send(context.Background(), &mailer.Message{
		To:          []string{"alice@example.com"},
		Text:        "plain",
		ContentType: mailer.ContentTypePlain,
	})
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	require.ElementsMatch(t, []string{
		"2025_01_02_150405_000001_email.txt",
		"2025_01_02_150405_000001_email.json",
	}, names)
}

func TestSender_CanceledContext(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "never")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := filesender.New(dir).Send(ctx, &mailer.Message{To: []string{"a@example.com"}})
	require.ErrorIs(t, err, context.Canceled)

	_, statErr := os.Stat(dir)
	require.True(t, os.IsNotExist(statErr))
}
