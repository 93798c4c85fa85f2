package service

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thenajjar/slack-history-exporter/internal/config"
	"github.com/thenajjar/slack-history-exporter/internal/directory"
	"github.com/thenajjar/slack-history-exporter/internal/domain"
	"github.com/thenajjar/slack-history-exporter/internal/render"
)

type fakeSource struct {
	chats    map[domain.ChatKind][]domain.Chat
	messages map[string][]domain.Message
}

func (f *fakeSource) ListChats(_ context.Context, kind domain.ChatKind) []domain.Chat {
	return f.chats[kind]
}

func (f *fakeSource) FetchMessages(_ context.Context, chatID string) []domain.Message {
	return f.messages[chatID]
}

type noReplies struct{}

func (noReplies) FetchReplies(_ context.Context, _, _ string) []domain.Message { return nil }

type fakeResolver struct {
	users map[string]domain.User
}

func (r *fakeResolver) ResolveUser(_ context.Context, userID string) domain.User {
	if u, ok := r.users[userID]; ok {
		return u
	}
	return domain.User{ID: userID, Handle: userID, DisplayName: userID, Fallback: true}
}

type fakeDownloader struct {
	dests []string
	fail  map[string]bool
}

func (d *fakeDownloader) Download(_ context.Context, url, destPath string) error {
	if d.fail[url] {
		return domain.ErrDownloadFailed
	}
	d.dests = append(d.dests, destPath)
	return os.WriteFile(destPath, []byte("media"), 0o644)
}

func newTestService(t *testing.T, source *fakeSource, dl *fakeDownloader) *ExportService {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	resolver := &fakeResolver{users: map[string]domain.User{
		"U1": {ID: "U1", Handle: "alice", DisplayName: "Alice Liddell"},
	}}
	stateDir := t.TempDir()
	dir := directory.Open(filepath.Join(stateDir, "users.json"), resolver, logger)
	renderer := render.NewRenderer(noReplies{}, dir, logger)
	cfg := config.ExportConfig{
		Prefix:    "Slack Export",
		OutputDir: ".",
		StateDir:  stateDir,
		SaveMedia: true,
	}
	return NewExportService(source, dir, renderer, dl, cfg, logger)
}

func TestListChats_InvalidKind(t *testing.T) {
	svc := newTestService(t, &fakeSource{}, &fakeDownloader{})

	_, err := svc.ListChats(context.Background(), domain.ChatKind("bogus"), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidChatKind)
}

func TestListChats_ChannelsUseChatName(t *testing.T) {
	source := &fakeSource{chats: map[domain.ChatKind][]domain.Chat{
		domain.KindChannel: {{ID: "C1", Name: "general", Kind: domain.KindChannel}},
	}}
	svc := newTestService(t, source, &fakeDownloader{})

	var last int
	listings, err := svc.ListChats(context.Background(), domain.KindChannel, func(p int) { last = p })

	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, "general", listings[0].Handle)
	assert.Equal(t, "general", listings[0].DisplayName)
	assert.Equal(t, 100, last)
}

func TestListChats_DirectMessagesResolveNames(t *testing.T) {
	source := &fakeSource{chats: map[domain.ChatKind][]domain.Chat{
		domain.KindDirectMessage: {
			{ID: "D1", Kind: domain.KindDirectMessage, UserID: "U1"},
			{ID: "D2", Kind: domain.KindDirectMessage, UserID: "U404"},
		},
	}}
	svc := newTestService(t, source, &fakeDownloader{})

	listings, err := svc.ListChats(context.Background(), domain.KindDirectMessage, nil)

	require.NoError(t, err)
	require.Len(t, listings, 2)
	assert.Equal(t, "alice", listings[0].Handle)
	assert.Equal(t, "Alice Liddell", listings[0].DisplayName)
	assert.Equal(t, "U404", listings[1].DisplayName, "failed lookup falls back to the id")
}

func TestExport_NoChatsSelected(t *testing.T) {
	svc := newTestService(t, &fakeSource{}, &fakeDownloader{})

	err := svc.Export(context.Background(), nil, t.TempDir(), true, nil)
	assert.ErrorIs(t, err, domain.ErrNoChatsSelected)
}

func TestExport_ChannelLayout(t *testing.T) {
	source := &fakeSource{
		messages: map[string][]domain.Message{
			"C1": {
				{SenderID: "U1", Timestamp: "1700000100.000000", Files: []domain.File{
					{Name: "report.pdf", URL: "https://files/r", Filetype: "pdf"},
				}},
				{SenderID: "U1", Timestamp: "1700000000.000000", Text: "hello"},
			},
		},
	}
	dl := &fakeDownloader{}
	svc := newTestService(t, source, dl)
	dest := t.TempDir()

	chat := domain.Chat{ID: "C1", Name: "general", Kind: domain.KindChannel}
	require.NoError(t, svc.Export(context.Background(), []domain.Chat{chat}, dest, true, nil))

	folder := filepath.Join(dest, "Slack Export - Channel - general")
	htmlPath := filepath.Join(folder, "Slack Export - Channel - general.html")

	html, err := os.ReadFile(htmlPath)
	require.NoError(t, err)
	assert.Contains(t, string(html), "<title>Slack Export | Channel | general</title>")
	assert.Contains(t, string(html), "hello")

	media, err := os.ReadFile(filepath.Join(folder, "media", "report1.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "media", string(media))

	job := svc.Status()
	assert.Equal(t, PhaseDone, job.Phase)
	assert.Equal(t, 1, job.DoneChats)
	assert.Equal(t, 1, job.MediaSaved)
	assert.Equal(t, 0, job.MediaFailed)
	assert.NotEmpty(t, job.ID)
}

func TestExport_DirectMessageFolderName(t *testing.T) {
	source := &fakeSource{messages: map[string][]domain.Message{
		"D1": {{SenderID: "U1", Timestamp: "1700000000.000000", Text: "hi"}},
	}}
	svc := newTestService(t, source, &fakeDownloader{})
	dest := t.TempDir()

	chat := domain.Chat{ID: "D1", Kind: domain.KindDirectMessage, UserID: "U1"}
	require.NoError(t, svc.Export(context.Background(), []domain.Chat{chat}, dest, true, nil))

	folder := "Slack Export - Direct Message - alice (Alice Liddell)"
	_, err := os.Stat(filepath.Join(dest, folder, folder+".html"))
	assert.NoError(t, err)
}

func TestExport_SeedsRegistryFromExistingMedia(t *testing.T) {
	source := &fakeSource{messages: map[string][]domain.Message{
		"C1": {{SenderID: "U1", Timestamp: "1700000000.000000", Files: []domain.File{
			{Name: "report.pdf", URL: "https://files/r", Filetype: "pdf"},
		}}},
	}}
	dl := &fakeDownloader{}
	svc := newTestService(t, source, dl)
	dest := t.TempDir()

	mediaDir := filepath.Join(dest, "Slack Export - Channel - general", "media")
	require.NoError(t, os.MkdirAll(mediaDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(mediaDir, "report1.pdf"), []byte("old"), 0o644))

	chat := domain.Chat{ID: "C1", Name: "general", Kind: domain.KindChannel}
	require.NoError(t, svc.Export(context.Background(), []domain.Chat{chat}, dest, true, nil))

	// The existing name is claimed, so the new file lands beside it.
	require.Len(t, dl.dests, 1)
	assert.Equal(t, filepath.Join(mediaDir, "report2.pdf"), dl.dests[0])

	old, err := os.ReadFile(filepath.Join(mediaDir, "report1.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "old", string(old), "previous download left untouched")
}

func TestExport_SkipsMediaAlreadyOnDisk(t *testing.T) {
	source := &fakeSource{messages: map[string][]domain.Message{
		"C1": {{SenderID: "U1", Timestamp: "1700000000.000000", Files: []domain.File{
			{Name: "README", URL: "https://files/readme"},
		}}},
	}}
	dl := &fakeDownloader{}
	svc := newTestService(t, source, dl)
	dest := t.TempDir()

	mediaDir := filepath.Join(dest, "Slack Export - Channel - general", "media")
	require.NoError(t, os.MkdirAll(mediaDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(mediaDir, "README"), []byte("old"), 0o644))

	chat := domain.Chat{ID: "C1", Name: "general", Kind: domain.KindChannel}
	require.NoError(t, svc.Export(context.Background(), []domain.Chat{chat}, dest, true, nil))

	assert.Empty(t, dl.dests)
	assert.Equal(t, 0, svc.Status().MediaSaved)
}

func TestExport_MediaDisabled(t *testing.T) {
	source := &fakeSource{messages: map[string][]domain.Message{
		"C1": {{SenderID: "U1", Timestamp: "1700000000.000000", Files: []domain.File{
			{Name: "report.pdf", URL: "https://files/r", Filetype: "pdf"},
		}}},
	}}
	dl := &fakeDownloader{}
	svc := newTestService(t, source, dl)
	dest := t.TempDir()

	chat := domain.Chat{ID: "C1", Name: "general", Kind: domain.KindChannel}
	require.NoError(t, svc.Export(context.Background(), []domain.Chat{chat}, dest, false, nil))

	assert.Empty(t, dl.dests, "media download suppressed")

	_, err := os.Stat(filepath.Join(dest, "Slack Export - Channel - general", "Slack Export - Channel - general.html"))
	assert.NoError(t, err, "document still written")
}

func TestExport_DownloadFailureIsCountedNotFatal(t *testing.T) {
	source := &fakeSource{messages: map[string][]domain.Message{
		"C1": {{SenderID: "U1", Timestamp: "1700000000.000000", Files: []domain.File{
			{Name: "bad.pdf", URL: "https://files/bad", Filetype: "pdf"},
			{Name: "good.pdf", URL: "https://files/good", Filetype: "pdf"},
		}}},
	}}
	dl := &fakeDownloader{fail: map[string]bool{"https://files/bad": true}}
	svc := newTestService(t, source, dl)

	chat := domain.Chat{ID: "C1", Name: "general", Kind: domain.KindChannel}
	require.NoError(t, svc.Export(context.Background(), []domain.Chat{chat}, t.TempDir(), true, nil))

	job := svc.Status()
	assert.Equal(t, 1, job.MediaSaved)
	assert.Equal(t, 1, job.MediaFailed)
}

func TestExport_ProgressIsMonotonic(t *testing.T) {
	source := &fakeSource{messages: map[string][]domain.Message{
		"C1": {{SenderID: "U1", Timestamp: "1700000000.000000", Text: "a"}},
		"C2": {{SenderID: "U1", Timestamp: "1700000100.000000", Text: "b"}},
	}}
	svc := newTestService(t, source, &fakeDownloader{})

	var seen []int
	chats := []domain.Chat{
		{ID: "C1", Name: "one", Kind: domain.KindChannel},
		{ID: "C2", Name: "two", Kind: domain.KindChannel},
	}
	require.NoError(t, svc.Export(context.Background(), chats, t.TempDir(), true, func(p int) {
		seen = append(seen, p)
	}))

	require.NotEmpty(t, seen)
	for i := 1; i < len(seen); i++ {
		assert.GreaterOrEqual(t, seen[i], seen[i-1], "progress must not move backwards")
	}
	assert.Equal(t, 100, seen[len(seen)-1])
}

func TestExport_SavesUserDirectory(t *testing.T) {
	source := &fakeSource{messages: map[string][]domain.Message{
		"D1": {{SenderID: "U1", Timestamp: "1700000000.000000", Text: "hi"}},
	}}
	svc := newTestService(t, source, &fakeDownloader{})

	chat := domain.Chat{ID: "D1", Kind: domain.KindDirectMessage, UserID: "U1"}
	require.NoError(t, svc.Export(context.Background(), []domain.Chat{chat}, t.TempDir(), true, nil))

	data, err := os.ReadFile(svc.cfg.UsersFile())
	require.NoError(t, err)
	assert.Contains(t, string(data), "Alice Liddell")
}
