// Package service drives the end-to-end export flow: list chats, fetch
// messages per selected chat, render, write files, download media, and
// report progress.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/thenajjar/slack-history-exporter/internal/config"
	"github.com/thenajjar/slack-history-exporter/internal/directory"
	"github.com/thenajjar/slack-history-exporter/internal/domain"
	"github.com/thenajjar/slack-history-exporter/internal/render"
)

// Phase is the orchestrator's position in an export job.
type Phase string

const (
	PhaseIdle             Phase = "idle"
	PhaseListingChats     Phase = "listing_chats"
	PhaseChatsListed      Phase = "chats_listed"
	PhaseFetchingMessages Phase = "fetching_messages"
	PhaseRendering        Phase = "rendering"
	PhaseWritingHTML      Phase = "writing_html"
	PhaseDownloadingMedia Phase = "downloading_media"
	PhaseDone             Phase = "done"
)

// Within one chat's share of the progress bar: rendering consumes the first
// chunk, the HTML write a small fixed slice, and media download the rest.
const (
	renderShare = 0.4
	htmlShare   = 0.1
	mediaShare  = 0.5
)

// ProgressFunc receives overall job progress in the range 0-100.
type ProgressFunc func(percent int)

// ChatSource is the remote adapter surface the orchestrator consumes.
type ChatSource interface {
	ListChats(ctx context.Context, kind domain.ChatKind) []domain.Chat
	FetchMessages(ctx context.Context, chatID string) []domain.Message
}

// Downloader fetches one media URL to a local path.
type Downloader interface {
	Download(ctx context.Context, url, destPath string) error
}

// Job tracks one export run.
type Job struct {
	ID          string
	Phase       Phase
	TotalChats  int
	DoneChats   int
	MediaSaved  int
	MediaFailed int
	StartedAt   time.Time
}

// ExportService owns the export sequencing, the job's progress counters,
// and the per-job media-filename registry (reset at job start).
type ExportService struct {
	source     ChatSource
	dir        *directory.Directory
	renderer   *render.Renderer
	downloader Downloader
	cfg        config.ExportConfig
	logger     *slog.Logger

	mu  sync.Mutex
	job Job
}

// NewExportService creates an ExportService.
func NewExportService(source ChatSource, dir *directory.Directory, renderer *render.Renderer, dl Downloader, cfg config.ExportConfig, logger *slog.Logger) *ExportService {
	return &ExportService{
		source:     source,
		dir:        dir,
		renderer:   renderer,
		downloader: dl,
		cfg:        cfg,
		logger:     logger,
		job:        Job{Phase: PhaseIdle},
	}
}

// Status returns a copy of the current job state.
func (s *ExportService) Status() Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.job
}

func (s *ExportService) setPhase(p Phase) {
	s.mu.Lock()
	s.job.Phase = p
	s.mu.Unlock()
}

// ListChats lists the conversations of one kind with display names
// resolved. Direct messages require one directory lookup per chat, so
// progress advances incrementally as they resolve; other kinds complete in
// a single call and progress jumps straight to 100. The directory is saved
// afterward so resolved users survive the run.
func (s *ExportService) ListChats(ctx context.Context, kind domain.ChatKind, progress ProgressFunc) ([]domain.ChatListing, error) {
	if !kind.Valid() {
		return nil, domain.ErrInvalidChatKind
	}
	if progress == nil {
		progress = func(int) {}
	}

	s.setPhase(PhaseListingChats)
	chats := s.source.ListChats(ctx, kind)

	listings := make([]domain.ChatListing, 0, len(chats))
	for i, chat := range chats {
		listing := domain.ChatListing{Chat: chat, Handle: chat.Name, DisplayName: chat.Name}
		if kind == domain.KindDirectMessage {
			u := s.dir.Get(ctx, chat.UserID)
			listing.Handle = u.Handle
			listing.DisplayName = u.DisplayName
			progress((i + 1) * 100 / len(chats))
		}
		listings = append(listings, listing)
	}
	progress(100)
	s.setPhase(PhaseChatsListed)

	if err := s.dir.Save(); err != nil {
		s.logger.Error("save user directory failed", "error", err)
	}
	return listings, nil
}

// Export runs one export job over the selected chats, in input order. No
// error is fatal to the whole job: per-chat, per-message, and per-file
// failures are logged with identifying context and the loop continues, so
// accumulated partial output is still written.
func (s *ExportService) Export(ctx context.Context, chats []domain.Chat, destDir string, saveMedia bool, progress ProgressFunc) error {
	if len(chats) == 0 {
		return domain.ErrNoChatsSelected
	}
	if progress == nil {
		progress = func(int) {}
	}

	s.mu.Lock()
	s.job = Job{
		ID:         uuid.NewString(),
		Phase:      PhaseFetchingMessages,
		TotalChats: len(chats),
		StartedAt:  time.Now(),
	}
	jobID := s.job.ID
	s.mu.Unlock()

	s.logger.Info("export started",
		"job_id", jobID, "chats", len(chats), "dest", destDir, "save_media", saveMedia)

	chatUnit := 100.0 / float64(len(chats))
	current := 0.0

	for _, chat := range chats {
		progress(int(current))
		s.exportChat(ctx, chat, destDir, saveMedia, chatUnit, current, progress)
		current += chatUnit

		s.mu.Lock()
		s.job.DoneChats++
		s.mu.Unlock()
	}

	progress(100)
	s.setPhase(PhaseDone)

	if err := s.dir.Save(); err != nil {
		s.logger.Error("save user directory failed", "error", err)
	}

	job := s.Status()
	s.logger.Info("export finished",
		"job_id", jobID, "chats", job.DoneChats,
		"media_saved", job.MediaSaved, "media_failed", job.MediaFailed)
	return nil
}

// exportChat runs the per-chat pipeline: resolve name, create folders, seed
// the dedup registry, fetch, render, write, download.
func (s *ExportService) exportChat(ctx context.Context, chat domain.Chat, destDir string, saveMedia bool, unit, base float64, progress ProgressFunc) {
	name := s.chatName(ctx, chat)
	stem := render.Sanitize(fmt.Sprintf("%s - %s - %s", s.cfg.Prefix, chat.Kind.Label(), name))

	folder := filepath.Join(destDir, stem)
	mediaDir := filepath.Join(folder, "media")
	if err := os.MkdirAll(mediaDir, 0o755); err != nil {
		s.logger.Error("create chat folder failed",
			"chat_id", chat.ID, "path", folder, "error", err)
		return
	}

	// Names already on disk are claimed up front so a generated name never
	// silently overwrites an older download.
	registry := render.NewRegistry()
	if entries, err := os.ReadDir(mediaDir); err == nil {
		for _, entry := range entries {
			registry.Seed(entry.Name())
		}
	}

	s.setPhase(PhaseFetchingMessages)
	messages := s.source.FetchMessages(ctx, chat.ID)
	s.logger.Info("fetched messages", "chat_id", chat.ID, "chat", name, "count", len(messages))

	s.setPhase(PhaseRendering)
	title := fmt.Sprintf("%s | %s | %s", s.cfg.Prefix, chat.Kind.Label(), name)
	doc, err := s.renderer.RenderChat(ctx, chat.ID, title, messages, registry, func(done, total int) {
		progress(int(base + unit*renderShare*float64(done)/float64(total)))
	})
	if err != nil {
		s.logger.Error("render chat failed", "chat_id", chat.ID, "chat", name, "error", err)
		return
	}

	s.setPhase(PhaseWritingHTML)
	htmlPath := filepath.Join(folder, stem+".html")
	if err := os.WriteFile(htmlPath, []byte(doc.HTML), 0o644); err != nil {
		s.logger.Error("write chat document failed",
			"chat_id", chat.ID, "path", htmlPath, "error", err)
	}
	afterHTML := base + unit*(renderShare+htmlShare)
	progress(int(afterHTML))

	if !saveMedia || len(doc.Media) == 0 {
		return
	}

	s.setPhase(PhaseDownloadingMedia)
	for i, item := range doc.Media {
		s.downloadMedia(ctx, chat.ID, mediaDir, item)
		progress(int(afterHTML + unit*mediaShare*float64(i+1)/float64(len(doc.Media))))
	}
}

// downloadMedia fetches one manifest entry unless a file with the same
// final local name already exists.
func (s *ExportService) downloadMedia(ctx context.Context, chatID, mediaDir string, item domain.MediaItem) {
	path := filepath.Join(mediaDir, item.LocalName)
	if _, err := os.Stat(path); err == nil {
		return
	}

	s.logger.Info("downloading media", "chat_id", chatID, "file", item.LocalName)
	if err := s.downloader.Download(ctx, item.SourceURL, path); err != nil {
		s.logger.Error("download media failed",
			"chat_id", chatID, "file", item.LocalName, "error", err)
		s.mu.Lock()
		s.job.MediaFailed++
		s.mu.Unlock()
		return
	}

	s.mu.Lock()
	s.job.MediaSaved++
	s.mu.Unlock()
}

// chatName resolves the display name used for folders and titles. Direct
// messages compose "handle (displayName)" from the counterpart's directory
// entry; other kinds use the chat name directly.
func (s *ExportService) chatName(ctx context.Context, chat domain.Chat) string {
	if chat.Kind != domain.KindDirectMessage {
		return chat.Name
	}
	u := s.dir.Get(ctx, chat.UserID)
	return fmt.Sprintf("%s (%s)", u.Handle, u.DisplayName)
}
