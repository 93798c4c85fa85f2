package render

import (
	"context"
	"html/template"
	"log/slog"
	"strings"

	"github.com/thenajjar/slack-history-exporter/internal/domain"
)

// Extension classes for type-appropriate embeds.
var (
	videoTypes = set("mp4", "mov", "avi", "wmv", "flv", "webm", "mkv")
	imageTypes = set("jpg", "png", "gif", "jpeg", "bmp", "svg", "tiff", "tif", "webp")
	audioTypes = set("mp3", "wav", "ogg", "flac", "aac", "wma", "m4a", "m4b", "m4p", "m4r", "m4v")
)

func set(keys ...string) map[string]bool {
	m := make(map[string]bool, len(keys))
	for _, k := range keys {
		m[k] = true
	}
	return m
}

// timeLayout is the rendered timestamp format; its date portion drives the
// date separators.
const timeLayout = "2006-01-02 15:04:05"

// ReplyFetcher lazily loads a message's thread. Fetch errors degrade to an
// empty sequence inside the adapter, so rendering never aborts on them.
type ReplyFetcher interface {
	FetchReplies(ctx context.Context, chatID, parentTS string) []domain.Message
}

// UserResolver maps a sender id to its directory entry.
type UserResolver interface {
	Get(ctx context.Context, id string) domain.User
}

// Renderer converts a chat's message history into a self-contained HTML
// document plus a manifest of media to download.
type Renderer struct {
	replies ReplyFetcher
	users   UserResolver
	logger  *slog.Logger
}

// NewRenderer creates a Renderer.
func NewRenderer(replies ReplyFetcher, users UserResolver, logger *slog.Logger) *Renderer {
	return &Renderer{replies: replies, users: users, logger: logger}
}

// Document is the result of rendering one chat: the final HTML page and the
// media manifest in render order (oldest message first).
type Document struct {
	HTML  string
	Media []domain.MediaItem
}

// renderedReply is one entry of the embedded reply-lookup table. The inline
// script consumes the html field when a thread is expanded.
type renderedReply struct {
	User string `json:"user"`
	TS   string `json:"ts"`
	HTML string `json:"html"`
}

// RenderChat renders messages (newest-first, as delivered by the adapter)
// into an oldest-first document. A date separator is emitted whenever the
// calendar date changes between consecutive rendered messages. progress, if
// non-nil, is called after each message with (done, total).
func (r *Renderer) RenderChat(ctx context.Context, chatID, title string, messages []domain.Message, reg *Registry, progress func(done, total int)) (*Document, error) {
	var (
		body     strings.Builder
		media    []domain.MediaItem
		replies  = make(map[string][]renderedReply)
		lastDate string
		total    = len(messages)
	)

	// The server delivers newest-first; date boundary detection depends on
	// strictly sequential oldest-to-newest processing.
	for i := total - 1; i >= 0; i-- {
		msg := messages[i]
		fragment, msgMedia, msgReplies, err := r.renderMessage(ctx, chatID, msg, reg, &lastDate)
		if err != nil {
			r.logger.Error("render message failed",
				"chat_id", chatID, "ts", msg.Timestamp, "error", err)
			continue
		}
		body.WriteString(fragment)
		media = append(media, msgMedia...)
		replies[msg.Timestamp] = msgReplies
		if progress != nil {
			progress(total-i, total)
		}
	}

	var page strings.Builder
	err := document.Execute(&page, struct {
		Title    string
		Messages template.HTML
		Replies  map[string][]renderedReply
	}{
		Title:    title,
		Messages: template.HTML(body.String()),
		Replies:  replies,
	})
	if err != nil {
		return nil, domain.NewChatError(chatID, "", "render chat", err)
	}

	return &Document{HTML: page.String(), Media: media}, nil
}

// renderMessage produces one message fragment: date separator if the
// calendar date changed, the message body, its files, the replies control,
// and the trailing timestamp.
func (r *Renderer) renderMessage(ctx context.Context, chatID string, msg domain.Message, reg *Registry, lastDate *string) (string, []domain.MediaItem, []renderedReply, error) {
	var (
		sb    strings.Builder
		media []domain.MediaItem
	)

	sender := r.users.Get(ctx, msg.SenderID).DisplayName
	timestamp := msg.Time().Format(timeLayout)
	date := strings.SplitN(timestamp, " ", 2)[0]

	if date != *lastDate {
		if err := fragments.ExecuteTemplate(&sb, "date", date); err != nil {
			return "", nil, nil, err
		}
		*lastDate = date
	}

	if err := r.renderBody(&sb, msg, sender, reg, &media); err != nil {
		return "", nil, nil, err
	}

	replies := r.renderReplies(ctx, chatID, msg, reg, &media)
	if len(replies) > 0 {
		err := fragments.ExecuteTemplate(&sb, "repliesButton", struct {
			TS        string
			Count     int
			Timestamp string
		}{msg.Timestamp, msg.ReplyCount, timestamp})
		if err != nil {
			return "", nil, nil, err
		}
	}

	if err := fragments.ExecuteTemplate(&sb, "timestamp", timestamp); err != nil {
		return "", nil, nil, err
	}
	sb.WriteString("</div>")

	return sb.String(), media, replies, nil
}

// renderBody writes the opening message div, the sender line, and either
// the text (with code blocks and rich attachments) plus files, or files
// alone, or the unknown-type placeholder. The div is left open; the caller
// closes it after the timestamp.
func (r *Renderer) renderBody(sb *strings.Builder, msg domain.Message, sender string, reg *Registry, media *[]domain.MediaItem) error {
	err := fragments.ExecuteTemplate(sb, "open", struct {
		Class  string
		Sender string
	}{"other", sender})
	if err != nil {
		return err
	}

	if msg.Text != "" {
		if err := renderText(sb, msg.Text); err != nil {
			return err
		}
		if err := renderAttachments(sb, msg.Attachments); err != nil {
			return err
		}
		return r.renderFiles(sb, msg.Files, reg, media)
	}

	if len(msg.Files) > 0 {
		return r.renderFiles(sb, msg.Files, reg, media)
	}
	return fragments.ExecuteTemplate(sb, "unknown", nil)
}

// renderText splits on triple-backtick delimiters and alternates plain
// paragraphs with preformatted code blocks. Even-indexed segments are
// plain, odd-indexed are code; the delimiter itself is never emitted, and
// an unmatched trailing delimiter still yields a code block.
func renderText(sb *strings.Builder, text string) error {
	for i, segment := range strings.Split(text, "```") {
		name := "paragraph"
		if i%2 == 1 {
			name = "code"
		}
		if err := fragments.ExecuteTemplate(sb, name, segment); err != nil {
			return err
		}
	}
	return nil
}

// renderAttachments renders structured attachments after the main text.
func renderAttachments(sb *strings.Builder, attachments []domain.RichAttachment) error {
	for _, a := range attachments {
		if err := fragments.ExecuteTemplate(sb, "pretext", a.Pretext); err != nil {
			return err
		}
		if a.Title != "" {
			if err := fragments.ExecuteTemplate(sb, "attachmentTitle", a.Title); err != nil {
				return err
			}
		}
		if a.Text != "" {
			if err := fragments.ExecuteTemplate(sb, "paragraph", a.Text); err != nil {
				return err
			}
		}
		if a.ImageURL != "" {
			url := strings.NewReplacer("<", "", ">", "").Replace(a.ImageURL)
			if err := fragments.ExecuteTemplate(sb, "attachmentImage", url); err != nil {
				return err
			}
		}
	}
	return nil
}

// renderFiles emits a link plus a type-appropriate embed for every file
// with a retrievable URL and appends a manifest entry for it. A file with
// only a bare name renders as bold text and contributes no manifest entry.
func (r *Renderer) renderFiles(sb *strings.Builder, files []domain.File, reg *Registry, media *[]domain.MediaItem) error {
	for _, f := range files {
		switch {
		case f.URL != "":
			local := reg.Dedupe(f.Name)
			if err := fragments.ExecuteTemplate(sb, "fileLink", local); err != nil {
				return err
			}
			var embed string
			switch {
			case videoTypes[f.Filetype]:
				embed = "video"
			case imageTypes[f.Filetype]:
				embed = "image"
			case audioTypes[f.Filetype]:
				embed = "audio"
			}
			if embed != "" {
				if err := fragments.ExecuteTemplate(sb, embed, local); err != nil {
					return err
				}
			}
			*media = append(*media, domain.MediaItem{LocalName: local, SourceURL: f.URL})
		case f.Name != "":
			if err := fragments.ExecuteTemplate(sb, "bareFile", f.Name); err != nil {
				return err
			}
		}
	}
	return nil
}

// renderReplies fetches and renders a message's thread when it reports
// replies. Each reply follows the same text/file rules with no nested
// thread expansion. The parent echo is already filtered by the adapter.
func (r *Renderer) renderReplies(ctx context.Context, chatID string, msg domain.Message, reg *Registry, media *[]domain.MediaItem) []renderedReply {
	if msg.ReplyCount <= 0 {
		return nil
	}

	var out []renderedReply
	for _, reply := range r.replies.FetchReplies(ctx, chatID, msg.Timestamp) {
		sender := r.users.Get(ctx, reply.SenderID).DisplayName
		fragment, err := r.renderReply(reply, sender, reg, media)
		if err != nil {
			r.logger.Error("render reply failed",
				"chat_id", chatID, "ts", reply.Timestamp, "error", err)
			continue
		}
		out = append(out, renderedReply{User: sender, TS: reply.Timestamp, HTML: fragment})
	}
	return out
}

func (r *Renderer) renderReply(reply domain.Message, sender string, reg *Registry, media *[]domain.MediaItem) (string, error) {
	var sb strings.Builder
	sb.WriteString(`<div class="message reply">`)
	if err := r.renderBody(&sb, reply, sender, reg, media); err != nil {
		return "", err
	}
	if err := fragments.ExecuteTemplate(&sb, "timestamp", reply.Time().Format(timeLayout)); err != nil {
		return "", err
	}
	sb.WriteString("</div></div>")
	return sb.String(), nil
}
