// Package slack wraps the Slack Web API behind the narrow surface the
// exporter needs: paginated chat listing, message history, threaded
// replies, and user lookup. Every call is independently fault-isolated; a
// remote failure degrades that call's result to an empty or fallback value
// instead of aborting the export.
package slack

import (
	"context"
	"log/slog"

	api "github.com/slack-go/slack"

	"github.com/thenajjar/slack-history-exporter/internal/domain"
)

// API is the subset of the Slack Web API client the adapter uses. Narrowed
// for testability; *slack.Client satisfies it.
type API interface {
	GetConversationsContext(ctx context.Context, params *api.GetConversationsParameters) ([]api.Channel, string, error)
	GetConversationHistoryContext(ctx context.Context, params *api.GetConversationHistoryParameters) (*api.GetConversationHistoryResponse, error)
	GetConversationRepliesContext(ctx context.Context, params *api.GetConversationRepliesParameters) ([]api.Message, bool, string, error)
	GetUserInfoContext(ctx context.Context, user string) (*api.User, error)
}

// Adapter translates Slack conversations, messages, and users into domain
// types, accumulating across cursor pages.
type Adapter struct {
	api       API
	pageLimit int
	logger    *slog.Logger
}

// NewAdapter creates an Adapter backed by a real Slack client for the given
// user token.
func NewAdapter(token string, pageLimit int, logger *slog.Logger) *Adapter {
	return NewAdapterWithAPI(api.New(token), pageLimit, logger)
}

// NewAdapterWithAPI creates an Adapter over an arbitrary API implementation.
func NewAdapterWithAPI(client API, pageLimit int, logger *slog.Logger) *Adapter {
	if pageLimit <= 0 {
		pageLimit = 200
	}
	return &Adapter{api: client, pageLimit: pageLimit, logger: logger}
}

// ListChats returns the conversations of the given kind, accumulated across
// all pages. The channel kind issues two paged queries (public + private)
// and concatenates the results. Archived conversations are excluded. On
// error the accumulated results so far are returned.
func (a *Adapter) ListChats(ctx context.Context, kind domain.ChatKind) []domain.Chat {
	switch kind {
	case domain.KindChannel:
		chats := a.listConversations(ctx, kind, "public_channel")
		return append(chats, a.listConversations(ctx, kind, "private_channel")...)
	case domain.KindGroup:
		return a.listConversations(ctx, kind, "mpim")
	case domain.KindDirectMessage:
		return a.listConversations(ctx, kind, "im")
	}
	a.logger.Error("invalid chat kind", "kind", kind)
	return nil
}

func (a *Adapter) listConversations(ctx context.Context, kind domain.ChatKind, types string) []domain.Chat {
	var chats []domain.Chat
	params := &api.GetConversationsParameters{
		Types:           []string{types},
		Limit:           a.pageLimit,
		ExcludeArchived: true,
	}
	for {
		channels, nextCursor, err := a.api.GetConversationsContext(ctx, params)
		if err != nil {
			a.logger.Error("fetch conversations failed",
				"types", types, "error", err)
			return chats
		}
		for _, ch := range channels {
			if !matchesKind(ch, kind) {
				continue
			}
			chats = append(chats, domain.Chat{
				ID:     ch.ID,
				Name:   ch.Name,
				Kind:   kind,
				UserID: ch.User,
			})
		}
		if nextCursor == "" {
			return chats
		}
		params.Cursor = nextCursor
	}
}

// matchesKind double-checks the conversation flags against the requested
// kind. The server already filters by type, but mixed results have been
// observed for workspaces with shared channels.
func matchesKind(ch api.Channel, kind domain.ChatKind) bool {
	switch kind {
	case domain.KindChannel:
		return !ch.IsIM && !ch.IsMpIM
	case domain.KindGroup:
		return ch.IsMpIM
	case domain.KindDirectMessage:
		return ch.IsIM
	}
	return false
}

// ResolveUser looks up a user id. On failure it degrades to the raw
// identifier for both handle and display name, marked as a fallback so the
// directory can avoid persisting it.
func (a *Adapter) ResolveUser(ctx context.Context, userID string) domain.User {
	info, err := a.api.GetUserInfoContext(ctx, userID)
	if err != nil {
		a.logger.Error("fetch user info failed",
			"user_id", userID, "error", err)
		return domain.User{ID: userID, Handle: userID, DisplayName: userID, Fallback: true}
	}
	displayName := info.RealName
	if displayName == "" {
		displayName = info.Name
	}
	return domain.User{ID: userID, Handle: info.Name, DisplayName: displayName}
}

// FetchMessages returns a chat's history newest-first, as delivered by the
// server, accumulated across all pages. On error the accumulated messages
// so far are returned.
func (a *Adapter) FetchMessages(ctx context.Context, chatID string) []domain.Message {
	var messages []domain.Message
	params := &api.GetConversationHistoryParameters{
		ChannelID: chatID,
		Limit:     a.pageLimit,
	}
	for {
		resp, err := a.api.GetConversationHistoryContext(ctx, params)
		if err != nil {
			a.logger.Error("fetch messages failed",
				"chat_id", chatID, "error", err)
			return messages
		}
		for _, m := range resp.Messages {
			messages = append(messages, mapMessage(m))
		}
		if !resp.HasMore {
			return messages
		}
		params.Cursor = resp.ResponseMetaData.NextCursor
	}
}

// FetchReplies returns a message's thread, excluding the parent message the
// API echoes back. On error it returns an empty sequence.
func (a *Adapter) FetchReplies(ctx context.Context, chatID, parentTS string) []domain.Message {
	var replies []domain.Message
	params := &api.GetConversationRepliesParameters{
		ChannelID: chatID,
		Timestamp: parentTS,
		Limit:     a.pageLimit,
	}
	for {
		msgs, hasMore, nextCursor, err := a.api.GetConversationRepliesContext(ctx, params)
		if err != nil {
			a.logger.Error("fetch replies failed",
				"chat_id", chatID, "ts", parentTS, "error", err)
			return nil
		}
		for _, m := range msgs {
			if m.Timestamp == parentTS {
				continue
			}
			replies = append(replies, mapMessage(m))
		}
		if !hasMore {
			return replies
		}
		params.Cursor = nextCursor
	}
}

func mapMessage(m api.Message) domain.Message {
	sender := m.User
	if sender == "" {
		sender = m.BotID
	}

	var files []domain.File
	for _, f := range m.Files {
		files = append(files, domain.File{
			Name:     f.Name,
			URL:      f.URLPrivate,
			Filetype: f.Filetype,
		})
	}

	var attachments []domain.RichAttachment
	for _, att := range m.Attachments {
		attachments = append(attachments, domain.RichAttachment{
			Pretext:  att.Pretext,
			Title:    att.Title,
			Text:     att.Text,
			ImageURL: att.ImageURL,
		})
	}

	return domain.Message{
		SenderID:    sender,
		Timestamp:   m.Timestamp,
		Text:        m.Text,
		Files:       files,
		Attachments: attachments,
		ReplyCount:  m.ReplyCount,
	}
}
