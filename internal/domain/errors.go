package domain

import "errors"

// Domain errors.
var (
	// ErrNoToken is returned when no Slack token is configured.
	ErrNoToken = errors.New("slack token is required")

	// ErrInvalidChatKind is returned for a chat kind outside channel/group/dm.
	ErrInvalidChatKind = errors.New("invalid chat kind")

	// ErrNoChatsSelected is returned when an export is started with an empty selection.
	ErrNoChatsSelected = errors.New("no chats selected")

	// ErrDownloadFailed is returned when a media download fails after retries.
	ErrDownloadFailed = errors.New("media download failed")

	// ErrRateLimited is returned when rate limited by the Slack API.
	ErrRateLimited = errors.New("rate limited")
)

// ChatError wraps an error with conversation context so per-item failures
// can be logged with the offending chat and message.
type ChatError struct {
	ChatID    string
	MessageTS string
	Op        string
	Err       error
}

func (e *ChatError) Error() string {
	s := e.Op + " [" + e.ChatID
	if e.MessageTS != "" {
		s += "/" + e.MessageTS
	}
	return s + "]: " + e.Err.Error()
}

func (e *ChatError) Unwrap() error {
	return e.Err
}

// NewChatError creates a new ChatError.
func NewChatError(chatID, messageTS, op string, err error) *ChatError {
	return &ChatError{ChatID: chatID, MessageTS: messageTS, Op: op, Err: err}
}
