package domain

// ChatKind classifies a Slack conversation.
type ChatKind string

const (
	KindChannel       ChatKind = "channel"
	KindGroup         ChatKind = "group"
	KindDirectMessage ChatKind = "dm"
)

// Label returns the human-readable kind name used in folder names and
// document titles.
func (k ChatKind) Label() string {
	switch k {
	case KindChannel:
		return "Channel"
	case KindGroup:
		return "Group Chat"
	case KindDirectMessage:
		return "Direct Message"
	}
	return string(k)
}

// Valid reports whether k is one of the known chat kinds.
func (k ChatKind) Valid() bool {
	switch k {
	case KindChannel, KindGroup, KindDirectMessage:
		return true
	}
	return false
}

// Chat is one conversation as returned by the chat listing. Immutable for
// the session once materialized. For direct messages Name is empty and
// UserID holds the counterpart, whose directory entry supplies the display
// name.
type Chat struct {
	ID     string
	Name   string
	Kind   ChatKind
	UserID string
}

// ChatListing pairs a Chat with its resolved display names, ready for
// selection. Handle and DisplayName differ only for direct messages, where
// they come from the counterpart's directory entry.
type ChatListing struct {
	Chat        Chat
	Handle      string
	DisplayName string
}
