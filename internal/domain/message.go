package domain

import (
	"strconv"
	"time"
)

// Message is one entry of a conversation's history. Replies share the same
// shape, scoped to a parent message's timestamp. A message lacking both text
// and files still renders (as an unknown-type placeholder) and is never
// dropped.
type Message struct {
	// SenderID is the posting user's id, or the bot id for bot-authored
	// messages.
	SenderID string
	// Timestamp is Slack's message ts: fractional seconds since epoch,
	// unique-ish within a conversation and used as the ordering and
	// thread key.
	Timestamp   string
	Text        string
	Files       []File
	Attachments []RichAttachment
	ReplyCount  int
}

// Time converts the message timestamp into a local time.Time. A zero time
// is returned for unparsable timestamps.
func (m Message) Time() time.Time {
	secs, err := strconv.ParseFloat(m.Timestamp, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(int64(secs), 0)
}

// File is an uploaded attachment. URL may be empty for degenerate entries
// that carry only a name; those render as plain text and are never
// downloaded.
type File struct {
	Name     string
	URL      string
	Filetype string
}

// RichAttachment is a structured (unfurled/app) attachment rendered after
// the message text.
type RichAttachment struct {
	Pretext  string
	Title    string
	Text     string
	ImageURL string
}

// User is a resolved directory entry. Fallback marks entries synthesized
// from a failed lookup, where both names are the raw identifier.
type User struct {
	ID          string `json:"-"`
	Handle      string `json:"name"`
	DisplayName string `json:"real_name"`
	Fallback    bool   `json:"-"`
}

// MediaItem is one manifest entry produced during rendering: the
// deduplicated local filename and the remote source URL to fetch it from.
type MediaItem struct {
	LocalName string
	SourceURL string
}
