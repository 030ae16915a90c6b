package platform

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Kind distinguishes the two inbound event types the agent reacts to.
type Kind string

const (
	KindMention       Kind = "mention"
	KindDirectMessage Kind = "direct_message"
)

// Event is an inbound chat event. Read-only once received.
type Event struct {
	Kind      Kind
	EventID   string
	SenderID  string
	ChannelID string
	// ThreadTS is the thread root timestamp, empty when the message is not
	// in a thread.
	ThreadTS string
	// MessageTS is the timestamp of the triggering message itself.
	MessageTS string
	Text      string
	Timestamp time.Time
}

// ConversationKey identifies the logical thread of interaction this event
// belongs to: channel plus thread root for threaded conversations, the bare
// channel for a flat DM.
func (e *Event) ConversationKey() string {
	if e.Kind == KindDirectMessage && e.ThreadTS == "" {
		return e.ChannelID
	}
	return e.ChannelID + ":" + e.replyThread()
}

// ReplyThread returns the thread timestamp replies should carry. Channel
// mentions outside a thread start a new thread rooted at the mention; flat
// DMs reply without a thread.
func (e *Event) ReplyThread() string {
	if e.Kind == KindDirectMessage && e.ThreadTS == "" {
		return ""
	}
	return e.replyThread()
}

func (e *Event) replyThread() string {
	if e.ThreadTS != "" {
		return e.ThreadTS
	}
	return e.MessageTS
}

var mentionPattern = regexp.MustCompile(`<@[A-Z0-9]+>`)

// StripMentions removes all <@UXXXX> bot/user mentions from text.
func StripMentions(text string) string {
	return strings.TrimSpace(mentionPattern.ReplaceAllString(text, ""))
}

// parseSlackTS converts a Slack "seconds.micros" timestamp into a time.Time.
// Returns the zero time for malformed input.
func parseSlackTS(ts string) time.Time {
	sec, frac, _ := strings.Cut(ts, ".")
	s, err := strconv.ParseInt(sec, 10, 64)
	if err != nil {
		return time.Time{}
	}
	var micros int64
	if frac != "" {
		micros, _ = strconv.ParseInt(frac, 10, 64)
	}
	return time.Unix(s, micros*int64(time.Microsecond))
}
