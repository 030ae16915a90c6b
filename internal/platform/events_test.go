package platform

import (
	"testing"
	"time"
)

func TestConversationKey(t *testing.T) {
	tests := []struct {
		name string
		ev   Event
		want string
	}{
		{
			"channel mention outside thread roots a new thread",
			Event{Kind: KindMention, ChannelID: "C1", MessageTS: "100.1"},
			"C1:100.1",
		},
		{
			"channel mention inside a thread stays in it",
			Event{Kind: KindMention, ChannelID: "C1", ThreadTS: "99.5", MessageTS: "100.1"},
			"C1:99.5",
		},
		{
			"flat DM",
			Event{Kind: KindDirectMessage, ChannelID: "D1", MessageTS: "100.1"},
			"D1",
		},
		{
			"threaded DM",
			Event{Kind: KindDirectMessage, ChannelID: "D1", ThreadTS: "88.2", MessageTS: "100.1"},
			"D1:88.2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ev.ConversationKey(); got != tt.want {
				t.Errorf("ConversationKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReplyThread(t *testing.T) {
	mention := Event{Kind: KindMention, ChannelID: "C1", MessageTS: "100.1"}
	if got := mention.ReplyThread(); got != "100.1" {
		t.Errorf("mention reply thread = %q, want message ts", got)
	}

	dm := Event{Kind: KindDirectMessage, ChannelID: "D1", MessageTS: "100.1"}
	if got := dm.ReplyThread(); got != "" {
		t.Errorf("flat DM reply thread = %q, want empty", got)
	}

	threaded := Event{Kind: KindMention, ChannelID: "C1", ThreadTS: "99.5", MessageTS: "100.1"}
	if got := threaded.ReplyThread(); got != "99.5" {
		t.Errorf("threaded reply thread = %q, want thread root", got)
	}
}

func TestStripMentions(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"<@U123ABC> hello", "hello"},
		{"hello <@U123ABC>", "hello"},
		{"<@U123ABC> <@U456DEF> hi", "hi"},
		{"<@U123ABC>", ""},
		{"   ", ""},
		{"no mention here", "no mention here"},
	}

	for _, tt := range tests {
		if got := StripMentions(tt.in); got != tt.want {
			t.Errorf("StripMentions(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseSlackTS(t *testing.T) {
	got := parseSlackTS("1712345678.000200")
	want := time.Unix(1712345678, 200*int64(time.Microsecond))
	if !got.Equal(want) {
		t.Errorf("parseSlackTS = %v, want %v", got, want)
	}

	if !parseSlackTS("garbage").IsZero() {
		t.Error("malformed ts should parse to zero time")
	}
}
