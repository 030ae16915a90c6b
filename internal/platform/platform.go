package platform

import "context"

// HandlerFunc processes one inbound event. The dispatcher invokes it in its
// own goroutine, so implementations may block on backend I/O freely.
type HandlerFunc func(ctx context.Context, ev Event)

// Messenger exposes the two chat-platform primitives the core needs:
// posting a message and editing it in place.
type Messenger interface {
	// PostMessage posts text into a channel (threaded when threadTS is
	// non-empty) and returns the new message id.
	PostMessage(ctx context.Context, channelID, threadTS, text string) (string, error)
	// UpdateMessage replaces the text of an existing message.
	UpdateMessage(ctx context.Context, channelID, messageID, text string) error
}

// Dispatcher is a chat-platform event source feeding a HandlerFunc.
type Dispatcher interface {
	Messenger
	Start(ctx context.Context) error
}
