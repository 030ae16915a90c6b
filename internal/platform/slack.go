package platform

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"github.com/106-/claude-code-slack-agent/internal/config"
)

// Slack delivers inbound events over Socket Mode and implements Messenger
// via the Web API (chat.postMessage / chat.update).
type Slack struct {
	api       *slack.Client
	sock      *socketmode.Client
	handle    HandlerFunc
	botUserID string
}

// NewSlack creates a Slack dispatcher. Events are delivered to handle, one
// goroutine per event.
func NewSlack(cfg config.SlackConfig, handle HandlerFunc) *Slack {
	api := slack.New(cfg.BotToken, slack.OptionAppLevelToken(cfg.AppToken))
	return &Slack{
		api:    api,
		sock:   socketmode.New(api),
		handle: handle,
	}
}

// Start verifies credentials, then runs the Socket Mode connection until ctx
// is cancelled. Reconnects are handled inside the socketmode client.
func (s *Slack) Start(ctx context.Context) error {
	auth, err := s.api.AuthTestContext(ctx)
	if err != nil {
		return fmt.Errorf("slack auth test: %w", err)
	}
	s.botUserID = auth.UserID
	slog.Info("Slack authenticated", "bot_user", auth.User, "team", auth.Team)

	go s.eventLoop(ctx)
	return s.sock.RunContext(ctx)
}

// PostMessage implements Messenger.
func (s *Slack) PostMessage(ctx context.Context, channelID, threadTS, text string) (string, error) {
	opts := []slack.MsgOption{slack.MsgOptionText(text, false)}
	if threadTS != "" {
		opts = append(opts, slack.MsgOptionTS(threadTS))
	}
	_, ts, err := s.api.PostMessageContext(ctx, channelID, opts...)
	if err != nil {
		return "", fmt.Errorf("post message: %w", err)
	}
	return ts, nil
}

// UpdateMessage implements Messenger.
func (s *Slack) UpdateMessage(ctx context.Context, channelID, messageID, text string) error {
	_, _, _, err := s.api.UpdateMessageContext(ctx, channelID, messageID, slack.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("update message: %w", err)
	}
	return nil
}

func (s *Slack) eventLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-s.sock.Events:
			if !ok {
				return
			}
			switch evt.Type {
			case socketmode.EventTypeConnecting:
				slog.Info("Connecting to Slack Socket Mode...")
			case socketmode.EventTypeConnected:
				slog.Info("Slack Socket Mode connected")
			case socketmode.EventTypeConnectionError:
				slog.Warn("Slack Socket Mode connection error", "data", evt.Data)
			case socketmode.EventTypeEventsAPI:
				apiEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
				if !ok {
					continue
				}
				// Ack before processing: the backend call can take minutes
				// and Slack redelivers unacked envelopes.
				if evt.Request != nil {
					s.sock.Ack(*evt.Request)
				}
				s.dispatch(ctx, apiEvent)
			}
		}
	}
}

func (s *Slack) dispatch(ctx context.Context, apiEvent slackevents.EventsAPIEvent) {
	if apiEvent.Type != slackevents.CallbackEvent {
		return
	}

	var eventID string
	if cb, ok := apiEvent.Data.(*slackevents.EventsAPICallbackEvent); ok {
		eventID = cb.EventID
	}

	switch ev := apiEvent.InnerEvent.Data.(type) {
	case *slackevents.AppMentionEvent:
		if ev.BotID != "" || ev.User == s.botUserID {
			return
		}
		go s.handle(ctx, Event{
			Kind:      KindMention,
			EventID:   eventID,
			SenderID:  ev.User,
			ChannelID: ev.Channel,
			ThreadTS:  ev.ThreadTimeStamp,
			MessageTS: ev.TimeStamp,
			Text:      ev.Text,
			Timestamp: parseSlackTS(ev.TimeStamp),
		})

	case *slackevents.MessageEvent:
		// Only flat DMs; channel traffic arrives as app_mention and bot or
		// edited messages carry a subtype.
		if ev.ChannelType != "im" || ev.BotID != "" || ev.SubType != "" {
			return
		}
		if ev.User == "" || ev.User == s.botUserID {
			return
		}
		go s.handle(ctx, Event{
			Kind:      KindDirectMessage,
			EventID:   eventID,
			SenderID:  ev.User,
			ChannelID: ev.Channel,
			ThreadTS:  ev.ThreadTimeStamp,
			MessageTS: ev.TimeStamp,
			Text:      ev.Text,
			Timestamp: parseSlackTS(ev.TimeStamp),
		})
	}
}
