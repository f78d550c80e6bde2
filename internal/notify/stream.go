package notify

import (
	"context"

	"github.com/arkplatform/user-service/internal/events"
)

// StreamNotifier publishes external-channel notices to the notification
// stream, where the ops channel relay picks them up. The stream gives
// downstream consumers at-least-once delivery even though the provisioning
// path itself never retries.
type StreamNotifier struct {
	publisher *events.Publisher
}

func NewStreamNotifier(publisher *events.Publisher) *StreamNotifier {
	return &StreamNotifier{publisher: publisher}
}

func (n *StreamNotifier) Notice(ctx context.Context, text string) error {
	return n.publisher.Publish(ctx, events.NotificationEventsStream, events.ChannelNotice,
		events.ChannelNoticeEvent{Text: text})
}

// StreamChatSeeder requests welcome-chat seeding through the notification
// stream consumed by the chat service.
type StreamChatSeeder struct {
	publisher *events.Publisher
}

func NewStreamChatSeeder(publisher *events.Publisher) *StreamChatSeeder {
	return &StreamChatSeeder{publisher: publisher}
}

func (s *StreamChatSeeder) SeedWelcomeChat(ctx context.Context, identity Identity) error {
	return s.publisher.Publish(ctx, events.NotificationEventsStream, events.WelcomeChatSeed,
		events.WelcomeChatSeedEvent{UserID: identity.UserID, Name: identity.Name})
}
