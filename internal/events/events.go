// Package events defines the redis-stream event contract between the user
// service and downstream consumers (mail worker, chat service, ops channel).
package events

import "time"

// Event types
const (
	UserCreated     = "user.created"
	UserUpdated     = "user.updated"
	UserDeleted     = "user.deleted"
	PictureAttached = "user.picture_attached"

	ChannelNotice    = "notification.channel_notice"
	WelcomeChatSeed  = "notification.welcome_chat"
	MailRegistration = "notification.registration_mail"
)

// Stream names
const (
	UserEventsStream         = "user.events"
	NotificationEventsStream = "notification.events"
)

// Event is the envelope written to every stream entry.
type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

type UserCreatedEvent struct {
	UserID   string `json:"userId"`
	Mail     string `json:"mail"`
	Name     string `json:"name"`
	Strategy string `json:"strategy"`
}

type UserUpdatedEvent struct {
	UserID string `json:"userId"`
	Mail   string `json:"mail"`
	Name   string `json:"name"`
}

type UserDeletedEvent struct {
	UserID string `json:"userId"`
}

type PictureAttachedEvent struct {
	UserID    string `json:"userId"`
	Original  string `json:"original"`
	Thumbnail string `json:"thumbnail"`
}

// ChannelNoticeEvent is the external-channel announcement payload consumed by
// the ops channel relay.
type ChannelNoticeEvent struct {
	Text string `json:"text"`
}

// WelcomeChatSeedEvent asks the chat service to seed the welcome conversation
// for a new user.
type WelcomeChatSeedEvent struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
}
