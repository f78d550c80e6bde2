// Package action provides the process-wide dispatch table that decouples
// "an account must be created or announced" from "how it is done". Creation
// strategies and notification transports register themselves during startup
// wiring; the provisioning code only ever talks to the Router.
package action

import (
	"github.com/arkplatform/user-service/internal/models"
)

// Notification topics. Each topic may have any number of independent
// handlers; delivery is fire-and-forget.
const (
	TopicRegistrationMail  = "mail.registration"
	TopicChannelNotice     = "channel.notice"
	TopicWelcomeChat       = "chat.welcome"
	TopicResourceBootstrap = "resource.bootstrap"
)

// CreateMessage is the request/response payload for account creation.
// Account is fully populated by the orchestrator; the handler owns the write.
type CreateMessage struct {
	Strategy string
	Account  *models.User
}

// CreateResult carries the store-assigned identifier and revision token back
// to the orchestrator.
type CreateResult struct {
	ID  string
	Rev string
}

// Notification is the fan-out payload. Only the fields relevant to a topic
// are populated: Password travels with generated-password mails, Text with
// external channel notices.
type Notification struct {
	UserID   string
	Name     string
	Mail     string
	UUID     string
	Password string
	Text     string
}
