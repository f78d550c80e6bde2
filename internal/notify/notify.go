// Package notify holds the outbound notification transports triggered after
// provisioning. All of them are best-effort from the provisioning path's
// perspective: the action router logs their failures and never propagates
// them back into account creation.
package notify

import "context"

// Identity is the minimal recipient description a transport needs.
type Identity struct {
	UserID string
	Name   string
	Mail   string
	UUID   string
}

// Mailer sends account mails. The registration variant carries the
// verification token; the generated-password variant is used for bulk
// (admin-provisioned) accounts whose owner never chose a password.
type Mailer interface {
	SendRegistrationMail(ctx context.Context, identity Identity) error
	SendRegistrationMailWithPassword(ctx context.Context, identity Identity, password string) error
}

// ChannelNotifier announces account activity on the external ops channel.
type ChannelNotifier interface {
	Notice(ctx context.Context, text string) error
}

// ChatSeeder asks the chat service to seed the welcome conversation for a
// new user.
type ChatSeeder interface {
	SeedWelcomeChat(ctx context.Context, identity Identity) error
}
