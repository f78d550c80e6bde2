package command

import (
	"context"

	"github.com/arkplatform/user-service/internal/action"
	"github.com/arkplatform/user-service/internal/models"
)

// Creator is the single store operation the create handlers need.
type Creator interface {
	Create(ctx context.Context, user *models.User) error
}

// DefaultCreateHandler writes a credential-based account and reports the
// store-assigned identifier and revision.
func DefaultCreateHandler(store Creator) action.CreateHandler {
	return func(ctx context.Context, msg action.CreateMessage) (action.CreateResult, error) {
		if err := store.Create(ctx, msg.Account); err != nil {
			return action.CreateResult{}, err
		}
		return action.CreateResult{ID: msg.Account.ID, Rev: msg.Account.Rev}, nil
	}
}

// FederatedCreateHandler writes an account backed by an external identity
// provider. The provider already proved the mail address, so the account is
// born verified and carries no local credential.
func FederatedCreateHandler(store Creator, strategy string) action.CreateHandler {
	return func(ctx context.Context, msg action.CreateMessage) (action.CreateResult, error) {
		msg.Account.Strategy = strategy
		msg.Account.Verified = true
		msg.Account.PasswordHash = ""
		if err := store.Create(ctx, msg.Account); err != nil {
			return action.CreateResult{}, err
		}
		return action.CreateResult{ID: msg.Account.ID, Rev: msg.Account.Rev}, nil
	}
}
