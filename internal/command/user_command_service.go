package command

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/arkplatform/user-service/internal/action"
	"github.com/arkplatform/user-service/internal/cqrs"
	"github.com/arkplatform/user-service/internal/events"
	"github.com/arkplatform/user-service/internal/models"
	"github.com/arkplatform/user-service/internal/session"
	"github.com/arkplatform/user-service/internal/utils"
	"github.com/google/uuid"
)

// Store is the slice of the account store the command layer calls directly.
// Account creation itself goes through the action router instead, so new
// creation strategies can register without touching this service.
type Store interface {
	IsMailAvailable(ctx context.Context, mail string) (bool, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	Delete(ctx context.Context, id string) error
}

// ReadModel keeps the redis projection current after writes.
type ReadModel interface {
	CacheUserView(ctx context.Context, view *models.UserView)
	InvalidateUserView(ctx context.Context, userID string)
	IncrRegistrationCount(ctx context.Context)
	DecrRegistrationCount(ctx context.Context)
}

// Publisher appends lifecycle events to the user event stream.
type Publisher interface {
	Publish(ctx context.Context, stream, eventType string, data any) error
}

// UserCommandService is the provisioning orchestrator: it turns a validated
// draft into a persisted account and sets off the downstream fan-out.
type UserCommandService struct {
	store     Store
	readModel ReadModel
	router    *action.Router
	publisher Publisher

	// hash derives the storable credential; swappable for failure tests.
	hash func(password string) (string, error)
}

func NewUserCommandService(store Store, readModel ReadModel, router *action.Router, publisher Publisher) *UserCommandService {
	return &UserCommandService{
		store:     store,
		readModel: readModel,
		router:    router,
		publisher: publisher,
		hash:      utils.HashPassword,
	}
}

// CreateUser provisions a single account. The ordering is deliberate:
// store write, then session, then return (the handler replies), with the
// notification fan-out issued as background work that the reply never waits
// for. A failure before the store write leaves no trace; a fan-out failure
// after it is logged and swallowed.
//
// The mail availability check is advisory; two concurrent requests can both
// pass it. The store's unique index is the authoritative guard and surfaces
// the same models.ErrMailTaken.
func (s *UserCommandService) CreateUser(ctx context.Context, cmd cqrs.CreateUserCommand, sess session.Establisher) (*models.User, error) {
	mail := strings.ToLower(strings.TrimSpace(cmd.Mail))

	available, err := s.store.IsMailAvailable(ctx, mail)
	if err != nil {
		return nil, fmt.Errorf("failed to check mail availability: %w", err)
	}
	if !available {
		return nil, models.ErrMailTaken
	}

	passwordHash, err := s.hash(cmd.Password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrCredentialDerivation, err)
	}

	user := s.buildUser(cmd, mail, passwordHash)

	result, err := s.router.Create(ctx, action.CreateMessage{
		Strategy: models.StrategyDefault,
		Account:  user,
	})
	if err != nil {
		return nil, err
	}
	user.ID = result.ID
	user.Rev = result.Rev

	if err := sess.Set(session.Identity{UserID: user.ID, Mail: user.Mail}); err != nil {
		return nil, fmt.Errorf("failed to establish session: %w", err)
	}

	s.afterCreate(user, "")
	return user, nil
}

// ProvisionBulkUser provisions one item of a bulk batch: the password is
// generated rather than caller-supplied, no session is established, and the
// owner is mailed their initial credential.
func (s *UserCommandService) ProvisionBulkUser(ctx context.Context, draft cqrs.BulkDraft) error {
	mail := strings.ToLower(strings.TrimSpace(draft.Mail))

	available, err := s.store.IsMailAvailable(ctx, mail)
	if err != nil {
		return fmt.Errorf("failed to check mail availability: %w", err)
	}
	if !available {
		return models.ErrMailTaken
	}

	password := utils.GeneratePassword()
	passwordHash, err := s.hash(password)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrCredentialDerivation, err)
	}

	user := s.buildUser(cqrs.CreateUserCommand{Name: draft.Name}, mail, passwordHash)

	result, err := s.router.Create(ctx, action.CreateMessage{
		Strategy: models.StrategyDefault,
		Account:  user,
	})
	if err != nil {
		return err
	}
	user.ID = result.ID
	user.Rev = result.Rev

	s.afterCreate(user, password)
	return nil
}

// buildUser assembles the account record. Optional fields default to the
// empty string rather than staying absent; a missing surname is derived by
// splitting the name on its last whitespace boundary.
func (s *UserCommandService) buildUser(cmd cqrs.CreateUserCommand, mail, passwordHash string) *models.User {
	name, surname := cmd.Name, cmd.Surname
	if surname == "" {
		name, surname = utils.SplitFullName(name)
	}

	now := time.Now().UTC()
	return &models.User{
		Name:         name,
		Surname:      surname,
		Mail:         mail,
		PasswordHash: passwordHash,
		Strategy:     models.StrategyDefault,
		UUID:         uuid.NewString(),
		Verified:     false,
		Residence:    cmd.Residence,
		Description:  cmd.Description,
		Birthdate:    cmd.Birthdate,
		Picture: models.Picture{
			Original:  models.PlaceholderPictureURL,
			Thumbnail: models.PlaceholderPictureURL,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// afterCreate refreshes the read model, records the lifecycle event and
// issues the notification fan-out. Everything here is best-effort; the
// account exists regardless of what succeeds below.
func (s *UserCommandService) afterCreate(user *models.User, generatedPassword string) {
	ctx := context.Background()
	s.readModel.CacheUserView(ctx, userToView(user))

	if err := s.publisher.Publish(ctx, events.UserEventsStream, events.UserCreated, events.UserCreatedEvent{
		UserID:   user.ID,
		Mail:     user.Mail,
		Name:     user.Name,
		Strategy: user.Strategy,
	}); err != nil {
		log.Printf("Failed to publish user.created event: %v", err)
	}

	n := action.Notification{
		UserID:   user.ID,
		Name:     user.Name,
		Mail:     user.Mail,
		UUID:     user.UUID,
		Password: generatedPassword,
	}
	s.router.Notify(action.TopicRegistrationMail, n)
	s.router.Notify(action.TopicWelcomeChat, n)
	s.router.Notify(action.TopicResourceBootstrap, n)

	notice := n
	notice.Text = fmt.Sprintf("%s %s (%s) just joined", user.Name, user.Surname, user.Mail)
	s.router.Notify(action.TopicChannelNotice, notice)
}

// UpdateUser overwrites the profile fields of a user. The caller presents
// the revision token it last saw.
func (s *UserCommandService) UpdateUser(ctx context.Context, cmd cqrs.UpdateUserCommand) (*models.UserView, error) {
	user, err := s.store.GetByID(ctx, cmd.UserID)
	if err != nil {
		return nil, err
	}
	user.Rev = cmd.Rev
	user.Name = cmd.Name
	user.Surname = cmd.Surname
	user.Residence = cmd.Residence
	user.Description = cmd.Description
	user.Birthdate = cmd.Birthdate
	user.UpdatedAt = time.Now().UTC()
	if err := s.store.Update(ctx, user); err != nil {
		return nil, err
	}

	view := userToView(user)
	s.readModel.CacheUserView(ctx, view)
	if err := s.publisher.Publish(ctx, events.UserEventsStream, events.UserUpdated, events.UserUpdatedEvent{
		UserID: user.ID,
		Mail:   user.Mail,
		Name:   user.Name,
	}); err != nil {
		log.Printf("Failed to publish user.updated event: %v", err)
	}
	return view, nil
}

// UpdatePassword re-derives and stores the credential hash.
func (s *UserCommandService) UpdatePassword(ctx context.Context, cmd cqrs.UpdatePasswordCommand) error {
	passwordHash, err := s.hash(cmd.Password)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrCredentialDerivation, err)
	}
	return s.store.UpdatePassword(ctx, cmd.UserID, passwordHash)
}

// DeleteUser removes the account and clears the caller's session.
func (s *UserCommandService) DeleteUser(ctx context.Context, cmd cqrs.DeleteUserCommand, sess session.Establisher) error {
	if err := s.store.Delete(ctx, cmd.UserID); err != nil {
		return err
	}
	sess.Clear()

	s.readModel.InvalidateUserView(ctx, cmd.UserID)
	if err := s.publisher.Publish(ctx, events.UserEventsStream, events.UserDeleted, events.UserDeletedEvent{
		UserID: cmd.UserID,
	}); err != nil {
		log.Printf("Failed to publish user.deleted event: %v", err)
	}
	return nil
}

// HandleUserEvent is the redis stream subscriber handler keeping the live
// registration counter current.
func (s *UserCommandService) HandleUserEvent(ctx context.Context, event events.Event) error {
	switch event.Type {
	case events.UserCreated:
		dataBytes, _ := json.Marshal(event.Data)
		var data events.UserCreatedEvent
		if err := json.Unmarshal(dataBytes, &data); err != nil {
			return fmt.Errorf("failed to unmarshal user.created event: %w", err)
		}
		log.Printf("User %s registered via strategy %s", data.UserID, data.Strategy)
		s.readModel.IncrRegistrationCount(ctx)
	case events.UserDeleted:
		s.readModel.DecrRegistrationCount(ctx)
	}
	return nil
}

func userToView(u *models.User) *models.UserView {
	return &models.UserView{
		ID:          u.ID,
		Name:        u.Name,
		Surname:     u.Surname,
		Mail:        u.Mail,
		Strategy:    u.Strategy,
		Verified:    u.Verified,
		Residence:   u.Residence,
		Description: u.Description,
		Birthdate:   u.Birthdate,
		Picture:     u.Picture,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}
