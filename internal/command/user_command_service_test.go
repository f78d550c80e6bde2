package command

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/arkplatform/user-service/internal/action"
	"github.com/arkplatform/user-service/internal/cqrs"
	"github.com/arkplatform/user-service/internal/models"
	"github.com/arkplatform/user-service/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- fakes ----

// fakeStore is an in-memory account store enforcing mail uniqueness the way
// the Postgres unique index does.
type fakeStore struct {
	mu        sync.Mutex
	created   []*models.User
	byMail    map[string]bool
	availErr  error
	createErr error
	seq       int
}

func newFakeStore() *fakeStore {
	return &fakeStore{byMail: make(map[string]bool)}
}

func (f *fakeStore) IsMailAvailable(ctx context.Context, mail string) (bool, error) {
	if f.availErr != nil {
		return false, f.availErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.byMail[mail], nil
}

func (f *fakeStore) Create(ctx context.Context, user *models.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.byMail[user.Mail] {
		return models.ErrMailTaken
	}
	f.seq++
	user.ID = fmt.Sprintf("usr-%04d", f.seq)
	user.Rev = "1-abcdef00"
	f.byMail[user.Mail] = true
	f.created = append(f.created, user)
	return nil
}

func (f *fakeStore) GetByID(ctx context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.created {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, models.ErrNotFound
}

func (f *fakeStore) Update(ctx context.Context, user *models.User) error       { return nil }
func (f *fakeStore) UpdatePassword(ctx context.Context, id, hash string) error { return nil }
func (f *fakeStore) Delete(ctx context.Context, id string) error               { return nil }

type fakeReadModel struct {
	mu          sync.Mutex
	cached      []string
	invalidated []string
}

func (f *fakeReadModel) CacheUserView(ctx context.Context, view *models.UserView) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cached = append(f.cached, view.ID)
}
func (f *fakeReadModel) InvalidateUserView(ctx context.Context, userID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated = append(f.invalidated, userID)
}
func (f *fakeReadModel) IncrRegistrationCount(ctx context.Context) {}
func (f *fakeReadModel) DecrRegistrationCount(ctx context.Context) {}

type fakePublisher struct{ err error }

func (f *fakePublisher) Publish(ctx context.Context, stream, eventType string, data any) error {
	return f.err
}

type fakeSession struct {
	set     *session.Identity
	cleared bool
	err     error
}

func (f *fakeSession) Set(identity session.Identity) error {
	if f.err != nil {
		return f.err
	}
	f.set = &identity
	return nil
}
func (f *fakeSession) Clear() { f.cleared = true }

func newService(store *fakeStore) (*UserCommandService, *action.Router) {
	router := action.NewRouter()
	_ = router.RegisterCreate(models.StrategyDefault, DefaultCreateHandler(store))
	svc := NewUserCommandService(store, &fakeReadModel{}, router, &fakePublisher{})
	return svc, router
}

func draft(name, mail string) cqrs.CreateUserCommand {
	return cqrs.CreateUserCommand{Name: name, Mail: mail, Password: "secret123"}
}

// ---- tests ----

func TestCreateUserBuildsRecord(t *testing.T) {
	store := newFakeStore()
	svc, _ := newService(store)
	sess := &fakeSession{}

	user, err := svc.CreateUser(context.Background(), draft("Ada Lovelace", "Ada@Example.COM"), sess)
	require.NoError(t, err)

	assert.Equal(t, "Ada", user.Name)
	assert.Equal(t, "Lovelace", user.Surname)
	assert.Equal(t, "ada@example.com", user.Mail)
	assert.Equal(t, models.StrategyDefault, user.Strategy)
	assert.False(t, user.Verified)
	assert.NotEmpty(t, user.UUID)
	assert.NotEmpty(t, user.ID)
	assert.NotEmpty(t, user.Rev)
	assert.NotEqual(t, "secret123", user.PasswordHash)
	assert.Equal(t, models.PlaceholderPictureURL, user.Picture.Original)

	// Optional fields default to empty strings, not absence.
	assert.Equal(t, "", user.Residence)
	assert.Equal(t, "", user.Description)

	// Session established with the store-assigned identity.
	require.NotNil(t, sess.set)
	assert.Equal(t, user.ID, sess.set.UserID)
	assert.Equal(t, "ada@example.com", sess.set.Mail)
}

func TestCreateUserKeepsExplicitSurname(t *testing.T) {
	store := newFakeStore()
	svc, _ := newService(store)

	cmd := draft("Ada King Lovelace", "ada@example.com")
	cmd.Surname = "King-Lovelace"
	user, err := svc.CreateUser(context.Background(), cmd, &fakeSession{})
	require.NoError(t, err)
	assert.Equal(t, "Ada King Lovelace", user.Name)
	assert.Equal(t, "King-Lovelace", user.Surname)
}

func TestCreateUserMailTaken(t *testing.T) {
	store := newFakeStore()
	svc, _ := newService(store)

	_, err := svc.CreateUser(context.Background(), draft("Ada", "ada@example.com"), &fakeSession{})
	require.NoError(t, err)

	// Differently-cased mail normalizes to the same uniqueness key.
	sess := &fakeSession{}
	_, err = svc.CreateUser(context.Background(), draft("Imposter", "ADA@example.com"), sess)
	assert.ErrorIs(t, err, models.ErrMailTaken)
	assert.Len(t, store.created, 1)
	assert.Nil(t, sess.set)
}

func TestCreateUserCredentialDerivationFailure(t *testing.T) {
	store := newFakeStore()
	svc, _ := newService(store)
	svc.hash = func(string) (string, error) { return "", errors.New("bcrypt unavailable") }

	sess := &fakeSession{}
	_, err := svc.CreateUser(context.Background(), draft("Ada", "ada@example.com"), sess)
	assert.ErrorIs(t, err, models.ErrCredentialDerivation)

	// Aborted before any write or session change.
	assert.Empty(t, store.created)
	assert.Nil(t, sess.set)
}

func TestCreateUserStoreFailure(t *testing.T) {
	store := newFakeStore()
	store.createErr = errors.New("write store down")
	svc, _ := newService(store)

	sess := &fakeSession{}
	_, err := svc.CreateUser(context.Background(), draft("Ada", "ada@example.com"), sess)
	assert.Error(t, err)
	assert.Nil(t, sess.set)
}

func TestCreateUserNoCreateHandler(t *testing.T) {
	store := newFakeStore()
	router := action.NewRouter() // nothing registered
	svc := NewUserCommandService(store, &fakeReadModel{}, router, &fakePublisher{})

	_, err := svc.CreateUser(context.Background(), draft("Ada", "ada@example.com"), &fakeSession{})
	assert.ErrorIs(t, err, action.ErrNoHandler)
}

func TestCreateUserFanOutFailureIsolated(t *testing.T) {
	store := newFakeStore()
	svc, router := newService(store)

	topics := []string{
		action.TopicRegistrationMail,
		action.TopicChannelNotice,
		action.TopicWelcomeChat,
		action.TopicResourceBootstrap,
	}
	invoked := make(chan string, len(topics))
	for _, topic := range topics {
		topic := topic
		router.RegisterNotify(topic, func(ctx context.Context, n action.Notification) error {
			invoked <- topic
			if topic == action.TopicRegistrationMail {
				return errors.New("mail relay down")
			}
			return nil
		})
	}

	user, err := svc.CreateUser(context.Background(), draft("Ada Lovelace", "ada@example.com"), &fakeSession{})
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)

	var seen []string
	timeout := time.After(2 * time.Second)
	for range topics {
		select {
		case topic := <-invoked:
			seen = append(seen, topic)
		case <-timeout:
			t.Fatalf("fan-out incomplete, saw only %v", seen)
		}
	}
	assert.ElementsMatch(t, topics, seen)
}

func TestProvisionBulkUserGeneratesPassword(t *testing.T) {
	store := newFakeStore()
	svc, router := newService(store)

	gotPassword := make(chan string, 1)
	router.RegisterNotify(action.TopicRegistrationMail, func(ctx context.Context, n action.Notification) error {
		gotPassword <- n.Password
		return nil
	})

	err := svc.ProvisionBulkUser(context.Background(), cqrs.BulkDraft{Name: "Grace Hopper", Mail: "Grace@Example.com"})
	require.NoError(t, err)
	require.Len(t, store.created, 1)

	created := store.created[0]
	assert.Equal(t, "grace@example.com", created.Mail)
	assert.Equal(t, "Grace", created.Name)
	assert.Equal(t, "Hopper", created.Surname)
	assert.NotEmpty(t, created.PasswordHash)

	select {
	case pw := <-gotPassword:
		assert.NotEmpty(t, pw)
	case <-time.After(2 * time.Second):
		t.Fatal("registration mail never dispatched")
	}
}

func TestDeleteUserClearsSession(t *testing.T) {
	store := newFakeStore()
	svc, _ := newService(store)

	sess := &fakeSession{}
	err := svc.DeleteUser(context.Background(), cqrs.DeleteUserCommand{UserID: "usr-0001"}, sess)
	require.NoError(t, err)
	assert.True(t, sess.cleared)
}

func TestFederatedCreateHandler(t *testing.T) {
	store := newFakeStore()
	router := action.NewRouter()
	require.NoError(t, router.RegisterCreate("google", FederatedCreateHandler(store, "google")))

	user := &models.User{Name: "Ada", Mail: "ada@example.com", PasswordHash: "should-be-dropped"}
	res, err := router.Create(context.Background(), action.CreateMessage{Strategy: "google", Account: user})
	require.NoError(t, err)

	assert.NotEmpty(t, res.ID)
	assert.Equal(t, "google", user.Strategy)
	assert.True(t, user.Verified)
	assert.Empty(t, user.PasswordHash)
}
