package action

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/arkplatform/user-service/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestCreateDispatch(t *testing.T) {
	r := NewRouter()
	err := r.RegisterCreate(models.StrategyDefault, func(ctx context.Context, msg CreateMessage) (CreateResult, error) {
		return CreateResult{ID: "usr-001", Rev: "1-abc"}, nil
	})
	assert.NoError(t, err)

	res, err := r.Create(context.Background(), CreateMessage{
		Strategy: models.StrategyDefault,
		Account:  &models.User{Mail: "ada@example.com"},
	})
	assert.NoError(t, err)
	assert.Equal(t, "usr-001", res.ID)
	assert.Equal(t, "1-abc", res.Rev)
}

func TestCreateDispatchNoHandler(t *testing.T) {
	r := NewRouter()
	_, err := r.Create(context.Background(), CreateMessage{Strategy: "google"})
	assert.ErrorIs(t, err, ErrNoHandler)
}

func TestCreateDispatchPropagatesHandlerError(t *testing.T) {
	r := NewRouter()
	want := errors.New("store down")
	_ = r.RegisterCreate(models.StrategyDefault, func(ctx context.Context, msg CreateMessage) (CreateResult, error) {
		return CreateResult{}, want
	})
	_, err := r.Create(context.Background(), CreateMessage{Strategy: models.StrategyDefault})
	assert.ErrorIs(t, err, want)
}

func TestRegisterCreateDuplicate(t *testing.T) {
	r := NewRouter()
	h := func(ctx context.Context, msg CreateMessage) (CreateResult, error) {
		return CreateResult{}, nil
	}
	assert.NoError(t, r.RegisterCreate(models.StrategyDefault, h))
	assert.ErrorIs(t, r.RegisterCreate(models.StrategyDefault, h), ErrDuplicateHandler)

	// A different strategy is a different key.
	assert.NoError(t, r.RegisterCreate("google", h))
}

func TestNotifyFanOutInvokesAllHandlers(t *testing.T) {
	r := NewRouter()

	var (
		mu    sync.Mutex
		calls []string
	)
	wg := sync.WaitGroup{}
	wg.Add(3)
	record := func(name string, fail bool) NotifyHandler {
		return func(ctx context.Context, n Notification) error {
			mu.Lock()
			calls = append(calls, name)
			mu.Unlock()
			wg.Done()
			if fail {
				return errors.New("transport down")
			}
			return nil
		}
	}

	r.RegisterNotify(TopicRegistrationMail, record("mail", false))
	r.RegisterNotify(TopicRegistrationMail, record("chat", true))
	r.RegisterNotify(TopicRegistrationMail, record("slack", false))

	r.Notify(TopicRegistrationMail, Notification{UserID: "usr-001", Mail: "ada@example.com"})

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("fan-out handlers did not all run")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{"mail", "chat", "slack"}, calls)
}

func TestNotifyUnknownTopicIsNoop(t *testing.T) {
	r := NewRouter()
	// Must not panic or block.
	r.Notify("mail.unknown", Notification{})
}
