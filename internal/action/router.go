package action

import (
	"context"
	"errors"
	"fmt"
	"log"
)

var (
	// ErrNoHandler is returned when a create dispatch finds no handler
	// registered for the strategy.
	ErrNoHandler = errors.New("no handler registered")

	// ErrDuplicateHandler is returned when a second create handler is
	// registered for the same strategy.
	ErrDuplicateHandler = errors.New("handler already registered")
)

// CreateHandler performs an account write for one strategy and reports the
// stored identifier and revision.
type CreateHandler func(ctx context.Context, msg CreateMessage) (CreateResult, error)

// NotifyHandler consumes a fan-out notification. Errors are logged by the
// router and never reach the caller or sibling handlers.
type NotifyHandler func(ctx context.Context, n Notification) error

// Router maps (kind, key) to handlers: create dispatch is request/response
// with exactly one handler per strategy, notify dispatch fans out to every
// handler registered for a topic.
//
// All registration happens during startup wiring, before any request is
// served; the table is read-only afterwards, so dispatch takes no locks.
type Router struct {
	creators  map[string]CreateHandler
	notifiers map[string][]NotifyHandler
}

func NewRouter() *Router {
	return &Router{
		creators:  make(map[string]CreateHandler),
		notifiers: make(map[string][]NotifyHandler),
	}
}

// RegisterCreate binds the create handler for a strategy. A strategy can be
// bound exactly once.
func (r *Router) RegisterCreate(strategy string, h CreateHandler) error {
	if _, ok := r.creators[strategy]; ok {
		return fmt.Errorf("create strategy %q: %w", strategy, ErrDuplicateHandler)
	}
	r.creators[strategy] = h
	return nil
}

// RegisterNotify appends a handler for a notification topic. Topics accept
// any number of handlers.
func (r *Router) RegisterNotify(topic string, h NotifyHandler) {
	r.notifiers[topic] = append(r.notifiers[topic], h)
}

// Create dispatches an account-creation message to the single handler bound
// to msg.Strategy and propagates its result or failure.
func (r *Router) Create(ctx context.Context, msg CreateMessage) (CreateResult, error) {
	h, ok := r.creators[msg.Strategy]
	if !ok {
		return CreateResult{}, fmt.Errorf("create strategy %q: %w", msg.Strategy, ErrNoHandler)
	}
	return h(ctx, msg)
}

// Notify invokes every handler registered for topic, each in its own
// goroutine. The call returns once dispatch is issued, not once handlers
// complete; a handler failure is logged and isolated from its siblings.
// Handlers run on a background context so an upstream request cancellation
// does not abort in-flight deliveries.
func (r *Router) Notify(topic string, n Notification) {
	for _, h := range r.notifiers[topic] {
		go func(h NotifyHandler) {
			if err := h(context.Background(), n); err != nil {
				log.Printf("notify %s failed for user %s: %v", topic, n.UserID, err)
			}
		}(h)
	}
}
