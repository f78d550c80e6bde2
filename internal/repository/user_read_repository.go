package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/arkplatform/user-service/internal/models"
	cache "github.com/arkplatform/user-service/internal/redis"
	goredis "github.com/redis/go-redis/v9"
)

const (
	userViewKeyPrefix    = "user:view:"
	registrationCountKey = "stats:registrations"
)

// UserReadRepository handles all read operations for users.
// It uses Redis as the primary read store, falling back to PostgreSQL on a
// miss.
type UserReadRepository struct {
	db     *sql.DB
	client *goredis.Client
	cache  *cache.ViewCache[models.UserView]
}

func NewUserReadRepository(db *sql.DB, redisClient *goredis.Client) *UserReadRepository {
	return &UserReadRepository{
		db:     db,
		client: redisClient,
		cache:  cache.NewViewCache[models.UserView](redisClient, 0),
	}
}

// GetByID returns a UserView from Redis first, then PostgreSQL.
func (r *UserReadRepository) GetByID(ctx context.Context, id string) (*models.UserView, error) {
	cacheKey := userViewKeyPrefix + id

	if view, ok := r.cache.Get(ctx, cacheKey); ok {
		return view, nil
	}

	query := `
		SELECT id, name, surname, mail, strategy, verified,
			   residence, description, birthdate, picture_original, picture_thumbnail,
			   created_at, updated_at
		FROM users
		WHERE id = $1 AND deleted_at IS NULL
	`
	var view models.UserView
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&view.ID, &view.Name, &view.Surname, &view.Mail, &view.Strategy, &view.Verified,
		&view.Residence, &view.Description, &view.Birthdate,
		&view.Picture.Original, &view.Picture.Thumbnail,
		&view.CreatedAt, &view.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	// Warm the cache
	r.CacheUserView(ctx, &view)
	return &view, nil
}

// CacheUserView stores or refreshes the Redis read model for a user.
// Called by the command service after every mutation.
func (r *UserReadRepository) CacheUserView(ctx context.Context, view *models.UserView) {
	r.cache.Set(ctx, userViewKeyPrefix+view.ID, view)
}

// InvalidateUserView removes the Redis read model entry for a deleted user.
func (r *UserReadRepository) InvalidateUserView(ctx context.Context, userID string) {
	r.cache.Delete(ctx, userViewKeyPrefix+userID)
}

// IncrRegistrationCount bumps the live registration counter kept for the ops
// dashboard. Driven by the user.events subscriber.
func (r *UserReadRepository) IncrRegistrationCount(ctx context.Context) {
	r.client.Incr(ctx, registrationCountKey)
}

// DecrRegistrationCount decrements the counter when an account is deleted.
func (r *UserReadRepository) DecrRegistrationCount(ctx context.Context) {
	r.client.Decr(ctx, registrationCountKey)
}
