package repository

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/arkplatform/user-service/internal/models"
	"github.com/arkplatform/user-service/internal/utils"
	"github.com/lib/pq"
)

// UserWriteRepository handles all state-mutating operations for users.
// It operates exclusively against the PostgreSQL write store (source of
// truth). Every write regenerates the document revision token; updates that
// carry a stale token fail with models.ErrRevMismatch.
type UserWriteRepository struct {
	db *sql.DB
}

func NewUserWriteRepository(db *sql.DB) *UserWriteRepository {
	return &UserWriteRepository{db: db}
}

// IsMailAvailable reports whether no live account holds the given mail.
// Advisory only: the unique index on mail is the authoritative guard, and
// Create maps its violation to models.ErrMailTaken.
func (r *UserWriteRepository) IsMailAvailable(ctx context.Context, mail string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM users WHERE mail = $1 AND deleted_at IS NULL`, mail).Scan(&one)
	if err == sql.ErrNoRows {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check mail availability: %w", err)
	}
	return false, nil
}

// Create persists a new user and assigns its identifier and first revision.
func (r *UserWriteRepository) Create(ctx context.Context, user *models.User) error {
	user.ID = utils.GenerateID("usr")
	user.Rev = newRev("")

	query := `
		INSERT INTO users (id, rev, name, surname, mail, password_hash, strategy, uuid, verified,
			residence, description, birthdate, picture_original, picture_thumbnail,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.Rev, user.Name, user.Surname, user.Mail, user.PasswordHash,
		user.Strategy, user.UUID, user.Verified,
		user.Residence, user.Description, user.Birthdate,
		user.Picture.Original, user.Picture.Thumbnail,
		user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return models.ErrMailTaken
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID fetches the full write model (including PasswordHash) for internal
// operations.
func (r *UserWriteRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `
		SELECT id, rev, name, surname, mail, password_hash, strategy, uuid, verified,
			   residence, description, birthdate, picture_original, picture_thumbnail,
			   created_at, updated_at
		FROM users
		WHERE id = $1 AND deleted_at IS NULL
	`
	var user models.User
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID, &user.Rev, &user.Name, &user.Surname, &user.Mail, &user.PasswordHash,
		&user.Strategy, &user.UUID, &user.Verified,
		&user.Residence, &user.Description, &user.Birthdate,
		&user.Picture.Original, &user.Picture.Thumbnail,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// Update overwrites the profile fields of a user. The caller must present
// the current revision token.
func (r *UserWriteRepository) Update(ctx context.Context, user *models.User) error {
	rev := newRev(user.Rev)
	query := `
		UPDATE users
		SET rev = $3, name = $4, surname = $5, residence = $6, description = $7,
			birthdate = $8, updated_at = $9
		WHERE id = $1 AND rev = $2 AND deleted_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query,
		user.ID, user.Rev, rev, user.Name, user.Surname,
		user.Residence, user.Description, user.Birthdate, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if err := r.checkAffected(ctx, result, user.ID); err != nil {
		return err
	}
	user.Rev = rev
	return nil
}

// UpdatePicture commits the attachment locations to the user document after
// all variants have been stored. It bumps the revision without requiring the
// caller to present one; the picture field is owned by the pipeline.
func (r *UserWriteRepository) UpdatePicture(ctx context.Context, id string, picture models.Picture) (*models.User, error) {
	query := `
		UPDATE users
		SET rev = $2, picture_original = $3, picture_thumbnail = $4, updated_at = $5
		WHERE id = $1 AND deleted_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query,
		id, newRev(""), picture.Original, picture.Thumbnail, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to update picture: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return nil, models.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

// UpdatePassword replaces the stored credential hash.
func (r *UserWriteRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	query := `
		UPDATE users SET rev = $2, password_hash = $3, updated_at = $4
		WHERE id = $1 AND deleted_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, id, newRev(""), passwordHash, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return models.ErrNotFound
	}
	return nil
}

// Delete soft-deletes a user. Deletion is always an explicit, authenticated
// operation; nothing in the service deletes accounts as a side effect.
func (r *UserWriteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return models.ErrNotFound
	}
	return nil
}

// BootstrapDefaultResource seeds the default collection every account starts
// with. Idempotent; re-running for the same user is a no-op.
func (r *UserWriteRepository) BootstrapDefaultResource(ctx context.Context, userID string) error {
	query := `
		INSERT INTO user_resources (id, user_id, kind, name, created_at)
		VALUES ($1, $2, 'collection', 'favorites', $3)
		ON CONFLICT (user_id, kind, name) DO NOTHING
	`
	if _, err := r.db.ExecContext(ctx, query, utils.GenerateID("res"), userID, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to bootstrap default resource: %w", err)
	}
	return nil
}

// checkAffected distinguishes "gone" from "stale revision" after a guarded
// update matched zero rows.
func (r *UserWriteRepository) checkAffected(ctx context.Context, result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows > 0 {
		return nil
	}
	var one int
	err = r.db.QueryRowContext(ctx,
		`SELECT 1 FROM users WHERE id = $1 AND deleted_at IS NULL`, id).Scan(&one)
	if err == sql.ErrNoRows {
		return models.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to check user existence: %w", err)
	}
	return models.ErrRevMismatch
}

// newRev produces the next revision token in "N-hex" form. The numeric
// prefix increases monotonically per document; the suffix makes tokens from
// concurrent writers distinguishable.
func newRev(prev string) string {
	n := 0
	if seq, _, ok := strings.Cut(prev, "-"); ok {
		n, _ = strconv.Atoi(seq)
	}
	suffix := make([]byte, 8)
	_, _ = rand.Read(suffix)
	return fmt.Sprintf("%d-%s", n+1, hex.EncodeToString(suffix))
}
