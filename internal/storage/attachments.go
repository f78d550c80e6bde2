// Package storage persists profile image attachments. The picture pipeline
// only sees the AttachmentStore contract; deployments choose between the
// Postgres store (default, attachments live next to the user rows) and the
// S3/minio store.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/arkplatform/user-service/internal/models"
)

// Attachment is a stored image variant.
type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

// AttachmentStore saves and serves named attachments of a user document.
// Save returns the URL-like location recorded on the document.
type AttachmentStore interface {
	Save(ctx context.Context, userID, name, contentType string, data []byte) (string, error)
	Get(ctx context.Context, userID, name string) (*Attachment, error)
}

// PostgresAttachmentStore keeps attachments in an attachments table and
// serves them through the service's own picture route.
type PostgresAttachmentStore struct {
	db *sql.DB
}

func NewPostgresAttachmentStore(db *sql.DB) *PostgresAttachmentStore {
	return &PostgresAttachmentStore{db: db}
}

func (s *PostgresAttachmentStore) Save(ctx context.Context, userID, name, contentType string, data []byte) (string, error) {
	query := `
		INSERT INTO attachments (user_id, name, content_type, data, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, name)
		DO UPDATE SET content_type = EXCLUDED.content_type, data = EXCLUDED.data, updated_at = EXCLUDED.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query, userID, name, contentType, data, time.Now().UTC()); err != nil {
		return "", fmt.Errorf("failed to save attachment %s: %w", name, err)
	}
	return fmt.Sprintf("/v1/users/%s/picture/%s", userID, name), nil
}

func (s *PostgresAttachmentStore) Get(ctx context.Context, userID, name string) (*Attachment, error) {
	var att Attachment
	att.Name = name
	err := s.db.QueryRowContext(ctx,
		`SELECT content_type, data FROM attachments WHERE user_id = $1 AND name = $2`,
		userID, name).Scan(&att.ContentType, &att.Data)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get attachment %s: %w", name, err)
	}
	return &att, nil
}
