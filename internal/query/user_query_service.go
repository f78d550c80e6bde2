package query

import (
	"context"
	"errors"

	"github.com/arkplatform/user-service/internal/cqrs"
	"github.com/arkplatform/user-service/internal/models"
	"github.com/arkplatform/user-service/internal/repository"
)

// ErrForbidden is returned when a caller reads a user other than themselves.
var ErrForbidden = errors.New("forbidden")

// UserQueryService reads user views from the Redis cache (with a Postgres
// fallback).
type UserQueryService struct {
	readRepo *repository.UserReadRepository
}

func NewUserQueryService(readRepo *repository.UserReadRepository) *UserQueryService {
	return &UserQueryService{readRepo: readRepo}
}

func (s *UserQueryService) GetUser(ctx context.Context, q cqrs.GetUserQuery) (*models.UserView, error) {
	if q.UserID != q.RequestingUserID {
		return nil, ErrForbidden
	}
	return s.readRepo.GetByID(ctx, q.UserID)
}
