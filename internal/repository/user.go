package repository

import (
	"context"

	"archowum/internal/model"
)

// UserRepository defines data access for application accounts.
type UserRepository interface {
	// Create inserts a new account. A taken username returns ErrDuplicate.
	Create(ctx context.Context, u *model.User) (*model.User, error)
	FindByID(ctx context.Context, id int64) (*model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
}
