package users

import (
	"context"
	"time"

	"github.com/dmitrijs2005/nabzkeeper/internal/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	TouchLastLogin(ctx context.Context, id int64, at time.Time) error
	ListUsernames(ctx context.Context) ([]string, error)
}
