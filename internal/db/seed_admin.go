package db

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/josiahbryan/userhub/internal/config"
	"github.com/josiahbryan/userhub/internal/domain/user"
	"github.com/josiahbryan/userhub/internal/security"
)

type userStore interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	Create(ctx context.Context, u user.User) (user.User, error)
}

// EnsureAdminUser seeds the admin account from config when one does not
// already exist. Admins can only come from here; the public create path
// always assigns the user role.
func EnsureAdminUser(ctx context.Context, store userStore, cfg config.Config) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	_, err := store.GetByEmail(ctx, cfg.AdminEmail)

	if err == nil {
		return nil
	}

	if !errors.Is(err, user.ErrNotFound) {
		return err
	}

	hash, err := security.HashPassword(cfg.AdminPassword)

	if err != nil {
		return err
	}

	now := time.Now().UTC()

	_, err = store.Create(ctx, user.User{
		ID:           uuid.NewString(),
		Email:        cfg.AdminEmail,
		PasswordHash: hash,
		Role:         user.RoleAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	})

	// concurrent boot already seeded it
	if errors.Is(err, user.ErrEmailTaken) {
		return nil
	}

	return err
}
