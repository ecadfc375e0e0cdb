package db

import (
	"context"
	"log/slog"

	"github.com/techdiscoveria/discoveria/internal/config"
	"github.com/techdiscoveria/discoveria/internal/domain/user"
	"github.com/techdiscoveria/discoveria/internal/repo"
)

// EnsureAdminUser promotes (or creates) the configured admin so role changes can be bootstrapped.
func EnsureAdminUser(ctx context.Context, users repo.UsersRepository, cfg config.Config, log *slog.Logger) error {
	email := user.NormalizeEmail(cfg.AdminEmail)
	if email == "" {
		return nil
	}

	if err := users.EnsureAdmin(ctx, email, cfg.AdminName); err != nil {
		return err
	}

	log.Info("admin user ensured", "email", email)
	return nil
}
