// Package adminutil backs the operator commands under cmd/adminutil.
package adminutil

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sudo-init-do/masterhub/internal/db"
	"github.com/sudo-init-do/masterhub/internal/marketplace"
	"github.com/sudo-init-do/masterhub/internal/user"
)

// SetRole changes the role of the account registered under email. The schema
// is ensured first, so on a fresh database an unknown email comes back as
// user.ErrNotFound.
func SetRole(ctx context.Context, pool *pgxpool.Pool, email, role string) error {
	switch role {
	case marketplace.RoleCustomer, marketplace.RoleMaster, marketplace.RoleAdmin:
	default:
		return fmt.Errorf("unknown role %q", role)
	}
	if err := db.EnsureSchema(ctx, pool); err != nil {
		return err
	}
	return user.NewPGStore(pool).SetRoleByEmail(ctx, email, role)
}
