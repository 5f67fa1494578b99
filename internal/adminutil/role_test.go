package adminutil

import (
	"context"
	"errors"
	"testing"

	"github.com/sudo-init-do/masterhub/internal/db/dbtest"
	"github.com/sudo-init-do/masterhub/internal/user"
)

func TestSetRoleRejectsUnknownRole(t *testing.T) {
	if err := SetRole(context.Background(), nil, "a@example.com", "owner"); err == nil {
		t.Fatal("unknown role accepted")
	}
}

func TestSetRoleOnFreshDatabase(t *testing.T) {
	pool := dbtest.EmptyPool(t)
	ctx := context.Background()

	err := SetRole(ctx, pool, "ghost@example.com", "master")
	if !errors.Is(err, user.ErrNotFound) {
		t.Fatalf("fresh database: err = %v, want user.ErrNotFound", err)
	}

	dbtest.InsertUser(t, pool, "maria@example.com", "Maria", "customer")
	for _, role := range []string{"master", "admin", "customer"} {
		if err := SetRole(ctx, pool, "Maria@Example.com", role); err != nil {
			t.Fatalf("set %s: %v", role, err)
		}
		u, err := user.NewPGStore(pool).GetByEmail(ctx, "maria@example.com")
		if err != nil || u.Role != role {
			t.Fatalf("role = %v, err %v", u, err)
		}
	}
}
