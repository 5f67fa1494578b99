package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/sudo-init-do/masterhub/internal/adminutil"
	"github.com/sudo-init-do/masterhub/internal/config"
	"github.com/sudo-init-do/masterhub/internal/db"
	"github.com/sudo-init-do/masterhub/internal/marketplace"
)

func main() {
	email := flag.String("email", "", "Email of the user to promote or demote")
	demote := flag.Bool("demote", false, "Demote the master back to customer")
	flag.Parse()

	if *email == "" {
		log.Fatalf("usage: go run ./cmd/adminutil/promote_master -email user@example.com [-demote]")
	}

	role := marketplace.RoleMaster
	if *demote {
		role = marketplace.RoleCustomer
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DSN(), nil)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer pool.Close()

	if err := adminutil.SetRole(ctx, pool, *email, role); err != nil {
		log.Fatalf("failed to set role for %s: %v", *email, err)
	}
	fmt.Printf("User %s is now %s.\n", *email, role)
}
