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
	email := flag.String("email", "", "Email of the user to promote to admin")
	flag.Parse()

	if *email == "" {
		log.Fatalf("usage: go run ./cmd/adminutil/promote_admin -email user@example.com")
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

	if err := adminutil.SetRole(ctx, pool, *email, marketplace.RoleAdmin); err != nil {
		log.Fatalf("failed to promote %s: %v", *email, err)
	}
	fmt.Printf("User %s promoted to admin.\n", *email)
}
