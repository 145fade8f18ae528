// seed inserts the development accounts (one per role) into Postgres. Idempotent: existing
// accounts are left alone.
package main

import (
	"context"
	"fmt"
	"log"

	"social-tippster/backend/internal/config"
	"social-tippster/backend/internal/db"
	"social-tippster/backend/internal/security"
	userrepo "social-tippster/backend/internal/user/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	n, err := userrepo.SeedDevUsers(context.Background(), userrepo.NewPostgresRepository(conn), security.NewHasher(cfg.BcryptCost))
	if err != nil {
		log.Fatalf("seed: %v", err)
	}
	if n == 0 {
		log.Println("Seed already applied. Skipping.")
		return
	}
	log.Printf("Seed completed: %d accounts created.", n)
	for _, u := range userrepo.DevUsers {
		fmt.Printf("%-10s %s / %s\n", u.Role, u.Email, u.Password)
	}
}
