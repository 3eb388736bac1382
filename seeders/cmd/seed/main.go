package main

import (
	"context"
	"database/sql"
	"log"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"workitem-system/internal/repositories"
	"workitem-system/pkg/config"
	"workitem-system/pkg/database/postgresql"
	"workitem-system/seeders"
)

// Applies the goose migrations and seeds the default users.
func main() {
	cfg := config.New()

	sqlDB, err := sql.Open("pgx", cfg.Postgres.DSN)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer sqlDB.Close()

	if err := goose.SetDialect("postgres"); err != nil {
		log.Fatalf("set goose dialect: %v", err)
	}
	if err := goose.Up(sqlDB, "migrations"); err != nil {
		log.Fatalf("apply migrations: %v", err)
	}

	pool := postgresql.ConnectDB(cfg.Postgres.DSN)
	defer pool.Close()

	userRepo := repositories.NewUserRepository(pool)
	if err := seeders.SeedUsers(context.Background(), userRepo); err != nil {
		log.Fatalf("seed users: %v", err)
	}
	log.Println("migrations applied and users seeded")
}
