package postgresql

import (
	"context"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
)

func ConnectDB(dsn string) *pgxpool.Pool {
	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		log.Fatalf("cannot create database pool: %v", err)
	}
	if err := pool.Ping(context.Background()); err != nil {
		log.Fatalf("cannot ping database: %v", err)
	}
	return pool
}
