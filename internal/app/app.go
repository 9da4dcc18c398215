package app

import "github.com/jackc/pgx/v5/pgxpool"

// App holds the shared dependencies for the HTTP handlers.
type App struct {
	DB *pgxpool.Pool
}
