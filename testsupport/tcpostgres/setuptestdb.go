//nolint:errcheck // testsetup
package tcpostgres

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/mpapenbr/f1-race-engineer/pkg/db/migrate"
	database "github.com/mpapenbr/f1-race-engineer/pkg/db/postgres"
)

// tables in delete order
var tables = []string{"engineer_event", "lap_history", "session_summary", "driver_profile"}

// create a pg connection pool for the race engineer testdatabase
func SetupTestDb() *pgxpool.Pool {
	ctx := context.Background()
	port, err := nat.NewPort("tcp", "5432")
	if err != nil {
		log.Fatal(err)
	}
	container, err := SetupPostgres(ctx,
		WithPort(port.Port()),
		WithInitialDatabase("postgres", "password", "postgres"),
		WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second)),
		WithName("f1-race-engineer-test"),
	)
	if err != nil {
		log.Fatal(err)
	}
	dbURL, err := container.URL(ctx, port)
	if err != nil {
		log.Fatal(err)
	}
	return connect(dbURL)
}

// SetupExternalTestDb uses the database referenced by TESTDB_URL
func SetupExternalTestDb() *pgxpool.Pool {
	return connect(os.Getenv("TESTDB_URL"))
}

func connect(dbURL string) *pgxpool.Pool {
	if err := migrate.MigrateDb(dbURL); err != nil {
		log.Fatal(err)
	}
	pool, err := database.InitWithURL(context.Background(), dbURL)
	if err != nil {
		log.Fatal(err)
	}
	return pool
}

func ClearAllTables(pool *pgxpool.Pool) {
	for _, t := range tables {
		pool.Exec(context.Background(), "delete from "+t)
	}
}
