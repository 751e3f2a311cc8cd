package test

import (
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/avelic/academy/config"
	"github.com/avelic/academy/database"
	"github.com/ory/dockertest/v3"
)

// dbHost points at the postgres container shared by all tests. Every
// TestEnv gets its own database inside it.
var dbHost string

func TestMain(m *testing.M) {
	pool, err := dockertest.NewPool("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not connect to docker: %v\n", err)
		os.Exit(1)
	}

	res, err := pool.Run("postgres", "15-alpine", []string{
		"POSTGRES_USER=postgres",
		"POSTGRES_PASSWORD=postgres",
		"POSTGRES_DB=postgres",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not start postgres: %v\n", err)
		os.Exit(1)
	}

	dbHost = "localhost:" + res.GetPort("5432/tcp")

	pool.MaxWait = 2 * time.Minute
	err = pool.Retry(func() error {
		db, err := database.Open(config.DB{
			User:       "postgres",
			Password:   "postgres",
			Host:       dbHost,
			Name:       "postgres",
			DisableTLS: true,
		})
		if err != nil {
			return err
		}
		defer db.Close()
		return db.Ping()
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "postgres never became ready: %v\n", err)
		pool.Purge(res)
		os.Exit(1)
	}

	code := m.Run()

	if err := pool.Purge(res); err != nil {
		fmt.Fprintf(os.Stderr, "could not purge postgres: %v\n", err)
	}

	os.Exit(code)
}
