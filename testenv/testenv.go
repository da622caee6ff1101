package main

import (
	"context"
	"crypto/rand"
	"encoding/base32"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/kioskmvp/kiosk/persistent"
	"github.com/ory/dockertest"
	"github.com/ory/dockertest/docker"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Starts throwaway postgres and redis containers, creates the schema and runs
// `go test` against them with PGDB_DSN and REDIS_TEST_ADDR set.
// Usage: go run ./testenv [package]

func main() {
	flag.Parse()

	pool, err := dockertest.NewPool("")
	if err != nil {
		logrus.WithError(err).Fatalln("Could not connect to docker.")
	}
	pool.MaxWait = 30 * time.Second

	logrus.Println("Starting postgres db container")
	shutdownPgDb, err := createTestPgDb(pool)
	if err != nil {
		logrus.WithError(err).Fatalln("Could not create test database.")
	}

	logrus.Println("Starting redis container")
	shutdownRedis, err := createTestRedis(pool)
	if err != nil {
		shutdownPgDb()
		logrus.WithError(err).Fatalln("Could not create test redis.")
	}

	path := "./..."
	if flag.NArg() > 0 {
		path = flag.Arg(0)
	}
	logrus.WithField("path", path).Println("Running tests...")
	code := runTests(path)

	logrus.Println("Tests done. Shutting down test containers.")
	shutdownRedis()
	shutdownPgDb()
	os.Exit(code)
}

func runTests(path string) int {
	c := exec.Command("go", "test", path)
	c.Env = os.Environ()
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	if err := c.Start(); err != nil {
		logrus.WithError(err).Errorln("Could not run test command")
		return 1
	}
	if err := c.Wait(); err != nil {
		logrus.WithError(err).Errorln("Test command failed")
		return 1
	}
	return 0
}

// Start postgres docker container and create the schema.
// Returns shutdown func OR error.
func createTestPgDb(pool *dockertest.Pool) (func(), error) {
	psgPassB := make([]byte, 30)
	if _, err := rand.Read(psgPassB); err != nil {
		return nil, fmt.Errorf("password generate: %w", err)
	}
	psgPass := base32.StdEncoding.EncodeToString(psgPassB)

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "14.1",
		Env:        []string{"POSTGRES_PASSWORD=" + psgPass},
	}, autoRemove)
	if err != nil {
		return nil, fmt.Errorf("resource start: %w", err)
	}
	resource.Expire(120)
	shutdownResource := func() {
		if err := pool.Purge(resource); err != nil {
			logrus.WithError(err).Warningln("Could not purge resource.")
		}
	}

	var pgDsn string
	err = pool.Retry(func() error {
		pgDsn = fmt.Sprintf("postgresql://postgres:%s@localhost:%s/postgres?sslmode=disable",
			psgPass, resource.GetPort("5432/tcp"))
		ctx := context.Background()
		db, err := persistent.PgOpen(ctx, pgDsn)
		if err != nil {
			return err
		}
		defer db.Close()
		return persistent.CreateSchema(ctx, db)
	})
	if err != nil {
		shutdownResource()
		return nil, fmt.Errorf("database connect: %w", err)
	}

	persistent.SetTestEnvDsn(pgDsn)
	return shutdownResource, nil
}

// Start redis docker container and export its address.
// Returns shutdown func OR error.
func createTestRedis(pool *dockertest.Pool) (func(), error) {
	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "redis",
		Tag:        "7-alpine",
	}, autoRemove)
	if err != nil {
		return nil, fmt.Errorf("resource start: %w", err)
	}
	resource.Expire(120)
	shutdownResource := func() {
		if err := pool.Purge(resource); err != nil {
			logrus.WithError(err).Warningln("Could not purge resource.")
		}
	}

	addr := "localhost:" + resource.GetPort("6379/tcp")
	err = pool.Retry(func() error {
		client := redis.NewClient(&redis.Options{Addr: addr})
		defer client.Close()
		return client.Ping(context.Background()).Err()
	})
	if err != nil {
		shutdownResource()
		return nil, fmt.Errorf("redis connect: %w", err)
	}

	os.Setenv("REDIS_TEST_ADDR", addr)
	return shutdownResource, nil
}

func autoRemove(hc *docker.HostConfig) {
	hc.AutoRemove = true
	hc.RestartPolicy = docker.RestartPolicy{
		Name: "no",
	}
}
