package tcpostgres

import (
	"context"
	"fmt"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const defaultImage = "postgres:16"

type PostgresContainer struct {
	testcontainers.Container
	user, password, db string
}

type containerConfig struct {
	req                testcontainers.ContainerRequest
	user, password, db string
}

type PostgresContainerOption func(cfg *containerConfig)

func WithWaitStrategy(strategies ...wait.Strategy) PostgresContainerOption {
	return func(cfg *containerConfig) {
		cfg.req.WaitingFor = wait.ForAll(strategies...).WithDeadline(1 * time.Minute)
	}
}

func WithPort(port string) PostgresContainerOption {
	return func(cfg *containerConfig) {
		cfg.req.ExposedPorts = append(cfg.req.ExposedPorts, port)
	}
}

func WithName(containerName string) PostgresContainerOption {
	return func(cfg *containerConfig) {
		cfg.req.Name = containerName
	}
}

func WithImage(image string) PostgresContainerOption {
	return func(cfg *containerConfig) {
		cfg.req.Image = image
	}
}

func WithInitialDatabase(user, password, dbName string) PostgresContainerOption {
	return func(cfg *containerConfig) {
		cfg.user, cfg.password, cfg.db = user, password, dbName
		cfg.req.Env["POSTGRES_USER"] = user
		cfg.req.Env["POSTGRES_PASSWORD"] = password
		cfg.req.Env["POSTGRES_DB"] = dbName
	}
}

// SetupPostgres starts the postgres container or reuses a running one with
// the same name
func SetupPostgres(ctx context.Context, opts ...PostgresContainerOption) (
	*PostgresContainer, error,
) {
	cfg := containerConfig{
		req: testcontainers.ContainerRequest{
			Image:        defaultImage,
			Env:          map[string]string{},
			ExposedPorts: []string{},
			Cmd:          []string{"postgres", "-c", "fsync=off"},
		},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	container, err := testcontainers.GenericContainer(
		ctx,
		testcontainers.GenericContainerRequest{
			ContainerRequest: cfg.req,
			Started:          true,
			Reuse:            true,
		})
	if err != nil {
		return nil, err
	}
	return &PostgresContainer{
		Container: container,
		user:      cfg.user,
		password:  cfg.password,
		db:        cfg.db,
	}, nil
}

// URL returns the connection string for the mapped port
func (c *PostgresContainer) URL(ctx context.Context, port nat.Port) (string, error) {
	mapped, err := c.MappedPort(ctx, port)
	if err != nil {
		return "", err
	}
	host, err := c.Host(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("postgresql://%s:%s@%s:%s/%s?sslmode=disable",
		c.user, c.password, host, mapped.Port(), c.db), nil
}
