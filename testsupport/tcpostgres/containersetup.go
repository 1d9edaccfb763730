// Package tcpostgres starts a postgres container for database tests.
package tcpostgres

import (
	"context"
	"fmt"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	image         = "postgres:17"
	containerName = "iracelog-stewarding-test"
	dbPassword    = "password"
	dbPort        = nat.Port("5432/tcp")
)

// startPostgres starts (or reuses) the shared test container and returns
// the connection url of its postgres database.
func startPostgres(ctx context.Context) (string, error) {
	req := testcontainers.ContainerRequest{
		Name:         containerName,
		Image:        image,
		ExposedPorts: []string{string(dbPort)},
		Env: map[string]string{
			"POSTGRES_USER":     "postgres",
			"POSTGRES_PASSWORD": dbPassword,
			"POSTGRES_DB":       "postgres",
		},
		Cmd: []string{"postgres", "-c", "fsync=off"},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(time.Minute),
	}
	container, err := testcontainers.GenericContainer(ctx,
		testcontainers.GenericContainerRequest{
			ContainerRequest: req,
			Started:          true,
			Reuse:            true,
		})
	if err != nil {
		return "", err
	}
	mapped, err := container.MappedPort(ctx, dbPort)
	if err != nil {
		return "", err
	}
	host, err := container.Host(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("postgresql://postgres:%s@%s:%s/postgres",
		dbPassword, host, mapped.Port()), nil
}
