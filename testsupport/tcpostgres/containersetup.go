package tcpostgres

import (
	"context"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const defaultImage = "postgres:17-alpine"

// PostgresContainer is a running postgres for repository tests.
// The container is reused across test packages via its name.
type PostgresContainer struct {
	testcontainers.Container
}

type ContainerOption func(req *testcontainers.ContainerRequest)

func WithImage(image string) ContainerOption {
	return func(req *testcontainers.ContainerRequest) {
		req.Image = image
	}
}

func WithWaitStrategy(strategies ...wait.Strategy) ContainerOption {
	return func(req *testcontainers.ContainerRequest) {
		req.WaitingFor = wait.ForAll(strategies...).WithDeadline(time.Minute)
	}
}

func WithPort(port string) ContainerOption {
	return func(req *testcontainers.ContainerRequest) {
		req.ExposedPorts = append(req.ExposedPorts, port)
	}
}

func WithName(containerName string) ContainerOption {
	return func(req *testcontainers.ContainerRequest) {
		req.Name = containerName
	}
}

func WithInitialDatabase(user, password, dbName string) ContainerOption {
	return func(req *testcontainers.ContainerRequest) {
		req.Env["POSTGRES_USER"] = user
		req.Env["POSTGRES_PASSWORD"] = password
		req.Env["POSTGRES_DB"] = dbName
	}
}

// SetupPostgres starts (or reuses) the postgres container.
// Data lives on a tmpfs and fsync is off, the database is disposable.
func SetupPostgres(ctx context.Context, opts ...ContainerOption) (
	*PostgresContainer, error,
) {
	req := testcontainers.ContainerRequest{
		Image:        defaultImage,
		Env:          map[string]string{},
		ExposedPorts: []string{},
		Tmpfs:        map[string]string{"/var/lib/postgresql/data": "rw"},
		Cmd:          []string{"postgres", "-c", "fsync=off", "-c", "synchronous_commit=off"},
	}
	for _, opt := range opts {
		opt(&req)
	}

	container, err := testcontainers.GenericContainer(ctx,
		testcontainers.GenericContainerRequest{
			ContainerRequest: req,
			Started:          true,
			Reuse:            req.Name != "",
		})
	if err != nil {
		return nil, err
	}
	return &PostgresContainer{Container: container}, nil
}
