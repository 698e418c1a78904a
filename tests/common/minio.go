// Package common provides shared test infrastructure
package common

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	MinIOAccessKey = "insight"
	MinIOSecretKey = "insight-secret"
)

var (
	minioOnce      sync.Once
	minioContainer *MinIOContainer
	minioError     error
)

// MinIOContainer wraps a testcontainers MinIO instance.
type MinIOContainer struct {
	container testcontainers.Container
	host      string
	port      string
}

// StartMinIO starts a shared MinIO container for the test run.
// Uses sync.Once so only one container is created per process.
// The test is skipped under -short or when Docker is unavailable.
func StartMinIO(t *testing.T) *MinIOContainer {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping MinIO integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	minioOnce.Do(func() {
		ctx := context.Background()

		req := testcontainers.ContainerRequest{
			Image:        "minio/minio:RELEASE.2024-10-13T13-34-11Z",
			ExposedPorts: []string{"9000/tcp"},
			Cmd:          []string{"server", "/data"},
			Env: map[string]string{
				"MINIO_ROOT_USER":     MinIOAccessKey,
				"MINIO_ROOT_PASSWORD": MinIOSecretKey,
			},
			WaitingFor: wait.ForAll(
				wait.ForListeningPort("9000/tcp"),
				wait.ForHTTP("/minio/health/live").WithPort("9000/tcp"),
			).WithDeadline(60 * time.Second),
		}

		container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: req,
			Started:          true,
		})
		if err != nil {
			minioError = fmt.Errorf("start MinIO container: %w", err)
			return
		}

		host, err := container.Host(ctx)
		if err != nil {
			container.Terminate(ctx)
			minioError = fmt.Errorf("get MinIO host: %w", err)
			return
		}

		mappedPort, err := container.MappedPort(ctx, "9000/tcp")
		if err != nil {
			container.Terminate(ctx)
			minioError = fmt.Errorf("get MinIO port: %w", err)
			return
		}

		minioContainer = &MinIOContainer{
			container: container,
			host:      host,
			port:      mappedPort.Port(),
		}
	})

	if minioError != nil {
		t.Fatalf("MinIO container failed: %v", minioError)
	}

	return minioContainer
}

// Endpoint returns the host:port of the S3 API.
func (c *MinIOContainer) Endpoint() string {
	return fmt.Sprintf("%s:%s", c.host, c.port)
}

// Cleanup terminates the container. Call from TestMain if needed.
func (c *MinIOContainer) Cleanup() {
	if c != nil && c.container != nil {
		c.container.Terminate(context.Background())
	}
}
