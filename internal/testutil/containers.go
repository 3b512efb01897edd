// Package testutil starts throwaway service containers for integration
// tests and the local devstack. Callers must have a reachable Docker
// daemon; DockerAvailable lets tests skip cleanly without one.
package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	mariadbImage    = "mariadb:11"
	authorizerImage = "lakhansamani/authorizer:1.4.4"
)

// MariaDB is a running throwaway database container.
type MariaDB struct {
	Container testcontainers.Container
	Host      string
	Port      string
	Database  string
	User      string
	Password  string
}

// DockerAvailable reports whether a Docker daemon is reachable.
func DockerAvailable(ctx context.Context) bool {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return false
	}
	defer cli.Close()
	_, err = cli.Ping(ctx)
	return err == nil
}

// StartMariaDB starts a MariaDB container with a fresh database and waits
// until it accepts connections.
func StartMariaDB(ctx context.Context) (*MariaDB, error) {
	password := uuid.NewString()
	database := "solvemyproblem"

	tcpPort, err := nat.NewPort("tcp", "3306")
	if err != nil {
		return nil, fmt.Errorf("failed to create DB port: %w", err)
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        mariadbImage,
			ExposedPorts: []string{string(tcpPort)},
			Env: map[string]string{
				"MARIADB_ROOT_PASSWORD": password,
				"MARIADB_DATABASE":      database,
			},
			WaitingFor: wait.ForListeningPort(tcpPort).WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start MariaDB: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to resolve MariaDB host: %w", err)
	}
	mappedPort, err := container.MappedPort(ctx, tcpPort)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to resolve MariaDB port: %w", err)
	}

	db := &MariaDB{
		Container: container,
		Host:      host,
		Port:      mappedPort.Port(),
		Database:  database,
		User:      "root",
		Password:  password,
	}

	if err := db.waitReady(ctx); err != nil {
		_ = container.Terminate(ctx)
		return nil, err
	}

	return db, nil
}

// waitReady pings the database until the server answers queries; the
// listening port opens before the server is fully initialized.
func (m *MariaDB) waitReady(ctx context.Context) error {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s", m.User, m.Password, m.Host, m.Port, m.Database)

	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		conn, err := sql.Open("mysql", dsn)
		if err == nil {
			err = conn.PingContext(ctx)
			_ = conn.Close()
			if err == nil {
				return nil
			}
		}
		time.Sleep(time.Second)
	}

	return fmt.Errorf("MariaDB did not become ready in time")
}

// Terminate stops the container.
func (m *MariaDB) Terminate(ctx context.Context) error {
	if m.Container == nil {
		return nil
	}
	return m.Container.Terminate(ctx)
}

// StartAuthorizer starts an Authorizer identity-provider container backed by
// the given MariaDB, for local development stacks.
func StartAuthorizer(ctx context.Context, db *MariaDB, clientID, adminSecret string) (testcontainers.Container, string, error) {
	tcpPort, err := nat.NewPort("tcp", "8080")
	if err != nil {
		return nil, "", fmt.Errorf("failed to create Authorizer port: %w", err)
	}

	dbURL := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s", db.User, db.Password, db.Host, db.Port, db.Database)

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        authorizerImage,
			ExposedPorts: []string{string(tcpPort)},
			Env: map[string]string{
				"ENV":           "production",
				"CLIENT_ID":     clientID,
				"PORT":          "8080",
				"DATABASE_TYPE": "mariadb",
				"DATABASE_NAME": db.Database,
				"DATABASE_URL":  dbURL,
				"ADMIN_SECRET":  adminSecret,
				"ROLES":         "admin,user",
				"DEFAULT_ROLES": "user",
			},
			WaitingFor: wait.ForLog("Authorizer running at PORT:").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to start Authorizer: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, "", fmt.Errorf("failed to resolve Authorizer host: %w", err)
	}
	mappedPort, err := container.MappedPort(ctx, tcpPort)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, "", fmt.Errorf("failed to resolve Authorizer port: %w", err)
	}

	return container, fmt.Sprintf("http://%s:%s", host, mappedPort.Port()), nil
}
