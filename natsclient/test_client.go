package natsclient

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestClient is a Client connected to a NATS server running in a container.
type TestClient struct {
	Client    *Client
	URL       string
	container testcontainers.Container
}

type testConfig struct {
	natsVersion  string
	timeout      time.Duration
	startTimeout time.Duration
}

// TestOption configures NewTestClient.
type TestOption func(*testConfig)

// WithNATSVersion selects the nats image tag.
func WithNATSVersion(version string) TestOption {
	return func(cfg *testConfig) { cfg.natsVersion = version }
}

// WithStartTimeout bounds container startup.
func WithStartTimeout(timeout time.Duration) TestOption {
	return func(cfg *testConfig) { cfg.startTimeout = timeout }
}

// NewTestClient starts a NATS container, connects a Client to it and registers
// cleanup with t. It fails the test if the container cannot start.
func NewTestClient(t testing.TB, opts ...TestOption) *TestClient {
	t.Helper()

	cfg := &testConfig{
		natsVersion:  "2.11.7-alpine",
		timeout:      5 * time.Second,
		startTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "nats:" + cfg.natsVersion,
			ExposedPorts: []string{"4222/tcp", "8222/tcp"},
			Cmd:          []string{"--port", "4222", "--http_port", "8222"},
			WaitingFor: wait.ForAll(
				wait.ForListeningPort("4222/tcp"),
				wait.ForHTTP("/").WithPort("8222/tcp").WithStartupTimeout(cfg.startTimeout),
			),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start NATS container: %v", err)
	}
	terminate := func() { _ = container.Terminate(context.Background()) }

	host, err := container.Host(ctx)
	if err != nil {
		terminate()
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "4222")
	if err != nil {
		terminate()
		t.Fatalf("Failed to get mapped port: %v", err)
	}
	url := fmt.Sprintf("nats://%s:%s", host, port.Port())

	client, err := NewClient(url, WithTimeout(cfg.timeout), WithMaxReconnects(0))
	if err != nil {
		terminate()
		t.Fatalf("Failed to create NATS client: %v", err)
	}

	connectCtx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()
	if err := client.Connect(connectCtx); err != nil {
		terminate()
		t.Fatalf("Failed to connect to NATS: %v", err)
	}

	tc := &TestClient{Client: client, URL: url, container: container}
	t.Cleanup(func() {
		_ = client.Close(context.Background())
		terminate()
	})
	return tc
}
