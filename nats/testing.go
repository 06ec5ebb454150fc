package nats

import (
	"context"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// testImage is the NATS server image the test container runs.
const testImage = "nats:2.11-alpine"

// Testing is the subset of *testing.T the test container needs.
type Testing interface {
	require.TestingT
	Context() context.Context
	Logf(format string, args ...any)
	Cleanup(func())
}

// NewTestContainer starts a JetStream-enabled NATS server in a container
// for the lifetime of t and returns a Connector for it. JetStream state lives
// in the container's temp dir, so nothing outlives the test.
func NewTestContainer(t Testing) Connector {
	ctx := t.Context()
	natsC, err := testcontainers.Run(
		ctx, testImage,
		testcontainers.WithCmd("-js", "-sd", "/tmp/tempstore-js", "-n", "tempstore-test"),
		testcontainers.WithExposedPorts("4222/tcp"),
		testcontainers.WithWaitStrategy(
			wait.ForListeningPort("4222/tcp"),
			wait.ForLog("Server is ready"),
		),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(natsC); err != nil {
			t.Errorf("nats: terminate test container: %v", err)
		}
	})

	endpoint, err := natsC.PortEndpoint(ctx, "4222/tcp", "nats")
	require.NoError(t, err)
	t.Logf("nats: test server at %s", endpoint)
	return ConnectURL(endpoint)
}
