package docker

import (
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient() *DockerClient {
	return &DockerClient{logger: slog.Default()}
}

func TestDrainStream_Success(t *testing.T) {
	stream := strings.NewReader(
		`{"stream":"Step 1/4 : FROM golang:1.24\n"}` + "\n" +
			`{"status":"Pushing","id":"abc123"}` + "\n" +
			`{"stream":"Successfully built deadbeef\n"}` + "\n")

	err := testClient().drainStream(stream)
	assert.NoError(t, err)
}

func TestDrainStream_DaemonError(t *testing.T) {
	stream := strings.NewReader(
		`{"stream":"Step 1/4 : FROM golang:1.24\n"}` + "\n" +
			`{"errorDetail":{"message":"denied: permission_denied"},"error":"denied: permission_denied"}` + "\n")

	err := testClient().drainStream(stream)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission_denied")
}

func TestDrainStream_MalformedStream(t *testing.T) {
	err := testClient().drainStream(strings.NewReader("not json at all"))
	assert.Error(t, err)
}

func TestDockerError_Format(t *testing.T) {
	err := NewDockerError("PushImage", "image", "ghcr.io/onblockio/metacrawler:latest", "denied", ErrImagePushFailed)

	assert.Equal(t, "PushImage image ghcr.io/onblockio/metacrawler:latest: denied", err.Error())
	assert.ErrorIs(t, err, ErrImagePushFailed)
}
