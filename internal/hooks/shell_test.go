//go:build !windows

package hooks

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShellHandler_ReceivesPayloadOnStdin(t *testing.T) {
	out := filepath.Join(t.TempDir(), "payload.json")
	h := ShellHandler("cat > "+out, 0)

	err := h(context.Background(), Payload{Event: EventMessageReceived, Data: map[string]any{"content": "hi"}})
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"event":"message_received"`)
	assert.Contains(t, string(data), `"content":"hi"`)
}

func TestShellHandler_Timeout(t *testing.T) {
	h := ShellHandler("sleep 5", 50*time.Millisecond)

	start := time.Now()
	err := h(context.Background(), Payload{Event: EventConnectionUp})
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestShellHandler_FailingCommand(t *testing.T) {
	h := ShellHandler("exit 3", 0)
	err := h(context.Background(), Payload{Event: EventMessageFailed})
	assert.Error(t, err)
}
