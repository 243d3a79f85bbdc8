package hooks

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"time"
)

// ShellHandler returns a Handler that runs a shell command when the event
// fires. The payload is written as JSON on the command's stdin and the event
// name is exposed as PAWCHAT_EVENT.
func ShellHandler(command string, timeout time.Duration) Handler {
	return func(ctx context.Context, p Payload) error {
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		data, err := json.Marshal(p)
		if err != nil {
			return err
		}

		cmd := exec.CommandContext(ctx, "sh", "-c", command)
		cmd.Stdin = bytes.NewReader(data)
		cmd.Env = append(os.Environ(), "PAWCHAT_EVENT="+p.Event)
		return cmd.Run()
	}
}
