package hooks

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/petwell/pawchat/internal/logging"
	"github.com/stretchr/testify/assert"
)

func newTestManager() *Manager {
	return NewManager(logging.New(nil, "silent"))
}

func TestEmit_CallsHandlersInOrder(t *testing.T) {
	m := newTestManager()

	var order []string
	m.On(EventMessageReceived, "first", func(ctx context.Context, p Payload) error {
		order = append(order, "first")
		return nil
	})
	m.On(EventMessageReceived, "second", func(ctx context.Context, p Payload) error {
		order = append(order, "second")
		return nil
	})

	m.Emit(context.Background(), EventMessageReceived, map[string]any{"content": "hi"})
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestEmit_PayloadData(t *testing.T) {
	m := newTestManager()

	var got Payload
	m.On(EventMessageFailed, "capture", func(ctx context.Context, p Payload) error {
		got = p
		return nil
	})

	m.Emit(context.Background(), EventMessageFailed, map[string]any{"tempId": "t1"})
	assert.Equal(t, EventMessageFailed, got.Event)
	assert.Equal(t, "t1", got.Data["tempId"])
}

func TestEmit_ErrorDoesNotStopOthers(t *testing.T) {
	m := newTestManager()

	called := false
	m.On(EventConnectionDown, "broken", func(ctx context.Context, p Payload) error {
		return errors.New("boom")
	})
	m.On(EventConnectionDown, "after", func(ctx context.Context, p Payload) error {
		called = true
		return nil
	})

	m.Emit(context.Background(), EventConnectionDown, nil)
	assert.True(t, called)
}

func TestEmit_NoHandlersIsNoop(t *testing.T) {
	m := newTestManager()
	m.Emit(context.Background(), EventConversationOpened, nil)
}

func TestOff_RemovesNamedHandler(t *testing.T) {
	m := newTestManager()

	var a, b int
	m.On(EventMessageReceived, "a", func(ctx context.Context, p Payload) error { a++; return nil })
	m.On(EventMessageReceived, "b", func(ctx context.Context, p Payload) error { b++; return nil })
	m.Off(EventMessageReceived, "a")

	m.Emit(context.Background(), EventMessageReceived, nil)
	assert.Equal(t, 0, a)
	assert.Equal(t, 1, b)
	assert.Equal(t, 1, m.Count(EventMessageReceived))
}

func TestEmitAsync_RunsConcurrently(t *testing.T) {
	m := newTestManager()

	var mu sync.Mutex
	count := 0
	for i := 0; i < 3; i++ {
		m.On(EventConnectionUp, "h", func(ctx context.Context, p Payload) error {
			mu.Lock()
			count++
			mu.Unlock()
			return nil
		})
	}

	m.EmitAsync(context.Background(), EventConnectionUp, nil)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return count == 3
	}, time.Second, 10*time.Millisecond)
}
