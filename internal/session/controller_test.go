package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/petwell/pawchat/internal/domain"
	"github.com/petwell/pawchat/internal/hooks"
	"github.com/petwell/pawchat/internal/logging"
	"github.com/petwell/pawchat/internal/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logging.Logger {
	return logging.New(nil, "silent")
}

type fakeAPI struct {
	mu           sync.Mutex
	historyFn    func(conversationID string) ([]domain.Message, error)
	sendFn       func(conversationID string, req transport.SendRequest) (domain.Message, error)
	createFn     func(req transport.CreateConversationRequest) (domain.Conversation, error)
	userConvsFn  func(userID string) ([]domain.Conversation, error)
	historyCalls int
	sendCalls    int
	createCalls  int
	doctorCalls  int
}

func (f *fakeAPI) History(ctx context.Context, conversationID string) ([]domain.Message, error) {
	f.mu.Lock()
	f.historyCalls++
	fn := f.historyFn
	f.mu.Unlock()
	if fn == nil {
		return []domain.Message{}, nil
	}
	return fn(conversationID)
}

func (f *fakeAPI) Send(ctx context.Context, conversationID string, req transport.SendRequest) (domain.Message, error) {
	f.mu.Lock()
	f.sendCalls++
	fn := f.sendFn
	f.mu.Unlock()
	if fn == nil {
		return domain.Message{ID: "srv-1", ConversationID: conversationID, SenderID: req.SenderID, Content: req.Content, ClientTag: req.ClientTag, CreatedAt: time.Now()}, nil
	}
	return fn(conversationID, req)
}

func (f *fakeAPI) CreateConversation(ctx context.Context, req transport.CreateConversationRequest) (domain.Conversation, error) {
	f.mu.Lock()
	f.createCalls++
	fn := f.createFn
	f.mu.Unlock()
	if fn == nil {
		return domain.Conversation{ID: "conv-new"}, nil
	}
	return fn(req)
}

func (f *fakeAPI) UserConversations(ctx context.Context, userID string) ([]domain.Conversation, error) {
	f.mu.Lock()
	fn := f.userConvsFn
	f.mu.Unlock()
	if fn == nil {
		return []domain.Conversation{}, nil
	}
	return fn(userID)
}

func (f *fakeAPI) DoctorConversations(ctx context.Context, doctorID string) ([]domain.Conversation, error) {
	f.mu.Lock()
	f.doctorCalls++
	f.mu.Unlock()
	return []domain.Conversation{{ID: "conv-doc"}}, nil
}

type fakePush struct {
	mu        sync.Mutex
	connected bool
	joined    []string
	left      []string
	onMessage transport.MessageHandler
	onTyping  transport.TypingHandler
	onConn    transport.ConnHandler
}

func (f *fakePush) Connect(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = true
	return nil
}

func (f *fakePush) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakePush) JoinConversation(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.joined = append(f.joined, id)
}

func (f *fakePush) LeaveConversation(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.left = append(f.left, id)
}

func (f *fakePush) Typing(id string, isTyping bool) {}

func (f *fakePush) OnNewMessage(name string, fn transport.MessageHandler) { f.onMessage = fn }
func (f *fakePush) OnTyping(name string, fn transport.TypingHandler)      { f.onTyping = fn }
func (f *fakePush) OnConnectionChange(name string, fn transport.ConnHandler) {
	f.onConn = fn
}
func (f *fakePush) Close() error { return nil }

type recorder struct {
	mu      sync.Mutex
	updates []TimelineUpdate
	notices []string
}

func (r *recorder) onTimeline(u TimelineUpdate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, u)
}

func (r *recorder) onNotify(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, text)
}

func (r *recorder) last() (TimelineUpdate, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.updates) == 0 {
		return TimelineUpdate{}, false
	}
	return r.updates[len(r.updates)-1], true
}

func newController(t *testing.T, cfg Config, api API, push Push) (*Controller, *recorder) {
	t.Helper()
	if cfg.UserID == "" {
		cfg.UserID = "user-1"
	}
	c := New(cfg, api, push, nil, hooks.NewManager(testLogger()), testLogger())
	rec := &recorder{}
	c.OnTimeline = rec.onTimeline
	c.Notify = rec.onNotify
	c.Start(context.Background())
	return c, rec
}

func conv(id string) domain.Conversation {
	return domain.Conversation{ID: id}
}

func TestSelect_FetchesAndEmits(t *testing.T) {
	api := &fakeAPI{historyFn: func(id string) ([]domain.Message, error) {
		return []domain.Message{{ID: "m1", ConversationID: id, SenderID: "doc-1", Content: "hi", CreatedAt: time.Now()}}, nil
	}}
	push := &fakePush{}
	c, rec := newController(t, Config{}, api, push)

	require.NoError(t, c.Select(context.Background(), conv("conv-1")))

	update, ok := rec.last()
	require.True(t, ok)
	assert.Equal(t, "conv-1", update.ConversationID)
	require.Len(t, update.Entries, 1)
	assert.Equal(t, "m1", update.Entries[0].ID)
	assert.True(t, update.Appended)
	assert.Equal(t, []string{"conv-1"}, push.joined)
}

func TestSelect_ClearsLocalsOnSwitch(t *testing.T) {
	sendErr := &transport.NetworkError{Op: "POST", Err: errors.New("down")}
	api := &fakeAPI{sendFn: func(id string, req transport.SendRequest) (domain.Message, error) {
		return domain.Message{}, sendErr
	}}
	push := &fakePush{}
	c, rec := newController(t, Config{}, api, push)

	require.NoError(t, c.Select(context.Background(), conv("conv-1")))
	_, err := c.Send(context.Background(), "orphan", "")
	require.NoError(t, err)

	update, _ := rec.last()
	require.Len(t, update.Entries, 1)

	require.NoError(t, c.Select(context.Background(), conv("conv-2")))
	update, _ = rec.last()
	assert.Empty(t, update.Entries)
	assert.Equal(t, []string{"conv-1"}, push.left)
	assert.Equal(t, []string{"conv-1", "conv-2"}, push.joined)
}

func TestRefresh_StaleResponseDiscarded(t *testing.T) {
	var c *Controller
	api := &fakeAPI{}
	api.historyFn = func(id string) ([]domain.Message, error) {
		if id == "conv-1" {
			// The user switches away while this fetch is in flight.
			api.mu.Lock()
			api.historyFn = func(id string) ([]domain.Message, error) {
				return []domain.Message{{ID: "m2", ConversationID: id, SenderID: "doc-1", Content: "newer", CreatedAt: time.Now()}}, nil
			}
			api.mu.Unlock()
			require.NoError(t, c.Select(context.Background(), conv("conv-2")))
			return []domain.Message{{ID: "m1", ConversationID: id, SenderID: "doc-1", Content: "stale", CreatedAt: time.Now()}}, nil
		}
		return []domain.Message{{ID: "m2", ConversationID: id, SenderID: "doc-1", Content: "newer", CreatedAt: time.Now()}}, nil
	}

	c, rec := newController(t, Config{}, api, nil)
	require.NoError(t, c.Select(context.Background(), conv("conv-1")))

	update, ok := rec.last()
	require.True(t, ok)
	require.Len(t, update.Entries, 1)
	assert.Equal(t, "m2", update.Entries[0].ID)
	active, _ := c.Active()
	assert.Equal(t, "conv-2", active.ID)
}

func TestSend_FailureKeepsContent(t *testing.T) {
	api := &fakeAPI{sendFn: func(id string, req transport.SendRequest) (domain.Message, error) {
		return domain.Message{}, &transport.NetworkError{Op: "POST", Err: errors.New("offline")}
	}}
	c, rec := newController(t, Config{}, api, nil)
	require.NoError(t, c.Select(context.Background(), conv("conv-1")))

	tempID, err := c.Send(context.Background(), "Hello", "")
	require.NoError(t, err)
	require.NotEmpty(t, tempID)

	update, _ := rec.last()
	require.Len(t, update.Entries, 1)
	assert.Equal(t, "Hello", update.Entries[0].Content)
	assert.Equal(t, domain.StatusFailed, update.Entries[0].Status)
	assert.Contains(t, rec.notices, "Message failed to send")

	// A later refresh with empty server history must not drop the entry.
	require.NoError(t, c.Refresh(context.Background()))
	update, _ = rec.last()
	require.Len(t, update.Entries, 1)
	assert.Equal(t, "Hello", update.Entries[0].Content)
}

func TestSend_SuccessSupersededByEcho(t *testing.T) {
	var echoed domain.Message
	api := &fakeAPI{}
	api.sendFn = func(id string, req transport.SendRequest) (domain.Message, error) {
		echoed = domain.Message{ID: "srv-1", ConversationID: id, SenderID: req.SenderID, Content: req.Content, ClientTag: req.ClientTag, CreatedAt: time.Now()}
		api.mu.Lock()
		api.historyFn = func(string) ([]domain.Message, error) {
			return []domain.Message{echoed}, nil
		}
		api.mu.Unlock()
		return echoed, nil
	}

	c, rec := newController(t, Config{}, api, nil)
	require.NoError(t, c.Select(context.Background(), conv("conv-1")))

	_, err := c.Send(context.Background(), "hello", "")
	require.NoError(t, err)

	update, _ := rec.last()
	require.Len(t, update.Entries, 1)
	assert.Equal(t, "srv-1", update.Entries[0].ID)
	assert.False(t, update.Entries[0].Local)
	assert.Empty(t, c.FailedMessages())
}

func TestSend_EmptyRejectedBeforeAppend(t *testing.T) {
	api := &fakeAPI{}
	c, rec := newController(t, Config{}, api, nil)
	require.NoError(t, c.Select(context.Background(), conv("conv-1")))

	_, err := c.Send(context.Background(), "   ", "")
	var verr *transport.ValidationError
	require.ErrorAs(t, err, &verr)

	update, _ := rec.last()
	assert.Empty(t, update.Entries)
	assert.Equal(t, 0, api.sendCalls)
}

func TestSend_NoActiveConversation(t *testing.T) {
	c, _ := newController(t, Config{}, &fakeAPI{}, nil)
	_, err := c.Send(context.Background(), "hi", "")
	assert.ErrorIs(t, err, ErrNoActiveConversation)
}

func TestRetry_BoundedAttempts(t *testing.T) {
	api := &fakeAPI{sendFn: func(id string, req transport.SendRequest) (domain.Message, error) {
		return domain.Message{}, &transport.NetworkError{Op: "POST", Err: errors.New("down")}
	}}
	c, rec := newController(t, Config{MaxSendAttempts: 2}, api, nil)
	require.NoError(t, c.Select(context.Background(), conv("conv-1")))

	tempID, err := c.Send(context.Background(), "stubborn", "")
	require.NoError(t, err)

	require.NoError(t, c.Retry(context.Background(), tempID))
	assert.Equal(t, 2, api.sendCalls)

	err = c.Retry(context.Background(), tempID)
	assert.ErrorIs(t, err, ErrRetryLimit)
	assert.Equal(t, 2, api.sendCalls)
	assert.Contains(t, rec.notices, "Message could not be delivered after repeated attempts")

	update, _ := rec.last()
	require.Len(t, update.Entries, 1)
	assert.Equal(t, domain.StatusFailed, update.Entries[0].Status)
}

func TestRetry_SuccessReusesClientTag(t *testing.T) {
	var tags []string
	fail := true
	api := &fakeAPI{}
	api.sendFn = func(id string, req transport.SendRequest) (domain.Message, error) {
		tags = append(tags, req.ClientTag)
		if fail {
			fail = false
			return domain.Message{}, &transport.NetworkError{Op: "POST", Err: errors.New("blip")}
		}
		return domain.Message{ID: "srv-1", ClientTag: req.ClientTag, CreatedAt: time.Now()}, nil
	}

	c, _ := newController(t, Config{}, api, nil)
	require.NoError(t, c.Select(context.Background(), conv("conv-1")))

	tempID, err := c.Send(context.Background(), "again", "")
	require.NoError(t, err)
	require.NoError(t, c.Retry(context.Background(), tempID))

	require.Len(t, tags, 2)
	assert.Equal(t, tags[0], tags[1])
}

func TestRetry_RejectsNonFailed(t *testing.T) {
	c, _ := newController(t, Config{}, &fakeAPI{}, nil)
	require.NoError(t, c.Select(context.Background(), conv("conv-1")))

	err := c.Retry(context.Background(), "missing")
	assert.Error(t, err)
}

func TestConversations_CustomerAutoCreate(t *testing.T) {
	created := false
	api := &fakeAPI{}
	api.userConvsFn = func(userID string) ([]domain.Conversation, error) {
		if created {
			return []domain.Conversation{{ID: "conv-new"}}, nil
		}
		return []domain.Conversation{}, nil
	}
	api.createFn = func(req transport.CreateConversationRequest) (domain.Conversation, error) {
		created = true
		assert.Equal(t, "user-1", req.CustomerID)
		assert.Equal(t, "doc-1", req.DoctorID)
		assert.Equal(t, "appt-1", req.AppointmentID)
		return domain.Conversation{ID: "conv-new"}, nil
	}

	c, _ := newController(t, Config{Role: "customer", DoctorID: "doc-1", AppointmentID: "appt-1"}, api, nil)

	convs, err := c.Conversations(context.Background())
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, "conv-new", convs[0].ID)
	assert.Equal(t, 1, api.createCalls)
}

func TestConversations_DoctorUsesDoctorListing(t *testing.T) {
	api := &fakeAPI{}
	c, _ := newController(t, Config{Role: "doctor"}, api, nil)

	convs, err := c.Conversations(context.Background())
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, "conv-doc", convs[0].ID)
	assert.Equal(t, 1, api.doctorCalls)
}

func TestPushMessage_RefreshesActiveOnly(t *testing.T) {
	api := &fakeAPI{}
	push := &fakePush{}
	c, _ := newController(t, Config{}, api, push)
	require.NoError(t, c.Select(context.Background(), conv("conv-1")))

	api.mu.Lock()
	before := api.historyCalls
	api.mu.Unlock()

	push.onMessage(domain.Message{ID: "m9", ConversationID: "conv-other"})
	api.mu.Lock()
	assert.Equal(t, before, api.historyCalls)
	api.mu.Unlock()

	push.onMessage(domain.Message{ID: "m10", ConversationID: "conv-1"})
	api.mu.Lock()
	assert.Equal(t, before+1, api.historyCalls)
	api.mu.Unlock()
}

func TestTyping_FiltersOwnAndInactive(t *testing.T) {
	push := &fakePush{}
	c, _ := newController(t, Config{UserID: "user-1"}, &fakeAPI{}, push)
	require.NoError(t, c.Select(context.Background(), conv("conv-1")))

	var got []domain.TypingSignal
	c.OnTyping = func(sig domain.TypingSignal) { got = append(got, sig) }

	push.onTyping(domain.TypingSignal{ConversationID: "conv-1", UserID: "user-1", IsTyping: true})
	push.onTyping(domain.TypingSignal{ConversationID: "conv-2", UserID: "doc-1", IsTyping: true})
	push.onTyping(domain.TypingSignal{ConversationID: "conv-1", UserID: "doc-1", IsTyping: true})

	require.Len(t, got, 1)
	assert.Equal(t, "doc-1", got[0].UserID)
}

func TestPushHealthy_TracksSocket(t *testing.T) {
	push := &fakePush{}
	c, _ := newController(t, Config{}, &fakeAPI{}, push)
	assert.True(t, c.PushHealthy())

	push.mu.Lock()
	push.connected = false
	push.mu.Unlock()
	assert.False(t, c.PushHealthy())

	noPush := New(Config{UserID: "u"}, &fakeAPI{}, nil, nil, hooks.NewManager(testLogger()), testLogger())
	assert.False(t, noPush.PushHealthy())
}
