package websocket_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfrund/amruno/internal/database/sqlite"
	"github.com/nfrund/amruno/internal/domain"
	"github.com/nfrund/amruno/internal/hub"
	"github.com/nfrund/amruno/internal/presence"
	ws "github.com/nfrund/amruno/internal/websocket"
)

// testFixture holds all the components needed for testing the router.
type testFixture struct {
	hub      *hub.Hub
	messages *sqlite.MessageStore
	handler  *ws.Handler
	server   *httptest.Server
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	ctx := context.Background()
	db, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "ws.db"))
	require.NoError(t, err)
	require.NoError(t, db.Migrate(ctx))

	messages := sqlite.NewMessageStore(db)
	return newFixture(t, messages, func() { db.Close() })
}

func newFixture(t *testing.T, repo domain.MessageRepository, closeStore func()) *testFixture {
	t.Helper()
	h := hub.New()
	router := ws.NewRouter(h, presence.NewService(h), repo, ws.WithSendBuffer(16))
	handler := ws.NewHandler(router, []string{"*"})

	e := echo.New()
	e.GET("/ws/:client_id", handler.Serve)
	server := httptest.NewServer(e)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = handler.Shutdown(ctx)
		server.Close()
		closeStore()
	})

	f := &testFixture{hub: h, handler: handler, server: server}
	if ms, ok := repo.(*sqlite.MessageStore); ok {
		f.messages = ms
	}
	return f
}

func (f *testFixture) dial(t *testing.T, id string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws/" + id
	conn, _, err := websocket.Dial(context.Background(), wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "test complete") })
	return conn
}

// connect dials id and consumes its presence snapshot, which guarantees the
// connection is registered.
func (f *testFixture) connect(t *testing.T, id string) (*websocket.Conn, []string) {
	t.Helper()
	conn := f.dial(t, id)
	snap := readEvent(t, conn)
	require.Equal(t, "presence", snap["type"])
	var users []string
	for _, u := range snap["users"].([]any) {
		users = append(users, u.(string))
	}
	return conn, users
}

func readEvent(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var ev map[string]any
	require.NoError(t, json.Unmarshal(data, &ev))
	return ev
}

func sendEvent(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, conn.Write(context.Background(), websocket.MessageText, data))
}

func TestPresenceOnConnect(t *testing.T) {
	f := setupTestFixture(t)

	alice, users := f.connect(t, "111")
	assert.Empty(t, users)

	_, users = f.connect(t, "222")
	assert.Equal(t, []string{"111"}, users)

	ev := readEvent(t, alice)
	assert.Equal(t, map[string]any{"type": "status", "user_id": "222", "status": "online"}, ev)
	assert.Equal(t, []string{"111", "222"}, f.hub.Online())
}

func TestTextMessagePersistedAndDeliveredTwice(t *testing.T) {
	f := setupTestFixture(t)
	alice, _ := f.connect(t, "111")
	bob, _ := f.connect(t, "222")
	readEvent(t, alice) // bob online

	sendEvent(t, alice, map[string]any{"type": "chat_text", "recipient_id": "222", "message": "hello bob"})

	got := readEvent(t, bob)
	echo := readEvent(t, alice)
	assert.Equal(t, got, echo)
	assert.Equal(t, "chat", got["type"])
	assert.Equal(t, "111", got["sender_mobile"])
	assert.Equal(t, "222", got["recipient_mobile"])
	assert.Equal(t, "hello bob", got["message"])
	assert.Equal(t, "hello bob", got["content"])
	assert.Nil(t, got["image_url"])
	assert.Equal(t, false, got["is_read"])

	history, err := f.messages.History(context.Background(), "111", "222")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, history[0].ID, got["id"])
	assert.False(t, history[0].IsRead)
}

func TestMediaMessages(t *testing.T) {
	f := setupTestFixture(t)
	alice, _ := f.connect(t, "111")

	sendEvent(t, alice, map[string]any{"type": "chat_image", "recipient_id": "222", "url": "http://localhost/uploads/a.png"})
	img := readEvent(t, alice)
	assert.Equal(t, "http://localhost/uploads/a.png", img["image_url"])
	assert.Nil(t, img["content"])

	sendEvent(t, alice, map[string]any{"type": "chat_audio", "recipient_id": "222", "url": "http://localhost/uploads/a.ogg"})
	audio := readEvent(t, alice)
	assert.Equal(t, "http://localhost/uploads/a.ogg", audio["audio_url"])
}

func TestTypingIsRelayedNotPersisted(t *testing.T) {
	f := setupTestFixture(t)
	alice, _ := f.connect(t, "111")
	bob, _ := f.connect(t, "222")
	readEvent(t, alice)

	sendEvent(t, alice, map[string]any{"type": "typing", "recipient_id": "222"})
	assert.Equal(t, map[string]any{"type": "typing", "sender_id": "111"}, readEvent(t, bob))

	// Events on one connection are handled in order, so if the sender had
	// been sent anything for the first event it would arrive before this one.
	sendEvent(t, alice, map[string]any{"type": "typing", "recipient_id": "111"})
	assert.Equal(t, map[string]any{"type": "typing", "sender_id": "111"}, readEvent(t, alice))

	history, err := f.messages.History(context.Background(), "111", "222")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestOfflineRecipientStillPersists(t *testing.T) {
	f := setupTestFixture(t)
	alice, _ := f.connect(t, "111")

	sendEvent(t, alice, map[string]any{"type": "chat_text", "recipient_id": "999", "message": "are you there?"})
	echo := readEvent(t, alice)
	assert.Equal(t, "999", echo["recipient_mobile"])

	history, err := f.messages.History(context.Background(), "111", "999")
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestMalformedEventKeepsConnectionOpen(t *testing.T) {
	f := setupTestFixture(t)
	alice, _ := f.connect(t, "111")

	require.NoError(t, alice.Write(context.Background(), websocket.MessageText, []byte("not json")))
	ev := readEvent(t, alice)
	assert.Equal(t, "error", ev["type"])
	assert.Contains(t, ev["error"], "malformed JSON")

	sendEvent(t, alice, map[string]any{"type": "chat_text", "recipient_id": "222"})
	ev = readEvent(t, alice)
	assert.Equal(t, "error", ev["type"])
	assert.Contains(t, ev["error"], "message is required")

	sendEvent(t, alice, map[string]any{"type": "chat_text", "recipient_id": "222", "message": "still here"})
	ev = readEvent(t, alice)
	assert.Equal(t, "chat", ev["type"])
	assert.True(t, f.hub.IsOnline("111"))
}

func TestBackToBackMessagesAreOrdered(t *testing.T) {
	f := setupTestFixture(t)
	alice, _ := f.connect(t, "111")

	sendEvent(t, alice, map[string]any{"type": "chat_text", "recipient_id": "222", "message": "one"})
	sendEvent(t, alice, map[string]any{"type": "chat_text", "recipient_id": "222", "message": "two"})
	first := readEvent(t, alice)
	second := readEvent(t, alice)
	assert.Equal(t, "one", first["content"])
	assert.Equal(t, "two", second["content"])

	id1, err := strconv.Atoi(first["id"].(string))
	require.NoError(t, err)
	id2, err := strconv.Atoi(second["id"].(string))
	require.NoError(t, err)
	assert.Greater(t, id2, id1)

	ts1, err := time.Parse(time.RFC3339Nano, first["timestamp"].(string))
	require.NoError(t, err)
	ts2, err := time.Parse(time.RFC3339Nano, second["timestamp"].(string))
	require.NoError(t, err)
	assert.False(t, ts2.Before(ts1))
}

func TestDisconnectBroadcastsOffline(t *testing.T) {
	f := setupTestFixture(t)
	alice, _ := f.connect(t, "111")
	bob, _ := f.connect(t, "222")
	readEvent(t, alice)

	require.NoError(t, bob.Close(websocket.StatusNormalClosure, "bye"))

	ev := readEvent(t, alice)
	assert.Equal(t, map[string]any{"type": "status", "user_id": "222", "status": "offline"}, ev)
	assert.Eventually(t, func() bool {
		return !f.hub.IsOnline("222")
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"111"}, f.hub.Online())
}

func TestReconnectReplacesPreviousConnection(t *testing.T) {
	f := setupTestFixture(t)
	watcher, _ := f.connect(t, "999")
	old, _ := f.connect(t, "111")
	assert.Equal(t, "online", readEvent(t, watcher)["status"])

	replacement, _ := f.connect(t, "111")
	assert.Equal(t, "online", readEvent(t, watcher)["status"])

	// Closing the displaced connection must neither evict the new one nor
	// announce the user as offline.
	require.NoError(t, old.Close(websocket.StatusNormalClosure, "replaced"))
	time.Sleep(100 * time.Millisecond)
	assert.True(t, f.hub.IsOnline("111"))

	// A typing event to itself is the next thing the watcher sees.
	sendEvent(t, watcher, map[string]any{"type": "typing", "recipient_id": "999"})
	assert.Equal(t, map[string]any{"type": "typing", "sender_id": "999"}, readEvent(t, watcher))

	sendEvent(t, watcher, map[string]any{"type": "typing", "recipient_id": "111"})
	assert.Equal(t, map[string]any{"type": "typing", "sender_id": "999"}, readEvent(t, replacement))

	require.NoError(t, replacement.Close(websocket.StatusNormalClosure, "bye"))
	assert.Equal(t, map[string]any{"type": "status", "user_id": "111", "status": "offline"}, readEvent(t, watcher))
}

// failingRepo hands out sessions whose writes always fail.
type failingRepo struct {
	domain.MessageRepository
}

type failingSession struct{}

func (failingRepo) OpenSession(context.Context) (domain.MessageSession, error) {
	return failingSession{}, nil
}

func (failingSession) CreateMessage(context.Context, domain.NewMessage) (*domain.Message, error) {
	return nil, errors.New("disk full")
}

func (failingSession) Close() error { return nil }

func TestPersistenceFailureClosesConnection(t *testing.T) {
	f := newFixture(t, failingRepo{}, func() {})
	alice, _ := f.connect(t, "111")
	bob, _ := f.connect(t, "222")
	readEvent(t, alice)

	sendEvent(t, bob, map[string]any{"type": "chat_text", "recipient_id": "111", "message": "lost"})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_, _, err := bob.Read(ctx)
	require.Error(t, err)
	assert.Equal(t, websocket.StatusInternalError, websocket.CloseStatus(err))

	assert.Equal(t, map[string]any{"type": "status", "user_id": "222", "status": "offline"}, readEvent(t, alice))
}

func TestShutdownClosesConnections(t *testing.T) {
	f := setupTestFixture(t)
	alice, _ := f.connect(t, "111")

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	require.NoError(t, f.handler.Shutdown(ctx))

	_, _, err := alice.Read(ctx)
	assert.Error(t, err)
	assert.Zero(t, f.hub.Len())
}

func TestFailedUpgradeLogsThroughRouterLogger(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	h := hub.New()
	router := ws.NewRouter(h, presence.NewService(h), failingRepo{}, ws.WithLogger(logger))
	handler := ws.NewHandler(router, []string{"*"})

	e := echo.New()
	e.GET("/ws/:client_id", handler.Serve)

	req := httptest.NewRequest(http.MethodGet, "/ws/111", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.GreaterOrEqual(t, rec.Code, http.StatusBadRequest)
	assert.Contains(t, logs.String(), "Failed to upgrade connection to WebSocket")
	assert.Contains(t, logs.String(), "component=router")
	assert.Contains(t, logs.String(), "user_id=111")
}
