package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfrund/amruno/internal/server"
	"github.com/nfrund/amruno/internal/testutils"
)

// setupIntegrationTest builds a full server on sqlite and serves it from an
// httptest server. Shutdown runs on cleanup.
func setupIntegrationTest(t *testing.T) (*server.Server, *httptest.Server) {
	t.Helper()
	s, err := server.Open(context.Background(), testutils.ConfigForTests(t))
	require.NoError(t, err)
	s.RegisterRoutes()

	ts := httptest.NewServer(s.E)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
		ts.Close()
	})
	return s, ts
}

type apiClient struct {
	t    *testing.T
	base string
}

func (c apiClient) call(method, path, token string, body any) (int, []byte) {
	c.t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(c.t, err)
		r = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, c.base+path, r)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	return resp.StatusCode, data
}

func (c apiClient) signup(name, mobile string) string {
	c.t.Helper()
	code, body := c.call(http.MethodPost, "/register", "", map[string]string{
		"full_name": name, "mobile_number": mobile, "password": "secret123", "gender": "other",
	})
	require.Equal(c.t, http.StatusOK, code, string(body))

	code, body = c.call(http.MethodPost, "/login", "", map[string]string{
		"mobile_number": mobile, "password": "secret123",
	})
	require.Equal(c.t, http.StatusOK, code, string(body))
	var tok struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(c.t, json.Unmarshal(body, &tok))
	return tok.AccessToken
}

func dialWS(t *testing.T, ts *httptest.Server, id string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/" + id
	conn, _, err := websocket.DefaultDialer.DialContext(context.Background(), wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
	})
	return conn
}

func readJSON(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, p, err := conn.ReadMessage()
	require.NoError(t, err)
	var ev map[string]any
	require.NoError(t, json.Unmarshal(p, &ev))
	return ev
}

func TestHealthAndRoot(t *testing.T) {
	_, ts := setupIntegrationTest(t)
	api := apiClient{t: t, base: ts.URL}

	code, body := api.call(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "OK", string(body))

	code, body = api.call(http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body), "Amruno Backend Running")
}

func TestChatFlow_Integration(t *testing.T) {
	s, ts := setupIntegrationTest(t)
	api := apiClient{t: t, base: ts.URL}

	aliceToken := api.signup("Alice", "111")
	api.signup("Bob", "222")

	alice := dialWS(t, ts, "111")
	snap := readJSON(t, alice)
	assert.Equal(t, "presence", snap["type"])
	assert.Empty(t, snap["users"])

	bob := dialWS(t, ts, "222")
	snap = readJSON(t, bob)
	assert.Equal(t, []any{"111"}, snap["users"])

	status := readJSON(t, alice)
	assert.Equal(t, "status", status["type"])
	assert.Equal(t, "222", status["user_id"])
	assert.Equal(t, "online", status["status"])

	code, body := api.call(http.MethodGet, "/presence", aliceToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"online_users":["111","222"],"count":2}`, string(body))
	assert.Equal(t, 2, s.Hub.Len())

	require.NoError(t, bob.WriteJSON(map[string]string{
		"type": "chat_text", "recipient_id": "111", "message": "hello alice",
	}))

	for _, conn := range []*websocket.Conn{alice, bob} {
		ev := readJSON(t, conn)
		assert.Equal(t, "chat", ev["type"])
		assert.Equal(t, "222", ev["sender_mobile"])
		assert.Equal(t, "hello alice", ev["message"])
	}

	code, body = api.call(http.MethodGet, "/chat/222", aliceToken, nil)
	require.Equal(t, http.StatusOK, code)
	var history []map[string]any
	require.NoError(t, json.Unmarshal(body, &history))
	require.Len(t, history, 1)
	assert.Equal(t, "hello alice", history[0]["content"])
	assert.Equal(t, false, history[0]["is_read"])

	code, body = api.call(http.MethodGet, "/my-chats", aliceToken, nil)
	require.Equal(t, http.StatusOK, code)
	var chats []map[string]any
	require.NoError(t, json.Unmarshal(body, &chats))
	require.Len(t, chats, 1)
	assert.EqualValues(t, 1, chats[0]["unread_count"])

	code, _ = api.call(http.MethodPost, "/read-messages/222", aliceToken, nil)
	require.Equal(t, http.StatusOK, code)

	_, body = api.call(http.MethodGet, "/my-chats", aliceToken, nil)
	require.NoError(t, json.Unmarshal(body, &chats))
	assert.EqualValues(t, 0, chats[0]["unread_count"])

	require.NoError(t, bob.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")))
	status = readJSON(t, alice)
	assert.Equal(t, "222", status["user_id"])
	assert.Equal(t, "offline", status["status"])
}

func TestUploadAndServe_Integration(t *testing.T) {
	_, ts := setupIntegrationTest(t)
	api := apiClient{t: t, base: ts.URL}
	token := api.signup("Alice", "111")

	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", "photo.png")
	require.NoError(t, err)
	_, err = part.Write(png)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/upload-file", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var uploaded struct {
		URL string `json:"url"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&uploaded))
	require.True(t, strings.HasPrefix(uploaded.URL, "http://chat.example/uploads/"))

	path := strings.TrimPrefix(uploaded.URL, "http://chat.example")
	got, err := http.Get(ts.URL + path)
	require.NoError(t, err)
	defer got.Body.Close()
	assert.Equal(t, http.StatusOK, got.StatusCode)
	data, err := io.ReadAll(got.Body)
	require.NoError(t, err)
	assert.Equal(t, png, data)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	_, ts := setupIntegrationTest(t)
	api := apiClient{t: t, base: ts.URL}

	for _, path := range []string{"/users", "/users/me", "/my-chats", "/chat/111", "/presence"} {
		code, body := api.call(http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, code, path)
		assert.JSONEq(t, `{"detail":"Could not validate credentials"}`, string(body), path)
	}
}
