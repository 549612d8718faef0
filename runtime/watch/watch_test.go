package watch

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sourceFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "page.mml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/listen"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readPayload(t *testing.T, conn *websocket.Conn) Payload {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var p Payload
	require.NoError(t, conn.ReadJSON(&p))
	return p
}

func TestBuild(t *testing.T) {
	s := New("unused.mml")

	key, p := s.Build("@(hi)")
	assert.True(t, strings.HasPrefix(key, "blake2b:"), key)
	assert.Equal(t, Payload{Code: "<main><span>hi</span></main>"}, p)

	again, _ := s.Build("@(hi)   // same IR, different text")
	assert.Equal(t, key, again, "equal IR gives equal keys")

	key, p = s.Build("bogus")
	assert.True(t, strings.HasPrefix(key, "error:"))
	assert.Empty(t, p.Code)
	assert.Contains(t, p.Error, "unknown component: no component named 'bogus'")

	_, p = s.Build("header[7](too deep)")
	assert.Contains(t, p.Error, "level 7 is outside 1-6")

	key, p = s.Build("  \n ")
	assert.Equal(t, "empty", key)
	assert.Equal(t, Payload{}, p)
}

func TestHub(t *testing.T) {
	h := newHub(New("x").logger)

	_, ok := h.Latest()
	assert.False(t, ok)

	early := h.subscribe()
	assert.True(t, h.publish("a", Payload{Code: "1"}))
	assert.False(t, h.publish("a", Payload{Code: "1"}), "same key is not re-broadcast")
	assert.Equal(t, Payload{Code: "1"}, <-early.send)

	late := h.subscribe()
	assert.Equal(t, Payload{Code: "1"}, <-late.send, "new subscribers get the latest payload")
	assert.Equal(t, 2, h.Subscribers())

	h.unsubscribe(early.id)
	h.unsubscribe(early.id)
	assert.Equal(t, 1, h.Subscribers())

	for i := range subscriberBuffer + 1 {
		h.publish(string(rune('b'+i)), Payload{Code: "x"})
	}
	assert.Equal(t, 0, h.Subscribers(), "slow subscribers are dropped")
}

func TestListen(t *testing.T) {
	path := sourceFile(t, "@(first)")
	s := New(path)
	require.True(t, s.Rebuild())

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	conn := dial(t, srv)
	assert.Equal(t, Payload{Code: "<main><span>first</span></main>"}, readPayload(t, conn))

	require.NoError(t, os.WriteFile(path, []byte("box { nope }"), 0o644))
	require.True(t, s.Rebuild())
	p := readPayload(t, conn)
	assert.Contains(t, p.Error, "no component named 'nope'")

	require.NoError(t, os.WriteFile(path, []byte("paragraph(second)"), 0o644))
	require.True(t, s.Rebuild())
	assert.Equal(t, Payload{Code: "<main><p>second</p></main>"}, readPayload(t, conn))

	assert.False(t, s.Rebuild(), "unchanged output is not re-broadcast")
	assert.Equal(t, 1, s.Hub().Subscribers())
}

func TestIndex(t *testing.T) {
	srv := httptest.NewServer(New("x").Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/html; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Contains(t, string(body), `"/listen"`)

	resp, err = http.Get(srv.URL + "/missing")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWatchPicksUpWrites(t *testing.T) {
	path := sourceFile(t, "@(v1)")
	s := New(path, WithDebounce(20*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Watch(ctx) }()

	latestCode := func() string {
		p, _ := s.Hub().Latest()
		return p.Code
	}
	require.Eventually(t, func() bool { return strings.Contains(latestCode(), "v1") },
		5*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte("@(v2)"), 0o644))
	require.Eventually(t, func() bool { return strings.Contains(latestCode(), "v2") },
		5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop after cancel")
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	path := sourceFile(t, "@(x)")
	s := New(path)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop after cancel")
	}
}

func TestWatchRequiresCancellableContext(t *testing.T) {
	assert.Panics(t, func() {
		_ = New("x").Watch(context.Background())
	})
}
