package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/png"
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
	"go.uber.org/goleak"

	"palm-overlay-renderer/internal/raster"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
	)
}

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	s := New(Config{
		Width:        40,
		Height:       50,
		FPS:          50,
		Format:       raster.PNG,
		LineDuration: 20 * time.Millisecond,
		RevealDelay:  10 * time.Millisecond,
	})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func TestHealthz(t *testing.T) {
	_, ts := newTestServer(t)
	resp, err := ts.Client().Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(0), body["sessions"])
}

func post(t *testing.T, ts *httptest.Server, body string) *http.Response {
	t.Helper()
	resp, err := ts.Client().Post(ts.URL+"/render", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestRenderPNG(t *testing.T) {
	_, ts := newTestServer(t)
	resp := post(t, ts, `{
		"analysis": {"heartLine": {"rating": 8, "observed": "deep"}},
		"display": {"showLabels": true, "showDepth": true, "opacity": 0.9, "zoom": 1},
		"width": 80, "height": 100,
		"photo": "/nonexistent/palm.jpg"
	}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.Equal(t, "placeholder", resp.Header.Get("X-Photo-Fallback"))

	img, err := png.Decode(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 80, 100), img.Bounds())
}

func pngFile(t *testing.T) (string, []byte) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 8, 8))))
	path := filepath.Join(t.TempDir(), "palm.png")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
	return path, buf.Bytes()
}

func TestRenderRefusesLocalPhotos(t *testing.T) {
	_, ts := newTestServer(t)
	path, data := pngFile(t)

	for _, src := range []string{path, "file://" + path} {
		body, err := json.Marshal(RenderRequest{Photo: src})
		require.NoError(t, err)
		resp := post(t, ts, string(body))
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "placeholder", resp.Header.Get("X-Photo-Fallback"), src)
	}

	body, err := json.Marshal(RenderRequest{Photo: "data:image/png;base64," + base64.StdEncoding.EncodeToString(data)})
	require.NoError(t, err)
	resp := post(t, ts, string(body))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, resp.Header.Get("X-Photo-Fallback"), "data URIs are accepted")
}

func TestRenderSVG(t *testing.T) {
	_, ts := newTestServer(t)
	resp := post(t, ts, `{"format": "svg", "hidden": ["heart"]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/svg+xml", resp.Header.Get("Content-Type"))
	var buf bytes.Buffer
	_, err := buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), ">Life</text>")
	assert.NotContains(t, buf.String(), ">Heart</text>")
}

func TestRenderRejectsBadInput(t *testing.T) {
	_, ts := newTestServer(t)
	assert.Equal(t, http.StatusBadRequest, post(t, ts, `{`).StatusCode)
	assert.Equal(t, http.StatusBadRequest, post(t, ts, `{"format": "gif"}`).StatusCode)
	assert.Equal(t, http.StatusBadRequest, post(t, ts, `{"width": 100000}`).StatusCode)

	resp, err := ts.Client().Get(ts.URL + "/render")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

type wsClient struct {
	t    *testing.T
	conn *websocket.Conn
}

func dial(t *testing.T, ts *httptest.Server) *wsClient {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return &wsClient{t: t, conn: conn}
}

// next reads the next JSON message, skipping binary frames.
func (c *wsClient) next() map[string]any {
	c.t.Helper()
	for {
		c.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		kind, data, err := c.conn.ReadMessage()
		require.NoError(c.t, err)
		if kind == websocket.BinaryMessage {
			continue
		}
		var m map[string]any
		require.NoError(c.t, json.Unmarshal(data, &m))
		return m
	}
}

// frame reads the next frame header and its image.
func (c *wsClient) frame() (Frame, image.Image) {
	c.t.Helper()
	for {
		c.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		kind, data, err := c.conn.ReadMessage()
		require.NoError(c.t, err)
		if kind != websocket.TextMessage {
			continue
		}
		var f Frame
		require.NoError(c.t, json.Unmarshal(data, &f))
		if f.Type != "frame" {
			continue
		}
		kind, data, err = c.conn.ReadMessage()
		require.NoError(c.t, err)
		require.Equal(c.t, websocket.BinaryMessage, kind)
		img, err := png.Decode(bytes.NewReader(data))
		require.NoError(c.t, err)
		return f, img
	}
}

func (c *wsClient) send(cmd string) {
	c.t.Helper()
	require.NoError(c.t, c.conn.WriteMessage(websocket.TextMessage, []byte(cmd)))
}

func TestSessionStreamsFrames(t *testing.T) {
	s, ts := newTestServer(t)
	c := dial(t, ts)

	hello := c.next()
	assert.Equal(t, "hello", hello["type"])
	assert.NotEmpty(t, hello["session"])

	f, img := c.frame()
	assert.Equal(t, 40, f.Width)
	assert.Equal(t, image.Rect(0, 0, 40, 50), img.Bounds())
	assert.Len(t, f.Lines, 5)
	assert.Equal(t, 1, s.Sessions())

	c.send(`{"type": "zoom_in"}`)
	f, _ = c.frame()
	assert.Equal(t, 1.25, f.Display.Zoom)

	c.send(`{"type": "visible", "line": "heart", "value": false}`)
	f, _ = c.frame()
	for _, l := range f.Lines {
		assert.Equal(t, l.ID != "heart", l.Visible, l.ID)
	}

	c.send(`{"type": "resize", "width": 60, "height": 70}`)
	_, img = c.frame()
	assert.Equal(t, image.Rect(0, 0, 60, 70), img.Bounds())
}

func TestSessionRevealAfterAnalysis(t *testing.T) {
	_, ts := newTestServer(t)
	c := dial(t, ts)
	c.next()
	c.frame()

	c.send(`{"type": "analysis", "analysis": {"version": 4, "heartLine": {"rating": 9, "observed": "prominent"}}}`)
	f, _ := c.frame()
	assert.True(t, f.Animating)

	deadline := time.Now().Add(5 * time.Second)
	for f.Animating {
		require.True(t, time.Now().Before(deadline), "reveal did not finish")
		f, _ = c.frame()
	}
	assert.Equal(t, "complete", f.Phase)
	for _, l := range f.Lines {
		assert.Equal(t, 100.0, l.Progress, l.ID)
		if l.ID == "heart" {
			assert.Equal(t, "deep", l.Depth)
			assert.InDelta(t, 0.9, l.Confidence, 1e-9)
		}
	}
}

func TestSessionRejectsUnknownCommand(t *testing.T) {
	_, ts := newTestServer(t)
	c := dial(t, ts)
	c.next()
	c.frame()

	c.send(`{"type": "teleport"}`)
	m := c.next()
	assert.Equal(t, "error", m["type"])
	assert.Equal(t, "teleport", m["command"])

	c.send(`{"type": "toggle", "line": "elbow"}`)
	m = c.next()
	assert.Equal(t, "error", m["type"])
}

func TestRunShutsDownOnCancel(t *testing.T) {
	s := New(Config{Addr: "127.0.0.1:0"})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
