package control

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seccouser/hdmi-in-display/internal/capture"
	"github.com/seccouser/hdmi-in-display/internal/render"
)

func dialTestServer(t *testing.T, ops chan render.Op) *websocket.Conn {
	t.Helper()

	sup := capture.New(nil, capture.DefaultOptions())
	srv := httptest.NewServer(NewServer("", sup, ops).Handler())
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws
}

func roundTrip(t *testing.T, ws *websocket.Conn, op string) response {
	t.Helper()
	require.NoError(t, ws.WriteJSON(request{Op: op}))
	var resp response
	require.NoError(t, ws.ReadJSON(&resp))
	return resp
}

func TestForwardOperation(t *testing.T) {
	ops := make(chan render.Op, 16)
	ws := dialTestServer(t, ops)

	resp := roundTrip(t, ws, "mirror_h")
	assert.True(t, resp.OK)
	assert.Equal(t, "mirror_h", resp.Op)

	_, err := uuid.Parse(resp.Session)
	assert.NoError(t, err)

	select {
	case got := <-ops:
		assert.Equal(t, render.OpMirrorH, got)
	default:
		t.Fatal("operation not forwarded")
	}
}

func TestSessionIDStableAcrossMessages(t *testing.T) {
	ops := make(chan render.Op, 16)
	ws := dialTestServer(t, ops)

	first := roundTrip(t, ws, "rotate")
	second := roundTrip(t, ws, "snapshot")
	assert.Equal(t, first.Session, second.Session)
}

func TestUnknownOpRejected(t *testing.T) {
	ops := make(chan render.Op, 16)
	ws := dialTestServer(t, ops)

	resp := roundTrip(t, ws, "reboot")
	assert.False(t, resp.OK)
	assert.Equal(t, "unknown op", resp.Error)

	select {
	case op := <-ops:
		t.Fatalf("unexpected forwarded op %s", op)
	default:
	}
}

func TestStatusReply(t *testing.T) {
	ops := make(chan render.Op, 16)
	ws := dialTestServer(t, ops)

	resp := roundTrip(t, ws, "status")
	require.True(t, resp.OK)
	require.NotNil(t, resp.Status)
	assert.Equal(t, "live", resp.Status.State)
	assert.False(t, resp.Status.Degraded)
	assert.Empty(t, resp.Status.LastGood)

	select {
	case op := <-ops:
		t.Fatalf("status must not forward, got %s", op)
	default:
	}
}

func TestFullQueueReported(t *testing.T) {
	ops := make(chan render.Op, 1)
	ws := dialTestServer(t, ops)

	require.True(t, roundTrip(t, ws, "rotate").OK)
	resp := roundTrip(t, ws, "rotate")
	assert.False(t, resp.OK)
	assert.NotEmpty(t, resp.Error)
}

func TestOpByNameCoversAllOps(t *testing.T) {
	for op := render.OpReload; op <= render.OpExit; op++ {
		got, ok := opByName(op.String())
		require.True(t, ok, op.String())
		assert.Equal(t, op, got)
	}
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reader.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func TestOCRInvoke(t *testing.T) {
	ocr := OCR{
		Program:    writeScript(t, `echo "42.7"`),
		ConfigPath: "control_ini.txt",
		Key:        "meter",
	}

	value, err := ocr.Invoke(context.Background(), "display.png")
	require.NoError(t, err)
	assert.Equal(t, "42.7", value)
}

func TestOCRInvokeNoReading(t *testing.T) {
	ocr := OCR{Program: writeScript(t, "exit 1")}

	_, err := ocr.Invoke(context.Background(), "display.png")
	assert.ErrorIs(t, err, ErrNoReading)
}

func TestOCRInvokeFailure(t *testing.T) {
	ocr := OCR{Program: writeScript(t, "exit 3")}

	_, err := ocr.Invoke(context.Background(), "display.png")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoReading)
}

func TestOCRInvokeTimeout(t *testing.T) {
	ocr := OCR{Program: writeScript(t, "sleep 10"), Timeout: 50 * time.Millisecond}

	_, err := ocr.Invoke(context.Background(), "display.png")
	assert.Error(t, err)
}
