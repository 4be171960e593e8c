package server

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ln-relay-lab/internal/domain"
	"ln-relay-lab/internal/experiment"
	"ln-relay-lab/internal/sampling"
	"ln-relay-lab/internal/storage/memory"
)

var _ experiment.Observer = (*Hub)(nil)

// wireMessage decodes a hub frame keeping the payload raw.
type wireMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func dial(t *testing.T, srv *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) wireMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg wireMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestHub_Broadcast(t *testing.T) {
	hub := NewHub(quietLogger())
	srv := httptest.NewServer(hub)
	defer srv.Close()

	a := dial(t, srv, "/")
	b := dial(t, srv, "/")
	require.Eventually(t, func() bool { return hub.Subscribers() == 2 }, 5*time.Second, 10*time.Millisecond)

	hub.OnPoint(domain.SeriesPoint{RunID: "r", Index: 1, Value: 2.5, Succeeded: true, MeanBalance: -4})

	for _, conn := range []*websocket.Conn{a, b} {
		msg := readMessage(t, conn)
		require.Equal(t, MessagePoint, msg.Type)
		var p PointView
		require.NoError(t, json.Unmarshal(msg.Data, &p))
		assert.Equal(t, 1, p.Index)
		assert.Equal(t, number(2.5), p.Value)
		assert.True(t, p.Succeeded)
	}

	hub.OnRunCompleted(domain.RunSummary{RunID: "r", ConfigID: "c", Config: domain.PresetConfigNoLiquidity})
	msg := readMessage(t, a)
	require.Equal(t, MessageRunCompleted, msg.Type)
	var run RunView
	require.NoError(t, json.Unmarshal(msg.Data, &run))
	assert.Equal(t, "c", run.ConfigID)

	require.NoError(t, b.Close())
	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, 5*time.Second, 10*time.Millisecond)
}

func TestHub_NoSubscribers(t *testing.T) {
	hub := NewHub(quietLogger())
	hub.OnPoint(domain.SeriesPoint{Index: 1})
	assert.Zero(t, hub.Dropped())
}

func TestHub_Close(t *testing.T) {
	hub := NewHub(quietLogger())
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dial(t, srv, "/")
	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, 5*time.Second, 10*time.Millisecond)

	hub.Close()
	assert.Zero(t, hub.Subscribers())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}

// TestStreamRun drives a real run through POST /runs and follows it on /ws.
func TestStreamRun(t *testing.T) {
	hub := NewHub(quietLogger())
	runs := memory.NewRunStore()
	runner := experiment.NewRunner(experiment.RunnerOptions{
		RunStore:  runs,
		Observers: []experiment.Observer{hub},
		Logger:    quietLogger(),
	})
	s := New(Options{Runs: runs, Executor: runner, Hub: hub, Logger: quietLogger()})
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()
	defer s.stopRuns()

	conn := dial(t, srv, "/ws")
	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, 5*time.Second, 10*time.Millisecond)

	body := `{"preset":"fee-only","transactions":5,"seed":9,"value_min":1,"value_max":2}`
	resp, err := srv.Client().Post(srv.URL+"/runs", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	var started StartRunResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&started))
	resp.Body.Close()

	for i := 0; i <= 5; i++ {
		msg := readMessage(t, conn)
		require.Equal(t, MessagePoint, msg.Type)
		var p PointView
		require.NoError(t, json.Unmarshal(msg.Data, &p))
		assert.Equal(t, i, p.Index)
		assert.Equal(t, started.RunID, p.RunID)
	}

	msg := readMessage(t, conn)
	require.Equal(t, MessageRunCompleted, msg.Type)
	var run RunView
	require.NoError(t, json.Unmarshal(msg.Data, &run))
	assert.Equal(t, started.RunID, run.RunID)
	assert.Equal(t, 5, run.Succeeded, "fee-only runs never fail")

	stored, err := runs.GetByID(context.Background(), started.RunID)
	require.NoError(t, err)
	assert.Equal(t, sampling.Config{Kind: sampling.KindUniform, Min: 1, Max: 2}.String(), stored.Values)
}
