package liveapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DeltaHotelKilo/DWS7612-Logger/pkg/collector"
	"github.com/DeltaHotelKilo/DWS7612-Logger/pkg/interpreter"
	"github.com/DeltaHotelKilo/DWS7612-Logger/pkg/sml"
)

// repeatChannel serves the same frame on every cycle.
type repeatChannel struct {
	frame []byte
	sent  bool
}

func (c *repeatChannel) Read(p []byte) (int, error) {
	if c.sent {
		c.sent = false
		return 0, io.EOF
	}
	c.sent = true
	return copy(p, c.frame), nil
}

func energyFrame(t *testing.T) []byte {
	t.Helper()
	entry := sml.Node{Type: sml.TypeList, Children: []sml.Node{
		{Type: sml.TypeOctetString, Bytes: interpreter.PositiveActiveEnergy[:]},
		{Type: sml.TypeUnsigned, Uint: 0},
		{Type: sml.TypeOctetString},
		{Type: sml.TypeUnsigned, Uint: 30},
		{Type: sml.TypeInteger, Int: -3},
		{Type: sml.TypeInteger, Int: 2810000},
		{Type: sml.TypeOctetString},
	}}
	payload, err := sml.Marshal(&entry)
	require.NoError(t, err)
	return sml.BuildFrame(append(payload, 0x00))
}

func newTestCollector(t *testing.T) *collector.Collector {
	t.Helper()
	registers := []collector.Register{
		{OBIS: interpreter.PositiveActiveEnergy, EntityID: 2},
	}
	return collector.New(&repeatChannel{frame: energyFrame(t)}, registers, nil, collector.Options{
		Interval:    5 * time.Millisecond,
		ReadTimeout: 50 * time.Millisecond,
	})
}

// runOneCycle drives the collector through a single cycle so the
// latest result slot is populated, the way the daemon does.
func runOneCycle(t *testing.T, c *collector.Collector) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	c.OnResult(func(*interpreter.PollResult) { cancel() })
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("collector did not complete a cycle")
	}
}

func TestLatestBeforeFirstCycle(t *testing.T) {
	c := newTestCollector(t)
	srv := httptest.NewServer(NewServer(c).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/latest")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestLatestAfterCycle(t *testing.T) {
	c := newTestCollector(t)
	runOneCycle(t, c)

	srv := httptest.NewServer(NewServer(c).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/latest")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result interpreter.PollResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.True(t, result.Success)
	require.Len(t, result.Readings, 1)
	assert.InDelta(t, 2810.0, result.Readings[0].Value, 1e-9)
}

func TestWebSocketBroadcast(t *testing.T) {
	c := newTestCollector(t)
	api := NewServer(c)
	srv := httptest.NewServer(api.Handler())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Give the server a beat to register the client.
	time.Sleep(50 * time.Millisecond)

	result := &interpreter.PollResult{
		Timestamp: time.Now(),
		Success:   true,
		Readings: []interpreter.Reading{{
			OBIS:  interpreter.PositiveActiveEnergy,
			Raw:   2810000,
			Value: 2810.0,
		}},
	}
	api.Broadcast(result)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var got interpreter.PollResult
	require.NoError(t, json.Unmarshal(msg, &got))
	assert.True(t, got.Success)
	require.Len(t, got.Readings, 1)
	assert.Equal(t, interpreter.PositiveActiveEnergy, got.Readings[0].OBIS)
	assert.InDelta(t, 2810.0, got.Readings[0].Value, 1e-9)
}

// A client connecting while broadcasts are in flight races the welcome
// message against Broadcast on the same connection. Writes are
// serialized per client, so every delivered message must be intact.
func TestBroadcastDuringConnect(t *testing.T) {
	c := newTestCollector(t)
	runOneCycle(t, c)

	api := NewServer(c)
	srv := httptest.NewServer(api.Handler())
	defer srv.Close()

	result := &interpreter.PollResult{
		Timestamp: time.Now(),
		Success:   true,
		Readings: []interpreter.Reading{{
			OBIS:  interpreter.PositiveActiveEnergy,
			Raw:   2810000,
			Value: 2810.0,
		}},
	}

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					api.Broadcast(result)
				}
			}
		}()
	}

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	for i := 0; i < 20; i++ {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, msg, err := conn.ReadMessage()
		require.NoError(t, err)
		var got interpreter.PollResult
		require.NoError(t, json.Unmarshal(msg, &got))
		require.Len(t, got.Readings, 1)
	}

	close(stop)
	wg.Wait()
}
