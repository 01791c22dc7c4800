package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamConfig_SetDefaults(t *testing.T) {
	t.Run("sets_default_values", func(t *testing.T) {
		config := StreamConfig{}
		config.SetDefaults()

		assert.Equal(t, 100, config.BufferSize)
		assert.Equal(t, 2*time.Second, config.ReconnectDelay)
		assert.Equal(t, 0, config.MaxReconnectAttempts) // 0 = infinite
	})

	t.Run("preserves_custom_values", func(t *testing.T) {
		config := StreamConfig{
			Topic:                "mesh/nodes",
			BufferSize:           200,
			ReconnectDelay:       5 * time.Second,
			MaxReconnectAttempts: 3,
		}
		config.SetDefaults()

		assert.Equal(t, "mesh/nodes", config.Topic)
		assert.Equal(t, 200, config.BufferSize)
		assert.Equal(t, 5*time.Second, config.ReconnectDelay)
		assert.Equal(t, 3, config.MaxReconnectAttempts)
	})
}

func TestClient_Stream(t *testing.T) {
	t.Run("requires_authentication", func(t *testing.T) {
		config := Config{
			ServerURL: "http://localhost:8080",
			ClientID:  "test-client",
		}
		client, err := NewClient(config)
		require.NoError(t, err)

		// Don't set token - client is not authenticated
		streamConfig := StreamConfig{Topic: "mesh/nodes"}
		streamClient, err := client.Stream(context.Background(), streamConfig)

		assert.Error(t, err)
		assert.Nil(t, streamClient)
		assert.Contains(t, err.Error(), "client not authenticated")
	})

	t.Run("sends_topic_and_filter_params", func(t *testing.T) {
		gotQuery := make(chan map[string]string, 1)
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			gotQuery <- map[string]string{
				"topic":    q.Get("topic"),
				"types":    q.Get("types"),
				"sources":  q.Get("sources"),
				"minDelta": q.Get("minDelta"),
			}
			w.Header().Set("Content-Type", "text/event-stream")
			w.WriteHeader(http.StatusOK)
			time.Sleep(100 * time.Millisecond)
		}))
		defer server.Close()

		client := newAuthenticatedClient(t, server.URL)

		minDelta := 1.5
		streamClient, err := client.Stream(context.Background(), StreamConfig{
			Topic: "mesh/nodes",
			Filter: &EventFilter{
				Types:              []string{"node:online"},
				Sources:            []string{"node-1"},
				MinMagnitudeChange: &minDelta,
			},
		})
		require.NoError(t, err)
		defer streamClient.Close()

		select {
		case q := <-gotQuery:
			assert.Equal(t, "mesh/nodes", q["topic"])
			assert.Equal(t, "node:online", q["types"])
			assert.Equal(t, "node-1", q["sources"])
			assert.Equal(t, "1.5", q["minDelta"])
		case <-time.After(2 * time.Second):
			t.Fatal("server never saw the stream request")
		}
	})
}

func TestStreamClient_SSEProcessing(t *testing.T) {
	t.Run("receives_event_frames", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/event-stream")
			w.WriteHeader(http.StatusOK)
			flusher := w.(http.Flusher)

			fmt.Fprint(w, ": stream established\n\n")
			flusher.Flush()

			for i := 0; i < 3; i++ {
				data, _ := json.Marshal(StreamMessage{
					Kind:    "event",
					EventID: fmt.Sprintf("event-%d", i),
					Topic:   "mesh/nodes",
					Type:    "node:online",
					Source:  fmt.Sprintf("node-%d", i),
				})
				fmt.Fprintf(w, "data: %s\n\n", data)
				flusher.Flush()
			}

			// Hold the connection open briefly.
			time.Sleep(200 * time.Millisecond)
		}))
		defer server.Close()

		client := newAuthenticatedClient(t, server.URL)

		streamClient, err := client.Stream(context.Background(), StreamConfig{Topic: "mesh/nodes"})
		require.NoError(t, err)
		defer streamClient.Close()

		for i := 0; i < 3; i++ {
			select {
			case msg := <-streamClient.Messages():
				assert.Equal(t, "event", msg.Kind)
				assert.Equal(t, fmt.Sprintf("event-%d", i), msg.EventID)
				assert.Equal(t, "mesh/nodes", msg.Topic)
			case <-time.After(2 * time.Second):
				t.Fatalf("timed out waiting for frame %d", i)
			}
		}
	})

	t.Run("receives_snapshot_frame", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/event-stream")
			w.WriteHeader(http.StatusOK)
			flusher := w.(http.Flusher)

			data, _ := json.Marshal(StreamMessage{
				Kind: "snapshot",
				Snapshot: &Snapshot{
					TotalEvents: 7,
					OnlineNodes: 2,
				},
			})
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
			time.Sleep(200 * time.Millisecond)
		}))
		defer server.Close()

		client := newAuthenticatedClient(t, server.URL)

		streamClient, err := client.Stream(context.Background(), StreamConfig{})
		require.NoError(t, err)
		defer streamClient.Close()

		select {
		case msg := <-streamClient.Messages():
			assert.Equal(t, "snapshot", msg.Kind)
			require.NotNil(t, msg.Snapshot)
			assert.Equal(t, int64(7), msg.Snapshot.TotalEvents)
			assert.Equal(t, 2, msg.Snapshot.OnlineNodes)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for snapshot frame")
		}
	})

	t.Run("skips_keepalive_comments", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/event-stream")
			w.WriteHeader(http.StatusOK)
			flusher := w.(http.Flusher)

			fmt.Fprint(w, ": ping\n\n")
			data, _ := json.Marshal(StreamMessage{Kind: "event", EventID: "event-1"})
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
			time.Sleep(200 * time.Millisecond)
		}))
		defer server.Close()

		client := newAuthenticatedClient(t, server.URL)

		streamClient, err := client.Stream(context.Background(), StreamConfig{})
		require.NoError(t, err)
		defer streamClient.Close()

		select {
		case msg := <-streamClient.Messages():
			assert.Equal(t, "event-1", msg.EventID)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for event frame")
		}
	})
}

func TestStreamClient_Reconnection(t *testing.T) {
	t.Run("reports_max_attempts_exceeded", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		client := newAuthenticatedClient(t, server.URL)

		streamClient, err := client.Stream(context.Background(), StreamConfig{
			ReconnectDelay:       10 * time.Millisecond,
			MaxReconnectAttempts: 2,
		})
		require.NoError(t, err)
		defer streamClient.Close()

		sawMaxAttempts := false
		deadline := time.After(5 * time.Second)
		for !sawMaxAttempts {
			select {
			case err, ok := <-streamClient.Errors():
				if !ok {
					t.Fatal("error channel closed without max-attempts error")
				}
				if strings.Contains(err.Error(), "max reconnect attempts") {
					sawMaxAttempts = true
				}
			case <-deadline:
				t.Fatal("timed out waiting for reconnect failure")
			}
		}

		select {
		case <-streamClient.Done():
		case <-time.After(2 * time.Second):
			t.Fatal("stream did not shut down after giving up")
		}
	})
}

func TestStreamClient_Lifecycle(t *testing.T) {
	t.Run("close_is_clean", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/event-stream")
			w.WriteHeader(http.StatusOK)
			w.(http.Flusher).Flush()
			<-r.Context().Done()
		}))
		defer server.Close()

		client := newAuthenticatedClient(t, server.URL)

		streamClient, err := client.Stream(context.Background(), StreamConfig{})
		require.NoError(t, err)

		// Give the stream a moment to connect, then close.
		time.Sleep(50 * time.Millisecond)
		require.NoError(t, streamClient.Close())

		select {
		case <-streamClient.Done():
		case <-time.After(2 * time.Second):
			t.Fatal("stream did not shut down after Close")
		}
	})

	t.Run("context_cancellation_stops_stream", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/event-stream")
			w.WriteHeader(http.StatusOK)
			w.(http.Flusher).Flush()
			<-r.Context().Done()
		}))
		defer server.Close()

		client := newAuthenticatedClient(t, server.URL)

		ctx, cancel := context.WithCancel(context.Background())
		streamClient, err := client.Stream(ctx, StreamConfig{})
		require.NoError(t, err)

		time.Sleep(50 * time.Millisecond)
		cancel()

		select {
		case <-streamClient.Done():
		case <-time.After(2 * time.Second):
			t.Fatal("stream did not shut down after context cancel")
		}
	})
}
