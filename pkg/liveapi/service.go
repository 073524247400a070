// Package liveapi exposes the latest poll result over HTTP and pushes
// every new result to websocket subscribers.
package liveapi

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/DeltaHotelKilo/DWS7612-Logger/pkg/collector"
	"github.com/DeltaHotelKilo/DWS7612-Logger/pkg/interpreter"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // LAN-only deployment
	},
}

type Server struct {
	collector *collector.Collector

	wsClients      map[*websocket.Conn]*wsClient
	wsClientsMutex sync.RWMutex
}

// wsClient serializes writes to one connection; gorilla/websocket
// does not allow concurrent writers.
type wsClient struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *wsClient) write(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func NewServer(c *collector.Collector) *Server {
	return &Server{
		collector: c,
		wsClients: make(map[*websocket.Conn]*wsClient),
	}
}

// ListenAndServe blocks serving the API; call from a goroutine.
func (s *Server) ListenAndServe(addr string) error {
	log.Printf("Starting live readings API on %s", addr)
	return http.ListenAndServe(addr, s.Handler())
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		response := map[string]string{
			"message": "DWS7612 Meter Logger API",
			"status":  "running",
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	})

	mux.HandleFunc("/latest", func(w http.ResponseWriter, r *http.Request) {
		result := s.collector.GetLatestResult()
		w.Header().Set("Content-Type", "application/json")
		if result == nil {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{
				"error": "No readings available yet",
			})
			return
		}
		w.Write(result.ToJsonBytes())
	})

	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("WebSocket upgrade error: %v", err)
			return
		}

		client := s.addWebSocketClient(conn)

		// Send current result immediately if available
		if result := s.collector.GetLatestResult(); result != nil {
			client.write(result.ToJsonBytes())
		}

		// Keep connection alive
		for {
			_, _, err := conn.ReadMessage()
			if err != nil {
				s.removeWebSocketClient(conn)
				break
			}
		}
	})

	return mux
}

// Broadcast pushes a poll result to all websocket subscribers. Wired
// as the collector's OnResult hook.
func (s *Server) Broadcast(result *interpreter.PollResult) {
	s.wsClientsMutex.RLock()
	clients := make([]*wsClient, 0, len(s.wsClients))
	for _, client := range s.wsClients {
		clients = append(clients, client)
	}
	s.wsClientsMutex.RUnlock()

	payload := result.ToJsonBytes()
	for _, client := range clients {
		if err := client.write(payload); err != nil {
			s.removeWebSocketClient(client.conn)
		}
	}
}

func (s *Server) addWebSocketClient(conn *websocket.Conn) *wsClient {
	client := &wsClient{conn: conn}
	s.wsClientsMutex.Lock()
	s.wsClients[conn] = client
	s.wsClientsMutex.Unlock()
	return client
}

func (s *Server) removeWebSocketClient(conn *websocket.Conn) {
	s.wsClientsMutex.Lock()
	delete(s.wsClients, conn)
	s.wsClientsMutex.Unlock()
	conn.Close()
}
