package watch

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ReloadServer pushes re-extraction events to WebSocket clients
type ReloadServer struct {
	connections map[*websocket.Conn]bool
	broadcast   chan *ReloadMessage
	register    chan *websocket.Conn
	unregister  chan *websocket.Conn
	done        chan struct{}
	closeOnce   sync.Once
	mutex       sync.RWMutex
	upgrader    websocket.Upgrader
	logger      *zap.Logger
	now         func() time.Time
}

// ReloadMessage is the JSON payload sent to clients
type ReloadMessage struct {
	Type        string     `json:"type"` // "reload" or "error"
	Timestamp   int64      `json:"timestamp"`
	Files       []string   `json:"files,omitempty"`
	Definitions int        `json:"definitions,omitempty"`
	Duration    float64    `json:"duration,omitempty"` // Milliseconds
	Error       *ErrorInfo `json:"error,omitempty"`
}

// ErrorInfo describes a failed re-extraction
type ErrorInfo struct {
	Message string `json:"message"`
	File    string `json:"file,omitempty"`
	Path    string `json:"path,omitempty"`
}

// NewReloadServer creates a reload server and starts its dispatch loop
func NewReloadServer(logger *zap.Logger) *ReloadServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	rs := &ReloadServer{
		connections: make(map[*websocket.Conn]bool),
		broadcast:   make(chan *ReloadMessage, 256),
		register:    make(chan *websocket.Conn),
		unregister:  make(chan *websocket.Conn),
		done:        make(chan struct{}),
		logger:      logger,
		now:         time.Now,
		upgrader: websocket.Upgrader{
			CheckOrigin:     localOrigin,
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}

	go rs.run()

	return rs
}

// localOrigin accepts same-origin requests and localhost pages only
func localOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, prefix := range []string{"http://localhost", "https://localhost", "http://127.0.0.1", "https://127.0.0.1"} {
		if strings.HasPrefix(origin, prefix) {
			return true
		}
	}
	return false
}

func (rs *ReloadServer) run() {
	for {
		select {
		case <-rs.done:
			rs.logger.Debug("reload server stopped")
			return

		case conn := <-rs.register:
			rs.mutex.Lock()
			rs.connections[conn] = true
			total := len(rs.connections)
			rs.mutex.Unlock()
			rs.logger.Debug("client connected", zap.Int("total", total))

		case conn := <-rs.unregister:
			rs.mutex.Lock()
			if _, ok := rs.connections[conn]; ok {
				delete(rs.connections, conn)
				conn.Close()
			}
			total := len(rs.connections)
			rs.mutex.Unlock()
			rs.logger.Debug("client disconnected", zap.Int("total", total))

		case message := <-rs.broadcast:
			rs.sendToAll(message)
		}
	}
}

func (rs *ReloadServer) sendToAll(message *ReloadMessage) {
	payload, err := json.Marshal(message)
	if err != nil {
		rs.logger.Error("failed to marshal reload message", zap.Error(err))
		return
	}

	rs.mutex.RLock()
	var failed []*websocket.Conn
	for conn := range rs.connections {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			rs.logger.Debug("failed to send reload message", zap.Error(err))
			failed = append(failed, conn)
		}
	}
	rs.mutex.RUnlock()

	if len(failed) > 0 {
		rs.mutex.Lock()
		for _, conn := range failed {
			if _, ok := rs.connections[conn]; ok {
				conn.Close()
				delete(rs.connections, conn)
			}
		}
		rs.mutex.Unlock()
	}
}

// HandleWebSocket upgrades HTTP connections to WebSocket
func (rs *ReloadServer) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := rs.upgrader.Upgrade(w, r, nil)
	if err != nil {
		rs.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	select {
	case rs.register <- conn:
	case <-rs.done:
		conn.Close()
		return
	}

	go rs.readMessages(conn)
}

// readMessages drains the client side to observe pongs and close frames
func (rs *ReloadServer) readMessages(conn *websocket.Conn) {
	defer func() {
		select {
		case rs.unregister <- conn:
		case <-rs.done:
		}
	}()

	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				rs.logger.Debug("websocket error", zap.Error(err))
			}
			return
		}
	}
}

func (rs *ReloadServer) send(msg *ReloadMessage) {
	msg.Timestamp = rs.now().Unix()
	select {
	case rs.broadcast <- msg:
	case <-rs.done:
	}
}

// NotifyReload announces a successful re-extraction
func (rs *ReloadServer) NotifyReload(files []string, definitions int, duration time.Duration) {
	rs.send(&ReloadMessage{
		Type:        "reload",
		Files:       files,
		Definitions: definitions,
		Duration:    float64(duration.Milliseconds()),
	})
}

// NotifyError announces a failed re-extraction
func (rs *ReloadServer) NotifyError(info *ErrorInfo) {
	rs.send(&ReloadMessage{
		Type:  "error",
		Error: info,
	})
}

// ConnectionCount returns the number of active connections
func (rs *ReloadServer) ConnectionCount() int {
	rs.mutex.RLock()
	defer rs.mutex.RUnlock()
	return len(rs.connections)
}

// Close closes all connections and stops the server. It is safe to call
// more than once.
func (rs *ReloadServer) Close() {
	rs.closeOnce.Do(func() {
		close(rs.done)
	})

	rs.mutex.Lock()
	defer rs.mutex.Unlock()

	for conn := range rs.connections {
		conn.Close()
	}
	rs.connections = make(map[*websocket.Conn]bool)
}
