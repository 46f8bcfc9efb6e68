package server

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/meetai/meetai/internal/logging"
)

// ErrClientClosed is returned by Send after Close.
var ErrClientClosed = errors.New("client connection closed")

var errBinaryFrame = errors.New("binary frames are not supported")

const writeWait = 10 * time.Second

// Client is one signed-in event stream connection. Writes are serialized;
// reads happen only on the connection's own read loop.
type Client struct {
	ConnID      string
	UserID      string
	Info        ClientInfo
	Socket      *websocket.Conn
	ConnectedAt time.Time

	mu     sync.Mutex
	closed bool
	log    *logging.Logger
}

// NewClient creates a Client for a connection that completed the handshake.
func NewClient(conn *websocket.Conn, userID string, info ClientInfo, log *logging.Logger) *Client {
	return &Client{
		ConnID:      uuid.New().String(),
		UserID:      userID,
		Info:        info,
		Socket:      conn,
		ConnectedAt: time.Now(),
		log:         log,
	}
}

// Send writes one frame with a write deadline.
func (c *Client) Send(frame Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClientClosed
	}
	c.Socket.SetWriteDeadline(time.Now().Add(writeWait))
	return c.Socket.WriteJSON(frame)
}

// Respond sends a success response for the given request ID.
func (c *Client) Respond(reqID string, payload any) error {
	f, err := NewResponse(reqID, payload)
	if err != nil {
		return err
	}
	return c.Send(f)
}

// RespondError sends an error response for the given request ID.
func (c *Client) RespondError(reqID string, errShape ErrorShape) error {
	return c.Send(NewErrorResponse(reqID, errShape))
}

// ReadFrame reads the next request frame. Binary messages are rejected.
func (c *Client) ReadFrame() (Frame, error) {
	kind, msg, err := c.Socket.ReadMessage()
	if err != nil {
		return Frame{}, err
	}
	if kind != websocket.TextMessage {
		return Frame{}, errBinaryFrame
	}
	var f Frame
	if err := json.Unmarshal(msg, &f); err != nil {
		return Frame{}, err
	}
	return f, nil
}

// Close closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.Socket.Close()
}

// ClientRegistry indexes open stream connections by connection ID and by
// the user they authenticated as.
type ClientRegistry struct {
	mu     sync.RWMutex
	byConn map[string]*Client
	byUser map[string]map[string]*Client
	log    *logging.Logger
}

// NewClientRegistry creates an empty client registry.
func NewClientRegistry(log *logging.Logger) *ClientRegistry {
	return &ClientRegistry{
		byConn: make(map[string]*Client),
		byUser: make(map[string]map[string]*Client),
		log:    log,
	}
}

// Add registers a connection that completed the handshake.
func (r *ClientRegistry) Add(c *Client) {
	r.mu.Lock()
	r.byConn[c.ConnID] = c
	conns := r.byUser[c.UserID]
	if conns == nil {
		conns = make(map[string]*Client)
		r.byUser[c.UserID] = conns
	}
	conns[c.ConnID] = c
	open := len(conns)
	r.mu.Unlock()

	r.log.Info().Str("connId", c.ConnID).Str("user", c.UserID).Str("client", c.Info.ID).Int("userConns", open).Msg("stream opened")
}

// Remove forgets a connection. Unknown IDs are ignored.
func (r *ClientRegistry) Remove(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byConn[connID]
	if !ok {
		return
	}
	delete(r.byConn, connID)
	if conns := r.byUser[c.UserID]; conns != nil {
		delete(conns, connID)
		if len(conns) == 0 {
			delete(r.byUser, c.UserID)
		}
	}
	r.log.Info().Str("connId", connID).Dur("open", time.Since(c.ConnectedAt)).Msg("stream closed")
}

// Get returns the connection with connID.
func (r *ClientRegistry) Get(connID string) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byConn[connID]
	return c, ok
}

// Count is the number of open connections.
func (r *ClientRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byConn)
}

// ForUser returns a snapshot of userID's connections.
func (r *ClientRegistry) ForUser(userID string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conns := r.byUser[userID]
	out := make([]*Client, 0, len(conns))
	for _, c := range conns {
		out = append(out, c)
	}
	return out
}

// SendToUser pushes an event to every connection of userID and returns how
// many accepted it. Failed connections are left for their read loop to
// clean up.
func (r *ClientRegistry) SendToUser(userID, event string, payload any, seq int64) int {
	f, err := NewEvent(event, payload, seq)
	if err != nil {
		r.log.Error().Err(err).Str("event", event).Msg("encoding event failed")
		return 0
	}
	sent := 0
	for _, c := range r.ForUser(userID) {
		if err := c.Send(f); err != nil {
			r.log.Warn().Err(err).Str("connId", c.ConnID).Msg("event send failed")
			continue
		}
		sent++
	}
	return sent
}

// CloseAll closes and forgets every connection.
func (r *ClientRegistry) CloseAll() {
	r.mu.Lock()
	conns := r.byConn
	r.byConn = make(map[string]*Client)
	r.byUser = make(map[string]map[string]*Client)
	r.mu.Unlock()

	for _, c := range conns {
		_ = c.Close()
	}
}
