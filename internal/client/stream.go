package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/meetai/meetai/internal/domain"
	"github.com/meetai/meetai/internal/server"
	"github.com/meetai/meetai/internal/version"
)

const handshakeTimeout = 10 * time.Second

// Stream is an open subscription to the change event stream.
type Stream struct {
	conn   *websocket.Conn
	connID string
	done   chan struct{}

	mu     sync.Mutex
	err    error
	closed bool
}

// ConnID is the server-assigned connection id.
func (s *Stream) ConnID() string { return s.connID }

// Done is closed when the stream ends.
func (s *Stream) Done() <-chan struct{} { return s.done }

// Err reports why the stream ended. It is nil after Close or context
// cancellation.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close ends the stream.
func (s *Stream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return s.conn.Close()
}

func (s *Stream) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.err = err
	}
}

// Subscribe connects to the event stream and calls fn for every change
// made to the signed-in user's data. The handshake completes before
// Subscribe returns; events are delivered from a separate goroutine until
// ctx is cancelled or Close is called.
func (c *Client) Subscribe(ctx context.Context, fn func(domain.ChangeEvent)) (*Stream, error) {
	wsURL, err := streamURL(c.baseURL)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	header.Set("User-Agent", version.UserAgent())
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, resp, err := dialer.DialContext(ctx, wsURL, header)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusTooManyRequests {
			return nil, domain.Unauthorized("Too many failed attempts, try again later")
		}
		return nil, &domain.Error{Kind: domain.KindServer, Message: "Could not reach the event stream", Err: err}
	}

	connID, err := c.handshake(conn)
	if err != nil {
		conn.Close()
		return nil, err
	}

	s := &Stream{conn: conn, connID: connID, done: make(chan struct{})}
	go func() {
		select {
		case <-ctx.Done():
			s.Close()
		case <-s.done:
		}
	}()
	go s.readLoop(fn)
	return s, nil
}

func (c *Client) handshake(conn *websocket.Conn) (string, error) {
	conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	defer conn.SetReadDeadline(time.Time{})

	var challenge server.Frame
	if err := conn.ReadJSON(&challenge); err != nil {
		return "", fmt.Errorf("reading challenge: %w", err)
	}
	if challenge.Type != server.FrameTypeEvent || challenge.Event != server.EventConnectChallenge {
		return "", fmt.Errorf("unexpected first frame %s/%s", challenge.Type, challenge.Event)
	}

	reqID := uuid.NewString()
	req, err := server.NewRequest(reqID, server.MethodConnect, server.ConnectParams{
		MinProtocol: server.ProtocolVersion,
		MaxProtocol: server.ProtocolVersion,
		Client: server.ClientInfo{
			ID:       "meetai-cli",
			Version:  version.Short(),
			Platform: runtime.GOOS + "/" + runtime.GOARCH,
		},
		Auth: &server.ConnectAuth{Token: c.token},
	})
	if err != nil {
		return "", err
	}
	if err := conn.WriteJSON(req); err != nil {
		return "", fmt.Errorf("sending connect: %w", err)
	}

	var resp server.Frame
	if err := conn.ReadJSON(&resp); err != nil {
		return "", fmt.Errorf("reading hello: %w", err)
	}
	if resp.Error != nil {
		return "", resp.Error.Err()
	}
	if resp.ID != reqID || resp.OK == nil || !*resp.OK {
		return "", errors.New("unexpected connect response")
	}
	var hello server.HelloOK
	if err := json.Unmarshal(resp.Payload, &hello); err != nil {
		return "", fmt.Errorf("parsing hello: %w", err)
	}
	c.log.Debug().Str("connId", hello.Server.ConnID).Str("serverVersion", hello.Server.Version).Msg("stream connected")
	return hello.Server.ConnID, nil
}

func (s *Stream) readLoop(fn func(domain.ChangeEvent)) {
	defer close(s.done)
	defer s.conn.Close()
	for {
		var f server.Frame
		if err := s.conn.ReadJSON(&f); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.fail(err)
			}
			return
		}
		if f.Type != server.FrameTypeEvent || f.Event != server.EventEntityChanged {
			continue
		}
		var ev domain.ChangeEvent
		if err := json.Unmarshal(f.Payload, &ev); err != nil {
			continue
		}
		fn(ev)
	}
}

// streamURL maps the server base URL to its /ws endpoint.
func streamURL(base string) (string, error) {
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://") + "/ws", nil
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://") + "/ws", nil
	default:
		return "", fmt.Errorf("server URL %q must start with http:// or https://", base)
	}
}
