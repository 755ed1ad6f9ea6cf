package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"

	"github.com/coder/websocket"
)

var (
	// ErrClosed is returned by sockets after Close.
	ErrClosed = errors.New("socket closed")
	// ErrNonText marks a frame that was not text. The socket stays usable.
	ErrNonText = errors.New("non-text frame")
)

type Socket interface {
	ReadText(ctx context.Context) (string, error)
	WriteText(ctx context.Context, text string) error
	Close() error
}

type Dialer interface {
	Dial(ctx context.Context, url string) (Socket, error)
}

// NormalizeURL accepts "host:port" as typed by a player and returns a ws URL.
func NormalizeURL(addr string) (string, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return "", errors.New("empty backend address")
	}
	if !strings.Contains(addr, "://") {
		addr = "ws://" + addr
	}
	u, err := url.Parse(addr)
	if err != nil {
		return "", fmt.Errorf("parse backend address: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("backend address %q has no host", addr)
	}
	return u.String(), nil
}

type WSDialer struct {
	// ReadLimit caps a single inbound frame. Zero keeps the library default.
	ReadLimit int64
}

func (d WSDialer) Dial(ctx context.Context, url string) (Socket, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	if d.ReadLimit > 0 {
		conn.SetReadLimit(d.ReadLimit)
	}
	return &wsSocket{conn: conn}, nil
}

type wsSocket struct {
	conn      *websocket.Conn
	closeOnce sync.Once
}

func (s *wsSocket) ReadText(ctx context.Context) (string, error) {
	typ, data, err := s.conn.Read(ctx)
	if err != nil {
		if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
			return "", io.EOF
		}
		return "", err
	}
	if typ != websocket.MessageText {
		return "", fmt.Errorf("%w: %d bytes", ErrNonText, len(data))
	}
	return string(data), nil
}

func (s *wsSocket) WriteText(ctx context.Context, text string) error {
	return s.conn.Write(ctx, websocket.MessageText, []byte(text))
}

// Close abandons in-flight reads instead of waiting for the close handshake.
func (s *wsSocket) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.conn.CloseNow()
	})
	return err
}
