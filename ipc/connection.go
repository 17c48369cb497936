package ipc

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
)

// Handler processes a received envelope. Return nil to send no reply.
type Handler func(env Envelope) (*Envelope, error)

// Connection is one host session. Host is filled in by the hello
// handshake.
type Connection struct {
	conn     net.Conn
	mu       sync.Mutex // serializes writes
	handlers map[string]Handler
	Host     string
}

func NewConnection(conn net.Conn, handlers map[string]Handler) *Connection {
	if handlers == nil {
		handlers = make(map[string]Handler)
	}
	return &Connection{
		conn:     conn,
		handlers: handlers,
	}
}

func (c *Connection) RegisterHandler(msgType string, handler Handler) {
	c.handlers[msgType] = handler
}

func (c *Connection) Send(msgType string, data any) error {
	env, err := NewEnvelope(msgType, data)
	if err != nil {
		return err
	}
	return c.write(env)
}

func (c *Connection) write(env Envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return WriteEnvelope(c.conn, env)
}

// Close ends the session; ReadLoop returns once the read fails.
func (c *Connection) Close() error { return c.conn.Close() }

// ReadLoop blocks until the connection closes or errors. It owns the conn
// lifetime. A handler error is reported to the host as an error message
// and the loop carries on.
func (c *Connection) ReadLoop() {
	defer c.conn.Close()

	for {
		env, err := ReadEnvelope(c.conn)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				slog.Info("connection closed", "host", c.Host)
			} else {
				slog.Warn("connection read ended", "host", c.Host, "error", err)
			}
			return
		}

		handler, ok := c.handlers[env.Type]
		if !ok {
			slog.Warn("no handler for message type", "type", env.Type)
			if err := c.Send(TypeError, ErrorMessage{Type: env.Type, Error: "unsupported message type"}); err != nil {
				return
			}
			continue
		}

		resp, err := handler(env)
		if err != nil {
			slog.Error("handler error", "type", env.Type, "error", err)
			msg := ErrorMessage{RequestID: requestID(env), Type: env.Type, Error: err.Error()}
			if err := c.Send(TypeError, msg); err != nil {
				slog.Error("failed to send error", "type", env.Type, "error", err)
				return
			}
			continue
		}

		if resp != nil {
			if err := c.write(*resp); err != nil {
				slog.Error("failed to send response", "type", resp.Type, "error", err)
				return
			}
			slog.Debug("sent response", "type", resp.Type, "host", c.Host)
		}
	}
}

// requestID digs the correlation id out of a request that failed to
// decode or to run.
func requestID(env Envelope) string {
	var r struct {
		RequestID string `json:"requestId"`
	}
	_ = json.Unmarshal(env.Data, &r)
	return r.RequestID
}
