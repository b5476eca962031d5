// Copyright 2026 The Rewind Authors
// SPDX-License-Identifier: Apache-2.0

package remote

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/rewind-foundation/rewind/inspector"
	"github.com/rewind-foundation/rewind/store"
)

// dialTimeout bounds how long Connect waits for the monitor socket.
const dialTimeout = 5 * time.Second

// Connector dials a Rewind monitor over a socket. It implements
// inspector.Connector, so an application wires remote inspection by
// passing a Connector (or registering it with inspector.Register) and
// attaching its bridge as usual.
type Connector struct {
	// Address is the monitor's listen address. An address containing
	// a path separator dials a unix socket; anything else dials TCP.
	Address string

	// Logger receives structured log output. If nil, slog.Default()
	// is used.
	Logger *slog.Logger
}

// Connect dials the monitor, sends the hello frame, and returns the
// session handle.
func (c *Connector) Connect(options inspector.Options) (inspector.Handle, error) {
	if c.Address == "" {
		return nil, fmt.Errorf("remote: Address is required")
	}

	connection, err := net.DialTimeout(networkFor(c.Address), c.Address, dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("remote: dialing monitor at %s: %w", c.Address, err)
	}

	hello, err := NewHelloFrame(options.Name)
	if err != nil {
		connection.Close()
		return nil, fmt.Errorf("remote: %w", err)
	}
	if err := WriteFrame(connection, hello); err != nil {
		connection.Close()
		return nil, fmt.Errorf("remote: sending hello: %w", err)
	}

	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &handle{
		connection: connection,
		logger:     logger.With("app", options.Name, "address", c.Address),
	}, nil
}

// networkFor picks the dial network for an address: unix for paths,
// tcp for host:port.
func networkFor(address string) string {
	if strings.ContainsRune(address, '/') {
		return "unix"
	}
	return "tcp"
}

// handle is the application side of one monitor session. Writes are
// serialized by writeMu; a single read loop delivers dispatch frames
// to the subscribed handler.
type handle struct {
	connection net.Conn
	logger     *slog.Logger

	writeMu sync.Mutex

	handlerMu sync.Mutex
	handler   func(inspector.Message)
	reading   bool

	closeOnce sync.Once
}

var _ inspector.Handle = (*handle)(nil)

// Init seeds the monitor's history log with state.
func (h *handle) Init(state store.Snapshot) {
	frame, err := NewInitFrame(state)
	if err != nil {
		h.logger.Warn("encoding init frame failed", "error", err)
		return
	}
	h.write(frame)
}

// Send records an action on the monitor's history log.
func (h *handle) Send(label string, state store.Snapshot) {
	frame, err := NewActionFrame(label, state)
	if err != nil {
		h.logger.Warn("encoding action frame failed", "error", err)
		return
	}
	h.write(frame)
}

// Error reports a non-fatal condition to the monitor.
func (h *handle) Error(message string) {
	frame, err := NewErrorFrame(message)
	if err != nil {
		h.logger.Warn("encoding error frame failed", "error", err)
		return
	}
	h.write(frame)
}

// Subscribe starts the read loop (once) and delivers dispatch frames
// to handler. The returned function stops delivery; the connection
// stays open for outbound frames until Unsubscribe.
func (h *handle) Subscribe(handler func(inspector.Message)) (unsubscribe func()) {
	h.handlerMu.Lock()
	h.handler = handler
	startLoop := !h.reading
	h.reading = true
	h.handlerMu.Unlock()

	if startLoop {
		go h.readLoop()
	}
	return func() {
		h.handlerMu.Lock()
		h.handler = nil
		h.handlerMu.Unlock()
	}
}

// Unsubscribe tears down the session and closes the connection.
func (h *handle) Unsubscribe() {
	h.closeOnce.Do(func() {
		h.connection.Close()
	})
}

func (h *handle) write(frame Frame) {
	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	if err := WriteFrame(h.connection, frame); err != nil {
		h.logger.Warn("writing frame to monitor failed", "error", err)
	}
}

// readLoop reads monitor frames until the connection closes. Dispatch
// frames are parsed as inspector messages and handed to the current
// handler; error frames are logged; anything else is ignored.
func (h *handle) readLoop() {
	for {
		frame, err := ReadFrame(h.connection)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				h.logger.Debug("session read loop ended", "error", err)
			}
			return
		}

		switch frame.Type {
		case FrameTypeDispatch:
			message, err := inspector.ParseMessage(frame.Payload)
			if err != nil {
				h.logger.Warn("malformed dispatch frame from monitor", "error", err)
				continue
			}
			h.handlerMu.Lock()
			handler := h.handler
			h.handlerMu.Unlock()
			if handler != nil {
				handler(message)
			}

		case FrameTypeError:
			var payload ErrorPayload
			if err := json.Unmarshal(frame.Payload, &payload); err != nil {
				h.logger.Warn("malformed error frame from monitor", "error", err)
				continue
			}
			h.logger.Warn("monitor reported error", "message", payload.Message)

		default:
			h.logger.Debug("ignoring unexpected frame from monitor", "frame_type", frame.Type)
		}
	}
}
