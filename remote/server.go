// Copyright 2026 The Rewind Authors
// SPDX-License-Identifier: Apache-2.0

package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/rewind-foundation/rewind/history"
	"github.com/rewind-foundation/rewind/inspector"
	"github.com/rewind-foundation/rewind/lib/clock"
)

// Server accepts application connections and keeps a history log per
// session. The monitor embeds one Server and drives its sessions
// through Session methods (JumpTo, Commit, Reset, ImportArchive),
// which push dispatch frames back to the application's bridge.
type Server struct {
	// Address is the listen address. An address containing a path
	// separator binds a unix socket; anything else binds TCP.
	Address string

	// Logger receives structured log output. If nil, slog.Default()
	// is used. Per-frame events are logged at Debug level; errors and
	// lifecycle events at Info/Warn.
	Logger *slog.Logger

	// Clock supplies history timestamps. Defaults to clock.Real().
	Clock clock.Clock

	// HistoryLimit caps each session's retained actions. Zero means
	// unlimited.
	HistoryLimit int

	// OnSessionUpdate, when set, is called after a session's history
	// changes: connect, init, recorded action, commit, reset, import,
	// and disconnect. Called from connection goroutines; the callback
	// must be safe for concurrent use.
	OnSessionUpdate func(*Session)

	listener    net.Listener
	cancel      context.CancelFunc
	done        chan struct{}
	connections sync.WaitGroup

	sessionsMu sync.Mutex
	sessions   map[int64]*Session
	nextID     int64
}

// logger returns the configured logger or the default.
func (s *Server) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// Start binds the listener and begins accepting application
// connections. It returns once the listener is bound, or an error if
// binding fails. The server runs in the background until Stop is
// called or the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if s.Address == "" {
		return fmt.Errorf("remote: Address is required")
	}
	if s.Clock == nil {
		s.Clock = clock.Real()
	}

	listener, err := net.Listen(networkFor(s.Address), s.Address)
	if err != nil {
		return fmt.Errorf("remote: failed to listen on %s: %w", s.Address, err)
	}
	s.listener = listener
	s.sessions = make(map[int64]*Session)

	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		s.acceptLoop(ctx)
	}()

	s.logger().Info("monitor server started", "address", listener.Addr().String())
	return nil
}

// Addr returns the listener's address, useful when binding to port 0.
// Returns nil if the server has not been started.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop shuts down the server, closing the listener and every session
// connection, and waits for in-flight connection goroutines to drain.
func (s *Server) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.listener != nil {
		s.listener.Close()
	}

	s.sessionsMu.Lock()
	for _, session := range s.sessions {
		session.connection.Close()
	}
	s.sessionsMu.Unlock()

	if s.done != nil {
		<-s.done
	}
}

// Sessions returns the connected sessions ordered by ID.
func (s *Server) Sessions() []*Session {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	out := make([]*Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		out = append(out, session)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// Session returns the session with the given ID, if connected.
func (s *Server) Session(id int64) (*Session, bool) {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	session, ok := s.sessions[id]
	return session, ok
}

// acceptLoop accepts connections until the listener closes. It waits
// for all in-flight connection goroutines to finish before returning,
// so that closing the done channel signals full quiescence.
func (s *Server) acceptLoop(ctx context.Context) {
	for {
		connection, err := s.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				s.connections.Wait()
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				s.connections.Wait()
				return
			}
			s.logger().Error("accept failed", "error", err)
			continue
		}

		s.connections.Add(1)
		go func() {
			defer s.connections.Done()
			s.handleConnection(connection)
		}()
	}
}

// handleConnection owns one application connection: the hello
// handshake, the session registration, and the frame loop.
func (s *Server) handleConnection(connection net.Conn) {
	defer connection.Close()

	hello, err := ReadFrame(connection)
	if err != nil {
		s.logger().Debug("connection dropped before hello", "error", err)
		return
	}
	if hello.Type != FrameTypeHello {
		s.logger().Warn("first frame is not hello", "frame_type", hello.Type)
		return
	}
	var helloPayload HelloPayload
	if err := json.Unmarshal(hello.Payload, &helloPayload); err != nil {
		s.logger().Warn("malformed hello frame", "error", err)
		return
	}
	app := helloPayload.App
	if app == "" {
		app = "unnamed"
	}

	s.sessionsMu.Lock()
	s.nextID++
	session := &Session{
		id:         s.nextID,
		app:        app,
		server:     s,
		connection: connection,
		log:        history.NewLog(nil, history.Options{Clock: s.Clock, Limit: s.HistoryLimit}),
		logger:     s.logger().With("session_id", s.nextID, "app", app),
	}
	s.sessions[session.id] = session
	s.sessionsMu.Unlock()

	session.logger.Info("application connected", "remote_addr", connection.RemoteAddr())
	s.notify(session)

	s.frameLoop(session)

	s.sessionsMu.Lock()
	delete(s.sessions, session.id)
	s.sessionsMu.Unlock()
	session.logger.Info("application disconnected")
	s.notify(session)
}

// frameLoop processes application frames until the connection closes.
func (s *Server) frameLoop(session *Session) {
	for {
		frame, err := ReadFrame(session.connection)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				session.logger.Debug("session ended", "error", err)
			}
			return
		}

		switch frame.Type {
		case FrameTypeInit:
			var payload InitPayload
			if err := json.Unmarshal(frame.Payload, &payload); err != nil {
				session.logger.Warn("malformed init frame", "error", err)
				continue
			}
			if session.importEcho.CompareAndSwap(true, false) {
				session.logger.Debug("suppressed init echo after import")
				continue
			}
			session.log.Init(payload.State)
			session.logger.Debug("session initialized")
			s.notify(session)

		case FrameTypeAction:
			var payload ActionPayload
			if err := json.Unmarshal(frame.Payload, &payload); err != nil {
				session.logger.Warn("malformed action frame", "error", err)
				continue
			}
			entry := session.log.Append(payload.Label, payload.State)
			session.logger.Debug("action recorded", "label", entry.Label, "action_id", entry.ID)
			s.notify(session)

		case FrameTypeError:
			var payload ErrorPayload
			if err := json.Unmarshal(frame.Payload, &payload); err != nil {
				session.logger.Warn("malformed error frame", "error", err)
				continue
			}
			session.logger.Warn("application reported error", "message", payload.Message)

		default:
			session.logger.Debug("ignoring unexpected frame", "frame_type", frame.Type)
		}
	}
}

func (s *Server) notify(session *Session) {
	if s.OnSessionUpdate != nil {
		s.OnSessionUpdate(session)
	}
}

// Session is one connected application and its history log.
type Session struct {
	id         int64
	app        string
	server     *Server
	connection net.Conn
	log        *history.Log
	logger     *slog.Logger

	writeMu sync.Mutex

	// importEcho marks that an IMPORT_STATE dispatch is in flight. The
	// application's bridge answers an import by re-initializing, and
	// that init frame must not wipe the log the import just loaded.
	// The monitor-side counterpart of the bridge's travel guard.
	importEcho atomic.Bool
}

// ID returns the session's server-assigned identifier.
func (s *Session) ID() int64 { return s.id }

// App returns the application name from the hello handshake.
func (s *Session) App() string { return s.app }

// Log returns the session's history log.
func (s *Session) Log() *history.Log { return s.log }

// JumpTo moves the application to the state at the given timeline
// index (0 is the baseline). The history log is unchanged: jumping
// around a timeline does not rewrite it.
func (s *Session) JumpTo(index int) error {
	state, err := s.log.StateAt(index)
	if err != nil {
		return err
	}
	message, err := inspector.NewDispatchMessage(inspector.DispatchPayload{Type: inspector.DispatchJumpToAction}, state)
	if err != nil {
		return err
	}
	return s.sendMessage(message)
}

// Commit makes the session's current head the new baseline, drops the
// recorded actions, and tells the application's bridge to re-baseline.
func (s *Session) Commit() error {
	s.log.Commit()
	message, err := inspector.NewDispatchMessage(inspector.DispatchPayload{Type: inspector.DispatchCommit}, nil)
	if err != nil {
		return err
	}
	if err := s.sendMessage(message); err != nil {
		return err
	}
	s.server.notify(s)
	return nil
}

// Reset drops the recorded actions and rolls the application back to
// the baseline state.
func (s *Session) Reset() error {
	baseline := s.log.Reset()
	message, err := inspector.NewDispatchMessage(inspector.DispatchPayload{Type: inspector.DispatchJumpToState}, baseline)
	if err != nil {
		return err
	}
	if err := s.sendMessage(message); err != nil {
		return err
	}
	s.server.notify(s)
	return nil
}

// Export serializes the session's history into an archive.
func (s *Session) Export() ([]byte, error) {
	return s.log.Export(s.app)
}

// ImportArchive replaces the session's history from an archive and
// replays it into the application via an IMPORT_STATE dispatch.
func (s *Session) ImportArchive(data []byte) error {
	if _, err := s.log.Import(data); err != nil {
		return err
	}
	lifted := s.log.Lifted()
	message, err := inspector.NewDispatchMessage(inspector.DispatchPayload{
		Type:            inspector.DispatchImportState,
		NextLiftedState: &lifted,
	}, nil)
	if err != nil {
		return err
	}
	s.importEcho.Store(true)
	if err := s.sendMessage(message); err != nil {
		s.importEcho.Store(false)
		return err
	}
	s.server.notify(s)
	return nil
}

// sendMessage encodes an inspector message and pushes it to the
// application as a dispatch frame.
func (s *Session) sendMessage(message inspector.Message) error {
	encoded, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("remote: encoding dispatch message: %w", err)
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := WriteFrame(s.connection, NewDispatchFrame(encoded)); err != nil {
		return fmt.Errorf("remote: sending dispatch to %s: %w", s.app, err)
	}
	return nil
}
