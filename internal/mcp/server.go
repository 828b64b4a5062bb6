package mcp

import (
	"bufio"
	"bytes"
	"context"
	"log/slog"
	"net"
	"sync"
)

// maxLineBytes bounds a single line-delimited message.
const maxLineBytes = 1024 * 1024

// Server exposes a Dispatcher over line-delimited TCP: one JSON-RPC
// message per line in, one response per line out.
type Server struct {
	d      *Dispatcher
	addr   string
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	ln     net.Listener
	mu     sync.Mutex
	closed bool
	conns  map[net.Conn]struct{}
}

func NewServer(addr string, d *Dispatcher, logger *slog.Logger) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		d:      d,
		addr:   addr,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
		conns:  make(map[net.Conn]struct{}),
	}
}

func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Shutdown is called.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		ln.Close()
		return nil
	}
	s.ln = ln
	s.mu.Unlock()

	s.logger.Info("mcp tcp server starting", "addr", ln.Addr().String())

	for {
		conn, err := ln.Accept()
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()
			if closed {
				return nil
			}
			s.logger.Error("mcp accept error", "err", err)
			continue
		}
		if !s.track(conn) {
			conn.Close()
			return nil
		}
		go s.handleConn(conn)
	}
}

func (s *Server) Shutdown(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.cancel()
	for c := range s.conns {
		c.Close()
	}
	if s.ln != nil {
		return s.ln.Close()
	}
	return nil
}

func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
}

// handleConn serves one connection. Requests run under a context that is
// cancelled once the peer stops sending, so in-flight upstream calls for a
// departed client are abandoned.
func (s *Server) handleConn(conn net.Conn) {
	defer s.untrack(conn)
	defer conn.Close()

	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()

	lines := make(chan []byte)
	go func() {
		defer close(lines)
		defer cancel()

		scanner := bufio.NewScanner(conn)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
		for scanner.Scan() {
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}
			select {
			case lines <- bytes.Clone(line):
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			s.logger.Debug("mcp connection closed", "remote", conn.RemoteAddr().String(), "err", err)
		}
	}()

	for line := range lines {
		resp := s.d.Handle(ctx, line)
		if resp == nil {
			continue
		}
		if _, err := conn.Write(append(resp, '\n')); err != nil {
			s.logger.Debug("mcp write failed", "remote", conn.RemoteAddr().String(), "err", err)
			return
		}
	}
}
