// Package diceserver is an in-memory DiceDB subset for tests. It speaks the same
// framing and envelope as a real server on a loopback listener.
package diceserver

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"hash/fnv"
	"net"
	"os"
	"slices"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/dicewire/internal/protocol/frame"
	"github.com/danmuck/dicewire/proto"
)

// Action overrides the default handling of one command. The zero value means
// "handle normally".
type Action struct {
	Result *proto.Result
	// Drop resets the connection without replying.
	Drop bool
}

// Hook sees every command after the handshake. Returning the zero Action lets the
// server answer.
type Hook func(channel string, cmd *proto.Command) Action

type Handshake struct {
	ClientID string
	Channel  string
}

type conn struct {
	net.Conn
	writeMu sync.Mutex
	channel string
	// pending is the subscription whose first snapshot follows the current reply.
	pending *watcher
}

func (c *conn) send(res *proto.Result) error {
	body, err := res.MarshalProto()
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return frame.WriteFrame(c.Conn, body, frame.DefaultLimits())
}

func (c *conn) reset() {
	nc := c.Conn
	if tc, ok := nc.(*tls.Conn); ok {
		nc = tc.NetConn()
	}
	if tcp, ok := nc.(*net.TCPConn); ok {
		_ = tcp.SetLinger(0)
	}
	_ = c.Conn.Close()
}

type watcher struct {
	conn        *conn
	cmd         proto.Command
	fingerprint uint64
}

type Server struct {
	ln  net.Listener
	log zerolog.Logger

	mu         sync.Mutex
	values     map[string]string
	hashes     map[string]map[string]string
	zsets      map[string]map[string]int64
	conns      map[*conn]struct{}
	watchers   map[uint64][]*watcher
	commands   []proto.Command
	handshakes []Handshake
	hook       Hook
	closed     bool

	wg sync.WaitGroup
}

// Start listens on a loopback port and closes the server when t ends.
func Start(t testing.TB) *Server {
	t.Helper()
	s, err := Listen("127.0.0.1:0")
	if err != nil {
		t.Fatalf("diceserver listen: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

// StartTLS is Start behind a TLS listener using the given server key pair. A
// non-empty clientCAFile makes the server demand a client certificate signed by it.
func StartTLS(t testing.TB, certFile, keyFile, clientCAFile string) *Server {
	t.Helper()
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		t.Fatalf("diceserver load key pair: %v", err)
	}
	cfg := &tls.Config{
		MinVersion:   tls.VersionTLS12,
		Certificates: []tls.Certificate{cert},
	}
	if clientCAFile != "" {
		pem, err := os.ReadFile(clientCAFile)
		if err != nil {
			t.Fatalf("diceserver read client ca: %v", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			t.Fatalf("diceserver parse client ca: %s", clientCAFile)
		}
		cfg.ClientCAs = pool
		cfg.ClientAuth = tls.RequireAndVerifyClientCert
	}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("diceserver listen: %v", err)
	}
	s := newServer(tls.NewListener(ln, cfg))
	t.Cleanup(s.Close)
	return s
}

func Listen(addr string) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return newServer(ln), nil
}

func newServer(ln net.Listener) *Server {
	s := &Server{
		ln:       ln,
		log:      log.With().Str("component", "diceserver").Str("addr", ln.Addr().String()).Logger(),
		values:   make(map[string]string),
		hashes:   make(map[string]map[string]string),
		zsets:    make(map[string]map[string]int64),
		conns:    make(map[*conn]struct{}),
		watchers: make(map[uint64][]*watcher),
	}
	s.wg.Add(1)
	go s.acceptLoop()
	return s
}

func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

func (s *Server) SetHook(h Hook) {
	s.mu.Lock()
	s.hook = h
	s.mu.Unlock()
}

// Commands returns every command received after a handshake, in arrival order.
func (s *Server) Commands() []proto.Command {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.commands)
}

func (s *Server) Handshakes() []Handshake {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.handshakes)
}

// KillConnections resets every open connection.
func (s *Server) KillConnections() {
	for _, c := range s.snapshotConns("") {
		c.reset()
	}
}

// CloseWatchers closes only the connections that handshook as watch channels.
func (s *Server) CloseWatchers() {
	for _, c := range s.snapshotConns("watch") {
		_ = c.Close()
	}
}

func (s *Server) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	_ = s.ln.Close()
	for _, c := range s.snapshotConns("") {
		_ = c.Close()
	}
	s.wg.Wait()
}

func (s *Server) snapshotConns(channel string) []*conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*conn, 0, len(s.conns))
	for c := range s.conns {
		if channel == "" || c.channel == channel {
			out = append(out, c)
		}
	}
	return out
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		nc, err := s.ln.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				s.log.Warn().Err(err).Msg("accept")
			}
			return
		}
		c := &conn{Conn: nc}
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			_ = nc.Close()
			return
		}
		s.conns[c] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go s.serve(c)
	}
}

func (s *Server) serve(c *conn) {
	defer s.wg.Done()
	defer s.drop(c)

	for {
		payload, err := frame.ReadFrame(c, frame.DefaultLimits())
		if err != nil {
			s.log.Debug().Err(err).Str("channel", c.channel).Msg("connection ended")
			return
		}
		var cmd proto.Command
		if err := cmd.UnmarshalProto(payload); err != nil {
			s.log.Warn().Err(err).Msg("undecodable command")
			return
		}

		res, drop := s.dispatch(c, &cmd)
		if drop {
			c.reset()
			return
		}
		if err := c.send(res); err != nil {
			s.log.Debug().Err(err).Msg("reply failed")
			return
		}
		if w := c.pending; w != nil {
			c.pending = nil
			if err := c.send(s.snapshot(w)); err != nil {
				return
			}
		}
	}
}

func (s *Server) drop(c *conn) {
	_ = c.Close()
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, c)
	for fp, ws := range s.watchers {
		ws = slices.DeleteFunc(ws, func(w *watcher) bool { return w.conn == c })
		if len(ws) == 0 {
			delete(s.watchers, fp)
		} else {
			s.watchers[fp] = ws
		}
	}
}

func (s *Server) dispatch(c *conn, cmd *proto.Command) (*proto.Result, bool) {
	if cmd.Cmd == "HANDSHAKE" {
		if len(cmd.Args) != 2 {
			return arity(cmd.Cmd), false
		}
		s.mu.Lock()
		c.channel = cmd.Args[1]
		s.handshakes = append(s.handshakes, Handshake{ClientID: cmd.Args[0], Channel: cmd.Args[1]})
		s.mu.Unlock()
		return ok(&proto.HandshakeRes{}), false
	}

	s.mu.Lock()
	s.commands = append(s.commands, proto.Command{Cmd: cmd.Cmd, Args: slices.Clone(cmd.Args)})
	hook := s.hook
	channel := c.channel
	s.mu.Unlock()

	if hook != nil {
		action := hook(channel, cmd)
		if action.Drop {
			return nil, true
		}
		if action.Result != nil {
			return action.Result, false
		}
	}
	return s.execute(c, cmd), false
}

func ok(r proto.Response) *proto.Result {
	return &proto.Result{Status: proto.StatusOK, Response: r}
}

func fail(format string, args ...any) *proto.Result {
	return &proto.Result{Status: proto.StatusERR, Message: fmt.Sprintf(format, args...)}
}

func arity(op string) *proto.Result {
	return fail("wrong number of arguments for '%s' command", op)
}

func fingerprint(cmd *proto.Command) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(cmd.String()))
	return h.Sum64()
}
