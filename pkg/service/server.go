package service

import (
	"bufio"
	"encoding/json"
	"net"
	"sync"

	"github.com/meta-node-blockchain/meta-oracle/pkg/logger"
)

// lines longer than this are protocol abuse and drop the connection
const maxFrameSize = 1 << 20

// Server accepts TCP connections and speaks the newline-delimited JSON
// command protocol: one Command frame per line in, one Reply frame per line
// out.
type Server struct {
	addr    string
	handler *Handler

	mu       sync.Mutex
	listener net.Listener
	quit     chan struct{}
	wg       sync.WaitGroup
}

func NewServer(addr string, handler *Handler) *Server {
	return &Server{addr: addr, handler: handler}
}

// Addr returns the bound address, useful when listening on port 0.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

// Start binds the listener and serves in the background until Stop.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.listener = listener
	s.quit = make(chan struct{})
	s.mu.Unlock()

	logger.Info("service: listening on %s", listener.Addr())
	s.wg.Add(1)
	go s.acceptLoop(listener)
	return nil
}

// Stop closes the listener and waits for in-flight connections.
func (s *Server) Stop() {
	s.mu.Lock()
	if s.quit != nil {
		close(s.quit)
		s.quit = nil
	}
	if s.listener != nil {
		s.listener.Close()
		s.listener = nil
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Server) acceptLoop(listener net.Listener) {
	defer s.wg.Done()
	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-s.stopped():
				return
			default:
			}
			logger.Warn("service: accept failed: %v", err)
			return
		}
		s.wg.Add(1)
		go s.serveConn(conn)
	}
}

func (s *Server) stopped() chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.quit == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return s.quit
}

func (s *Server) serveConn(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	logger.Debug("service: connection from %s", conn.RemoteAddr())
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), maxFrameSize)
	encoder := json.NewEncoder(conn)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		cmd := Command{}
		if err := json.Unmarshal(line, &cmd); err != nil {
			if encErr := encoder.Encode(Reply{OK: false, Error: "malformed frame: " + err.Error()}); encErr != nil {
				return
			}
			continue
		}
		reply := s.handler.Handle(cmd)
		if err := encoder.Encode(reply); err != nil {
			logger.Warn("service: write to %s failed: %v", conn.RemoteAddr(), err)
			return
		}
	}
	if err := scanner.Err(); err != nil {
		logger.Debug("service: connection %s closed: %v", conn.RemoteAddr(), err)
	}
}
