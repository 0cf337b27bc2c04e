// Package simulator provides a fake DUT control agent speaking the line protocol over TCP.
// It backs the protocol tests and the dutsim bench binary.
package simulator

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"go.uber.org/zap"

	"iqdump-service/internal/protocol"
)

// Options controls fault injection
type Options struct {
	Capture CaptureOptions

	// FailTags lists command tags answered with is_error=true
	FailTags map[string]bool

	// TruncateCopies closes the connection halfway through every file payload
	TruncateCopies bool

	// MalformedReplies answers every command with a line that is not a response
	MalformedReplies bool
}

// Server is an in-process DUT
type Server struct {
	opts     Options
	logger   *zap.Logger
	listener net.Listener

	mutex    sync.Mutex
	files    map[string][]byte
	commands []protocol.Command
	conns    map[net.Conn]struct{}

	wg sync.WaitGroup
}

// New creates a server; call Listen then Serve
func New(opts Options, logger *zap.Logger) *Server {
	if opts.Capture.Samples == 0 {
		opts.Capture = DefaultCaptureOptions()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		opts:   opts,
		logger: logger.With(zap.String("component", "simulator")),
		files:  make(map[string][]byte),
		conns:  make(map[net.Conn]struct{}),
	}
}

// Listen binds the listener, use "127.0.0.1:0" for an ephemeral port
func (s *Server) Listen(address string) error {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", address, err)
	}
	s.listener = listener
	return nil
}

// Addr returns the bound address
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Serve accepts connections until ctx is done or Close is called
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		_ = s.Close()
	}()

	s.logger.Info("Simulator listening", zap.String("address", s.Addr()))
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept failed: %w", err)
		}

		s.mutex.Lock()
		s.conns[conn] = struct{}{}
		s.mutex.Unlock()

		s.wg.Add(1)
		go s.handle(conn)
	}
}

// Start listens and serves in the background
func (s *Server) Start(ctx context.Context, address string) error {
	if err := s.Listen(address); err != nil {
		return err
	}
	go func() {
		if err := s.Serve(ctx); err != nil {
			s.logger.Error("Simulator stopped", zap.Error(err))
		}
	}()
	return nil
}

// Close stops accepting and drops open connections
func (s *Server) Close() error {
	var err error
	if s.listener != nil {
		err = s.listener.Close()
	}

	s.mutex.Lock()
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.mutex.Unlock()

	s.wg.Wait()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

// PutFile stores a file that CopyFiles can return
func (s *Server) PutFile(name string, data []byte) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.files[name] = data
}

// Files returns the names of the files held by the DUT
func (s *Server) Files() []string {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	names := make([]string, 0, len(s.files))
	for name := range s.files {
		names = append(names, name)
	}
	return names
}

// Commands returns every command received so far, in order
func (s *Server) Commands() []protocol.Command {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return append([]protocol.Command(nil), s.commands...)
}

func (s *Server) handle(conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.mutex.Lock()
		delete(s.conns, conn)
		s.mutex.Unlock()
		_ = conn.Close()
	}()

	reader := bufio.NewReader(conn)
	writer := bufio.NewWriter(conn)

	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			return
		}

		cmd, err := protocol.DecodeCommand(line)
		if err != nil {
			s.logger.Warn("Rejected command", zap.ByteString("line", line), zap.Error(err))
			if !s.reply(writer, protocol.Response{IsError: true}) {
				return
			}
			continue
		}

		s.mutex.Lock()
		s.commands = append(s.commands, cmd)
		s.mutex.Unlock()

		if s.opts.MalformedReplies {
			_, _ = writer.WriteString("not a response\n")
			_ = writer.Flush()
			continue
		}

		if !s.dispatch(writer, cmd) {
			return
		}
	}
}

// dispatch answers one command, returning false when the connection must close
func (s *Server) dispatch(w *bufio.Writer, cmd protocol.Command) bool {
	if s.opts.FailTags[cmd.Tag()] {
		return s.reply(w, protocol.Response{IsError: true})
	}

	switch c := cmd.(type) {
	case protocol.DumpIQ:
		s.PutFile(c.FileName, SynthesizeCapture(s.opts.Capture))
		return s.reply(w, protocol.Response{})

	case protocol.CopyFiles:
		s.mutex.Lock()
		data, ok := s.files[c.FileName]
		s.mutex.Unlock()
		if !ok {
			return s.reply(w, protocol.Response{IsError: true})
		}
		if !s.reply(w, protocol.Response{FileSize: uint64(len(data))}) {
			return false
		}
		if s.opts.TruncateCopies {
			_, _ = w.Write(data[:len(data)/2])
			_ = w.Flush()
			return false
		}
		_, err := w.Write(data)
		return err == nil && w.Flush() == nil

	case protocol.DelFiles:
		s.mutex.Lock()
		s.files = make(map[string][]byte)
		s.mutex.Unlock()
		return s.reply(w, protocol.Response{})

	default:
		return s.reply(w, protocol.Response{})
	}
}

func (s *Server) reply(w *bufio.Writer, resp protocol.Response) bool {
	line, err := protocol.EncodeResponse(resp)
	if err != nil {
		return false
	}
	if _, err := w.Write(append(line, '\n')); err != nil {
		return false
	}
	return w.Flush() == nil
}
