// internal/protocol/session.go
package protocol

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"iqdump-service/internal/utils"
)

const defaultBufferSize = 64 * 1024

// SessionOptions tunes a Session
type SessionOptions struct {
	OutputDir       string
	BufferSize      int
	RequestTimeout  time.Duration
	TransferTimeout time.Duration
}

// Session owns one link to the DUT and runs one command at a time
type Session struct {
	link   Link
	reader *bufio.Reader
	opts   SessionOptions
	buf    []byte
	logger *utils.DutLogger

	mutex  sync.Mutex
	broken error
}

// NewSession wraps an open link
func NewSession(link Link, opts SessionOptions, logger *utils.DutLogger) *Session {
	if opts.BufferSize <= 0 {
		opts.BufferSize = defaultBufferSize
	}
	if opts.OutputDir == "" {
		opts.OutputDir = "./iq_dump"
	}
	if logger == nil {
		logger = utils.NewDutLogger(zap.NewNop(), "", link.Kind())
	}

	return &Session{
		link:   link,
		reader: bufio.NewReaderSize(link, opts.BufferSize),
		opts:   opts,
		buf:    make([]byte, opts.BufferSize),
		logger: logger,
	}
}

// Connect dials the DUT and returns a ready session
func Connect(ctx context.Context, config LinkConfig, opts SessionOptions, logger *zap.Logger) (*Session, error) {
	dutLogger := utils.NewDutLogger(logger, config.Address(), config.Kind)

	link, err := Dial(ctx, config, logger)
	if err != nil {
		dutLogger.LogConnection("connect", false, err)
		var connErr *ConnectionError
		if errors.As(err, &connErr) {
			return nil, err
		}
		return nil, &ConnectionError{Op: "dial", Address: config.Address(), Err: err}
	}

	dutLogger.LogConnection("connect", true, nil)
	return NewSession(link, opts, dutLogger), nil
}

// Close closes the underlying link
func (s *Session) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.broken == nil {
		s.broken = errors.New("session closed")
	}
	err := s.link.Close()
	s.logger.LogConnection("disconnect", err == nil, err)
	return err
}

// Err returns the failure that made the session unusable, if any
func (s *Session) Err() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.broken
}

// Stats returns the link counters
func (s *Session) Stats() LinkStats {
	return s.link.Stats()
}

// OutputDir returns the directory receiving copied files
func (s *Session) OutputDir() string {
	return s.opts.OutputDir
}

// Request sends cmd and waits for its response line
func (s *Session) Request(ctx context.Context, cmd Command) (Response, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.exchange(ctx, cmd)
}

// DeleteRemoteFiles removes dumped files on the DUT
func (s *Session) DeleteRemoteFiles(ctx context.Context) (bool, error) {
	resp, err := s.Request(ctx, DelFiles{})
	if err != nil {
		return false, err
	}
	return !resp.IsError, nil
}

// ATEInit initialises the ATE channel
func (s *Session) ATEInit(ctx context.Context) (bool, error) {
	resp, err := s.Request(ctx, ATEInit{})
	if err != nil {
		return false, err
	}
	return !resp.IsError, nil
}

// CopyFile fetches fileName from the DUT into the output directory and returns the local path.
// A failed transfer never leaves a file behind.
func (s *Session) CopyFile(ctx context.Context, fileName string) (string, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	start := time.Now()
	resp, err := s.exchange(ctx, CopyFiles{FileName: fileName})
	if err != nil {
		return "", err
	}
	if resp.IsError {
		return "", &DeviceError{Command: "CopyFiles", Detail: fileName}
	}

	localPath, err := s.receiveFile(ctx, fileName, resp.FileSize)
	s.logger.LogTransfer(fileName, resp.FileSize, time.Since(start), err)
	return localPath, err
}

// exchange writes one command line and reads one response line. Caller holds the mutex.
func (s *Session) exchange(ctx context.Context, cmd Command) (Response, error) {
	if s.broken != nil {
		return Response{}, &ConnectionError{Op: cmd.Tag(), Err: fmt.Errorf("%w: %v", ErrSessionBroken, s.broken)}
	}

	if err := ctx.Err(); err != nil {
		return Response{}, err
	}

	payload, err := EncodeCommand(cmd)
	if err != nil {
		return Response{}, err
	}

	start := time.Now()
	release := s.bound(ctx, s.opts.RequestTimeout)
	defer release()

	if _, err := s.link.Write(append(payload, '\n')); err != nil {
		return s.fail(cmd, start, &ConnectionError{Op: "write", Err: cause(ctx, err)})
	}

	line, err := s.reader.ReadBytes('\n')
	if err != nil {
		return s.fail(cmd, start, &ConnectionError{Op: "read", Err: cause(ctx, err)})
	}

	resp, err := DecodeResponse(line)
	if err != nil {
		return s.fail(cmd, start, err)
	}

	s.logger.LogCommand(cmd.Tag(), time.Since(start), resp.IsError, nil)
	return resp, nil
}

func (s *Session) fail(cmd Command, start time.Time, err error) (Response, error) {
	s.broken = err
	s.logger.LogCommand(cmd.Tag(), time.Since(start), false, err)
	return Response{}, err
}

// receiveFile streams exactly size bytes into the output directory. Caller holds the mutex.
func (s *Session) receiveFile(ctx context.Context, fileName string, size uint64) (string, error) {
	localPath := filepath.Join(s.opts.OutputDir, filepath.Base(fileName))

	// Payload bytes are drained even when the local file fails so the stream stays aligned
	var (
		dst     io.Writer = io.Discard
		file    *os.File
		fileErr error
	)
	if err := os.MkdirAll(s.opts.OutputDir, 0o755); err != nil {
		fileErr = &FileIOError{Op: "mkdir", Path: s.opts.OutputDir, Err: err}
	} else if f, err := os.OpenFile(localPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644); err != nil {
		fileErr = &FileIOError{Op: "create", Path: localPath, Err: err}
	} else {
		file, dst = f, f
	}

	release := s.bound(ctx, s.opts.TransferTimeout)
	defer release()

	var (
		received    uint64
		transferErr error
	)
	for received < size {
		chunk := s.buf
		if remaining := size - received; remaining < uint64(len(chunk)) {
			chunk = chunk[:remaining]
		}

		n, err := s.reader.Read(chunk)
		if n > 0 {
			if _, werr := dst.Write(chunk[:n]); werr != nil && fileErr == nil {
				fileErr = &FileIOError{Op: "write", Path: localPath, Err: werr}
				dst = io.Discard
			}
			received += uint64(n)
		}
		if received == size {
			break
		}
		if n == 0 || err != nil {
			if err == nil {
				err = io.ErrNoProgress
			}
			transferErr = &TransferIncompleteError{
				FileName: fileName,
				Received: received,
				Expected: size,
				Err:      cause(ctx, err),
			}
			break
		}
	}

	if file != nil {
		if err := file.Close(); err != nil && fileErr == nil {
			fileErr = &FileIOError{Op: "close", Path: localPath, Err: err}
		}
	}

	switch {
	case transferErr != nil:
		// The rest of the payload may still arrive; the stream position is unknown
		s.broken = transferErr
		removePartial(file, localPath)
		return "", transferErr
	case fileErr != nil:
		removePartial(file, localPath)
		return "", fileErr
	}

	return localPath, nil
}

func removePartial(file *os.File, path string) {
	if file != nil {
		_ = os.Remove(path)
	}
}

// bound applies the tighter of timeout and the context deadline to the link,
// and interrupts blocked I/O when ctx is cancelled. The returned func clears both.
func (s *Session) bound(ctx context.Context, timeout time.Duration) func() {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	if d, ok := ctx.Deadline(); ok && (deadline.IsZero() || d.Before(deadline)) {
		deadline = d
	}
	_ = s.link.SetDeadline(deadline)

	interrupted := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		_ = s.link.SetDeadline(time.Now())
		close(interrupted)
	})

	return func() {
		if !stop() {
			<-interrupted
		}
		_ = s.link.SetDeadline(time.Time{})
	}
}

// cause prefers the context error over the I/O error it provoked
func cause(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %v", ctxErr, err)
	}
	return err
}
