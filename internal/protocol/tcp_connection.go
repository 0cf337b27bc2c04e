// internal/protocol/tcp_connection.go
package protocol

import (
	"context"
	"net"
	"time"

	"go.uber.org/zap"
)

// TCPLink implements Link over a TCP socket
type TCPLink struct {
	conn     net.Conn
	logger   *zap.Logger
	counters linkCounters
}

// NewTCPLink wraps an established connection
func NewTCPLink(conn net.Conn, logger *zap.Logger) *TCPLink {
	return &TCPLink{
		conn: conn,
		logger: logger.With(
			zap.String("protocol", "tcp"),
			zap.String("remote", conn.RemoteAddr().String()),
		),
	}
}

// DialTCP opens the TCP control link
func DialTCP(ctx context.Context, config TCPConfig, logger *zap.Logger) (*TCPLink, error) {
	logger.Info("Opening TCP connection", zap.String("address", config.Address))

	dialer := &net.Dialer{
		Timeout: config.ConnectTimeout,
	}
	if config.KeepAlive {
		dialer.KeepAlive = 30 * time.Second
	} else {
		dialer.KeepAlive = -1
	}

	conn, err := dialer.DialContext(ctx, "tcp", config.Address)
	if err != nil {
		logger.Error("Failed to open TCP connection", zap.Error(err))
		return nil, &ConnectionError{Op: "dial", Address: config.Address, Err: err}
	}

	if tcpConn, ok := conn.(*net.TCPConn); ok {
		// Requests are single short lines; don't let Nagle hold them back
		_ = tcpConn.SetNoDelay(true)
	}

	logger.Info("TCP connection opened successfully", zap.String("address", config.Address))
	return NewTCPLink(conn, logger), nil
}

// Read reads from the socket
func (tl *TCPLink) Read(p []byte) (int, error) {
	n, err := tl.conn.Read(p)
	tl.counters.recordRead(n, err)
	return n, err
}

// Write writes to the socket
func (tl *TCPLink) Write(p []byte) (int, error) {
	n, err := tl.conn.Write(p)
	tl.counters.recordWrite(n, err)
	if err != nil {
		tl.logger.Error("TCP write failed", zap.Error(err))
	}
	return n, err
}

// SetDeadline sets the read and write deadline of the socket
func (tl *TCPLink) SetDeadline(t time.Time) error {
	return tl.conn.SetDeadline(t)
}

// Close closes the socket
func (tl *TCPLink) Close() error {
	if err := tl.conn.Close(); err != nil {
		tl.logger.Error("Failed to close TCP connection", zap.Error(err))
		return err
	}
	tl.logger.Info("TCP connection closed successfully")
	return nil
}

// Kind returns the transport name
func (tl *TCPLink) Kind() string {
	return "tcp"
}

// Stats returns the link counters
func (tl *TCPLink) Stats() LinkStats {
	return tl.counters.snapshot()
}
