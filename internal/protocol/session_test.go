package protocol_test

import (
	"bytes"
	"context"
	"errors"
	"math/rand"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"iqdump-service/internal/protocol"
	"iqdump-service/internal/simulator"
)

func startSimulator(t *testing.T, opts simulator.Options) *simulator.Server {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	srv := simulator.New(opts, zap.NewNop())
	require.NoError(t, srv.Start(ctx, "127.0.0.1:0"))
	t.Cleanup(func() {
		cancel()
		_ = srv.Close()
	})
	return srv
}

func connect(t *testing.T, address string, opts protocol.SessionOptions) *protocol.Session {
	t.Helper()

	if opts.OutputDir == "" {
		opts.OutputDir = filepath.Join(t.TempDir(), "iq_dump")
	}
	session, err := protocol.Connect(context.Background(), protocol.LinkConfig{
		Kind: "tcp",
		TCP:  protocol.TCPConfig{Address: address, ConnectTimeout: time.Second},
	}, opts, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })
	return session
}

func randomPayload(size int) []byte {
	data := make([]byte, size)
	rand.New(rand.NewSource(7)).Read(data)
	return data
}

func TestCopyFileWritesExactSize(t *testing.T) {
	srv := startSimulator(t, simulator.Options{})
	payload := randomPayload(200_003)
	srv.PutFile("hb_iq_0_0_01.txt", payload)

	session := connect(t, srv.Addr(), protocol.SessionOptions{BufferSize: 4096})

	localPath, err := session.CopyFile(context.Background(), "hb_iq_0_0_01.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(session.OutputDir(), "hb_iq_0_0_01.txt"), localPath)

	got, err := os.ReadFile(localPath)
	require.NoError(t, err)
	assert.Len(t, got, len(payload))
	assert.True(t, bytes.Equal(payload, got))

	// The stream is still aligned for the next command
	ok, err := session.DeleteRemoteFiles(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, srv.Files())
}

func TestCopyFileEmptyPayload(t *testing.T) {
	srv := startSimulator(t, simulator.Options{})
	srv.PutFile("empty.txt", nil)
	session := connect(t, srv.Addr(), protocol.SessionOptions{})

	localPath, err := session.CopyFile(context.Background(), "empty.txt")
	require.NoError(t, err)

	info, err := os.Stat(localPath)
	require.NoError(t, err)
	assert.Zero(t, info.Size())
}

func TestCopyFileTruncatedPeer(t *testing.T) {
	srv := startSimulator(t, simulator.Options{TruncateCopies: true})
	srv.PutFile("lb_iq_0_1_00.txt", randomPayload(10_000))
	session := connect(t, srv.Addr(), protocol.SessionOptions{BufferSize: 1024})

	localPath, err := session.CopyFile(context.Background(), "lb_iq_0_1_00.txt")
	assert.Empty(t, localPath)

	var incomplete *protocol.TransferIncompleteError
	require.True(t, errors.As(err, &incomplete), "got %v", err)
	assert.Equal(t, uint64(10_000), incomplete.Expected)
	assert.Equal(t, uint64(5_000), incomplete.Received)
	assert.False(t, protocol.IsFatal(err))

	_, statErr := os.Stat(filepath.Join(session.OutputDir(), "lb_iq_0_1_00.txt"))
	assert.True(t, os.IsNotExist(statErr), "partial file must not be kept")

	// The stream position is unknown, so the session refuses further work
	_, err = session.ATEInit(context.Background())
	assert.True(t, protocol.IsFatal(err))
	assert.True(t, errors.Is(err, protocol.ErrSessionBroken))
}

func TestCopyFileDeviceError(t *testing.T) {
	srv := startSimulator(t, simulator.Options{})
	session := connect(t, srv.Addr(), protocol.SessionOptions{})

	_, err := session.CopyFile(context.Background(), "missing.txt")
	var devErr *protocol.DeviceError
	require.True(t, errors.As(err, &devErr))
	assert.Equal(t, "CopyFiles", devErr.Command)

	// Device errors leave the session usable
	ok, err := session.ATEInit(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCopyFileLocalFailureKeepsStreamAligned(t *testing.T) {
	srv := startSimulator(t, simulator.Options{})
	srv.PutFile("a.txt", randomPayload(3000))

	dir := t.TempDir()
	blocker := filepath.Join(dir, "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	session := connect(t, srv.Addr(), protocol.SessionOptions{OutputDir: blocker, BufferSize: 512})

	_, err := session.CopyFile(context.Background(), "a.txt")
	var ioErr *protocol.FileIOError
	require.True(t, errors.As(err, &ioErr), "got %v", err)

	ok, err := session.DeleteRemoteFiles(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRequestIsErrorResponse(t *testing.T) {
	srv := startSimulator(t, simulator.Options{FailTags: map[string]bool{"ATEInit": true}})
	session := connect(t, srv.Addr(), protocol.SessionOptions{})

	ok, err := session.ATEInit(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRequestMalformedReply(t *testing.T) {
	srv := startSimulator(t, simulator.Options{MalformedReplies: true})
	session := connect(t, srv.Addr(), protocol.SessionOptions{})

	_, err := session.Request(context.Background(), protocol.ShellCmd{Text: "true"})
	var protoErr *protocol.ProtocolError
	require.True(t, errors.As(err, &protoErr))
	assert.Error(t, session.Err())

	_, err = session.Request(context.Background(), protocol.ShellCmd{Text: "true"})
	assert.True(t, errors.Is(err, protocol.ErrSessionBroken))
}

func TestRequestResponsesInOrder(t *testing.T) {
	srv := startSimulator(t, simulator.Options{})
	session := connect(t, srv.Addr(), protocol.SessionOptions{})

	cmds := []protocol.Command{
		protocol.ATEInit{},
		protocol.SetReg{Addr: 0x04e00030, Value: 0xffff},
		protocol.ShellCmd{Text: "echo hi"},
		protocol.ATECmd{Cmd: "ifconfig", Args: []string{"wlan0", "up"}},
	}
	for _, cmd := range cmds {
		resp, err := session.Request(context.Background(), cmd)
		require.NoError(t, err)
		assert.False(t, resp.IsError)
	}
	assert.Equal(t, cmds, srv.Commands())
}

// silentPeer accepts connections and never answers
func silentPeer(t *testing.T) string {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	accepted := make(chan net.Conn, 4)
	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				close(accepted)
				return
			}
			accepted <- conn
		}
	}()

	t.Cleanup(func() {
		_ = listener.Close()
		for conn := range accepted {
			_ = conn.Close()
		}
	})
	return listener.Addr().String()
}

func TestRequestTimeout(t *testing.T) {
	session := connect(t, silentPeer(t), protocol.SessionOptions{RequestTimeout: 100 * time.Millisecond})

	start := time.Now()
	_, err := session.ATEInit(context.Background())
	require.Error(t, err)
	assert.True(t, protocol.IsFatal(err))
	assert.True(t, errors.Is(err, os.ErrDeadlineExceeded), "got %v", err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestRequestCancelled(t *testing.T) {
	session := connect(t, silentPeer(t), protocol.SessionOptions{})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	_, err := session.Request(ctx, protocol.DelFiles{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
}

func TestConnectRefused(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	address := listener.Addr().String()
	require.NoError(t, listener.Close())

	_, err = protocol.Connect(context.Background(), protocol.LinkConfig{
		Kind: "tcp",
		TCP:  protocol.TCPConfig{Address: address, ConnectTimeout: time.Second},
	}, protocol.SessionOptions{}, zap.NewNop())

	var connErr *protocol.ConnectionError
	require.True(t, errors.As(err, &connErr))
	assert.Equal(t, "dial", connErr.Op)
}
