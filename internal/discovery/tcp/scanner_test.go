package tcp

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHosts(t *testing.T) {
	hosts, err := Hosts([]string{"10.1.2.0/30", "10.1.2.9", "10.1.2.1"})
	require.NoError(t, err)

	var got []string
	for _, h := range hosts {
		got = append(got, h.String())
	}
	assert.Equal(t, []string{"10.1.2.1", "10.1.2.2", "10.1.2.9"}, got)

	hosts, err = Hosts([]string{"10.1.2.4/31"})
	require.NoError(t, err)
	assert.Len(t, hosts, 2)

	hosts, err = Hosts([]string{"192.168.7.77/24"})
	require.NoError(t, err)
	assert.Len(t, hosts, 254)
	assert.Equal(t, "192.168.7.1", hosts[0].String())
}

func TestHostsRejectsBadInput(t *testing.T) {
	_, err := Hosts([]string{"not-a-network"})
	assert.Error(t, err)

	_, err = Hosts([]string{"10.0.0.0/8"})
	assert.ErrorContains(t, err, "too large")
}

func TestScanFindsOpenPort(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			_ = conn.Close()
		}
	}()

	port := ln.Addr().(*net.TCPAddr).Port
	scanner := NewScanner(zap.NewNop(), &Config{
		Networks:    []string{"127.0.0.1"},
		Port:        port,
		ConnTimeout: time.Second,
		Workers:     4,
	})
	assert.Equal(t, "tcp", scanner.GetScannerType())
	assert.True(t, scanner.IsAvailable())

	found, err := scanner.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, net.JoinHostPort("127.0.0.1", strconv.Itoa(port)), found[0].Address)
	assert.Equal(t, "tcp", found[0].Link)
}

func TestScanClosedPort(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	scanner := NewScanner(zap.NewNop(), &Config{
		Networks:    []string{"127.0.0.1"},
		Port:        port,
		ConnTimeout: 200 * time.Millisecond,
		Workers:     1,
	})

	found, err := scanner.Scan(context.Background())
	require.NoError(t, err)
	assert.Empty(t, found)
}
