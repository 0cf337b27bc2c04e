// internal/protocol/link.go
package protocol

import (
	"io"
	"sync/atomic"
	"time"
)

// Link represents the byte stream to the DUT control agent
type Link interface {
	io.ReadWriteCloser

	// SetDeadline bounds every pending and future Read and Write
	SetDeadline(t time.Time) error

	// Kind returns the transport name ("tcp" or "serial")
	Kind() string

	// Stats returns a snapshot of the link counters
	Stats() LinkStats
}

// LinkStats provides link-level statistics
type LinkStats struct {
	BytesWritten int64     `json:"bytes_written"`
	BytesRead    int64     `json:"bytes_read"`
	ErrorCount   int64     `json:"error_count"`
	LastActivity time.Time `json:"last_activity"`
}

// linkCounters accumulates LinkStats without locking
type linkCounters struct {
	bytesWritten atomic.Int64
	bytesRead    atomic.Int64
	errorCount   atomic.Int64
	lastActivity atomic.Int64
}

func (c *linkCounters) recordRead(n int, err error) {
	c.bytesRead.Add(int64(n))
	c.record(err)
}

func (c *linkCounters) recordWrite(n int, err error) {
	c.bytesWritten.Add(int64(n))
	c.record(err)
}

func (c *linkCounters) record(err error) {
	if err != nil && err != io.EOF {
		c.errorCount.Add(1)
	}
	c.lastActivity.Store(time.Now().UnixNano())
}

func (c *linkCounters) snapshot() LinkStats {
	stats := LinkStats{
		BytesWritten: c.bytesWritten.Load(),
		BytesRead:    c.bytesRead.Load(),
		ErrorCount:   c.errorCount.Load(),
	}
	if ts := c.lastActivity.Load(); ts != 0 {
		stats.LastActivity = time.Unix(0, ts)
	}
	return stats
}
