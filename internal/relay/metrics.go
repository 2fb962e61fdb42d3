package relay

import (
	"math"
	"sync/atomic"
	"time"
)

// sessionMetrics tracks one session's counters. The receive and
// broadcast loops update them concurrently, so they are atomics; they
// only grow until the session is destroyed.
type sessionMetrics struct {
	bookTitle string
	startTime time.Time

	chunksReceived atomic.Int64
	bytesReceived  atomic.Int64
	chunksSent     atomic.Int64
	bytesSent      atomic.Int64
	chunksDropped  atomic.Int64
	maxQueueDepth  atomic.Int64
}

func newSessionMetrics(bookTitle string) *sessionMetrics {
	return &sessionMetrics{bookTitle: bookTitle, startTime: time.Now().UTC()}
}

func (m *sessionMetrics) addReceived(bytes int) {
	m.chunksReceived.Add(1)
	m.bytesReceived.Add(int64(bytes))
}

func (m *sessionMetrics) addSent(bytes int) int64 {
	m.bytesSent.Add(int64(bytes))
	return m.chunksSent.Add(1)
}

func (m *sessionMetrics) addDropped() int64 {
	return m.chunksDropped.Add(1)
}

// observeQueueDepth raises the recorded maximum if depth exceeds it.
func (m *sessionMetrics) observeQueueDepth(depth int) {
	d := int64(depth)
	for {
		cur := m.maxQueueDepth.Load()
		if d <= cur || m.maxQueueDepth.CompareAndSwap(cur, d) {
			return
		}
	}
}

// SessionMetricsSnapshot is a point-in-time copy of one session's
// counters.
type SessionMetricsSnapshot struct {
	BookTitle        string    `json:"bookTitle"`
	StartTime        time.Time `json:"startTime"`
	DurationSeconds  float64   `json:"durationSeconds"`
	ChunksReceived   int64     `json:"chunksReceived"`
	BytesReceived    int64     `json:"bytesReceived"`
	ChunksSent       int64     `json:"chunksSent"`
	BytesSent        int64     `json:"bytesSent"`
	ChunksDropped    int64     `json:"chunksDropped"`
	DropRatePercent  float64   `json:"dropRatePercent"`
	QueueDepth       int       `json:"queueDepth"`
	MaxQueueDepth    int64     `json:"maxQueueDepth"`
	ConnectedClients int       `json:"connectedClients"`
}

// Snapshot aggregates process-wide totals plus every live session's
// counters.
type Snapshot struct {
	Timestamp          time.Time                         `json:"timestamp"`
	UptimeSeconds      float64                           `json:"uptimeSeconds"`
	ActiveSessions     int                               `json:"activeSessions"`
	TotalBytesSent     int64                             `json:"totalBytesSent"`
	TotalKBSent        float64                           `json:"totalKbSent"`
	TotalChunksSent    int64                             `json:"totalChunksSent"`
	TotalChunksDropped int64                             `json:"totalChunksDropped"`
	Sessions           map[string]SessionMetricsSnapshot `json:"sessions"`
}

func (m *sessionMetrics) snapshot(now time.Time, queueDepth, connectedClients int) SessionMetricsSnapshot {
	received := m.chunksReceived.Load()
	dropped := m.chunksDropped.Load()

	var dropRate float64
	if received > 0 {
		dropRate = round2(float64(dropped) / float64(received) * 100)
	}

	return SessionMetricsSnapshot{
		BookTitle:        m.bookTitle,
		StartTime:        m.startTime,
		DurationSeconds:  round1(now.Sub(m.startTime).Seconds()),
		ChunksReceived:   received,
		BytesReceived:    m.bytesReceived.Load(),
		ChunksSent:       m.chunksSent.Load(),
		BytesSent:        m.bytesSent.Load(),
		ChunksDropped:    dropped,
		DropRatePercent:  dropRate,
		QueueDepth:       queueDepth,
		MaxQueueDepth:    m.maxQueueDepth.Load(),
		ConnectedClients: connectedClients,
	}
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
