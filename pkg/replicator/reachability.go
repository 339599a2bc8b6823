package replicator

import (
	"net"
	"sync"
	"time"

	"github.com/dd0wney/cluso-sync/pkg/logging"
)

// NetworkMonitor reports network connectivity transitions for a target.
// The replicator arms one only while a recoverable network failure is
// outstanding, and stops it as soon as the session progresses past
// Connecting or on Stop/Dispose.
type NetworkMonitor interface {
	// Start begins monitoring and invokes onChange on every reachability
	// transition (true = reachable). The callback may be invoked from an
	// arbitrary goroutine and must not block.
	Start(onChange func(reachable bool)) error

	// Stop halts monitoring. No callbacks are invoked after Stop returns.
	// Idempotent.
	Stop()
}

// dialMonitor is the default NetworkMonitor: it probes the target address
// with a TCP dial on a fixed interval and reports transitions.
type dialMonitor struct {
	addr     string
	interval time.Duration
	timeout  time.Duration
	logger   logging.Logger

	mu      sync.Mutex
	stopCh  chan struct{}
	wg      sync.WaitGroup
	running bool
}

const (
	defaultProbeInterval = 5 * time.Second
	defaultProbeTimeout  = 3 * time.Second
)

// NewDialMonitor creates a NetworkMonitor that probes addr ("host:port")
// with TCP dials every interval. A zero interval uses the default.
func NewDialMonitor(addr string, interval time.Duration) NetworkMonitor {
	if interval <= 0 {
		interval = defaultProbeInterval
	}
	return &dialMonitor{
		addr:     addr,
		interval: interval,
		timeout:  defaultProbeTimeout,
		logger:   logging.DefaultLogger().With(logging.Component("reachability")),
	}
}

// Start begins probing. Returns ErrAlreadyRunning if already started.
func (m *dialMonitor) Start(onChange func(reachable bool)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return ErrAlreadyRunning
	}
	m.running = true
	m.stopCh = make(chan struct{})

	m.wg.Add(1)
	go m.probeLoop(m.stopCh, onChange)
	return nil
}

// Stop halts probing and waits for the probe goroutine to exit
func (m *dialMonitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	close(m.stopCh)
	m.mu.Unlock()

	m.wg.Wait()
}

// probeLoop dials the target on every tick and reports transitions only
func (m *dialMonitor) probeLoop(stopCh chan struct{}, onChange func(reachable bool)) {
	defer m.wg.Done()

	known := false
	last := false

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
		}

		reachable := m.probe()
		if known && reachable == last {
			continue
		}
		known = true
		last = reachable

		m.logger.Debug("reachability changed",
			logging.Endpoint(m.addr),
			logging.Bool("reachable", reachable))

		select {
		case <-stopCh:
			return
		default:
		}
		onChange(reachable)
	}
}

func (m *dialMonitor) probe() bool {
	conn, err := net.DialTimeout("tcp", m.addr, m.timeout)
	if err != nil {
		return false
	}
	if closeErr := conn.Close(); closeErr != nil {
		m.logger.Debug("failed to close probe connection", logging.Error(closeErr))
	}
	return true
}
