package replicator

import (
	"bytes"
	"runtime"
	"strconv"
	"sync"
	"time"
)

// commandQueue is a single logical execution lane. Commands are accepted
// from any goroutine but run strictly one at a time, in admission order, on
// one worker goroutine. It is the sole mutual-exclusion mechanism for
// replicator state: anything mutated only inside queue commands needs no
// further locking.
//
// Commands must be short and non-blocking. Submitting a synchronous command
// from inside a running command would deadlock the lane, so Sync panics when
// called from the worker goroutine.
type commandQueue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	pending []func()
	closed  bool

	workerGID uint64
	workerWG  sync.WaitGroup
}

// newCommandQueue creates a queue and starts its worker goroutine
func newCommandQueue() *commandQueue {
	q := &commandQueue{}
	q.cond = sync.NewCond(&q.mu)
	q.workerWG.Add(1)
	go q.worker()
	return q
}

// worker drains commands until the queue is closed and empty
func (q *commandQueue) worker() {
	defer q.workerWG.Done()

	q.mu.Lock()
	q.workerGID = currentGoroutineID()
	for {
		for len(q.pending) == 0 {
			if q.closed {
				q.mu.Unlock()
				return
			}
			q.cond.Wait()
		}
		cmd := q.pending[0]
		q.pending = q.pending[1:]
		q.mu.Unlock()

		cmd()

		q.mu.Lock()
	}
}

// Async enqueues a command without waiting for it to run. Returns false if
// the queue has been closed and the command was dropped.
func (q *commandQueue) Async(cmd func()) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.pending = append(q.pending, cmd)
	q.cond.Signal()
	return true
}

// Sync enqueues a command and blocks until it has run. Returns false if the
// queue has been closed and the command never ran.
func (q *commandQueue) Sync(cmd func()) bool {
	if currentGoroutineID() == q.workerID() {
		panic("replicator: reentrant Sync on command queue")
	}

	done := make(chan struct{})
	ok := q.Async(func() {
		defer close(done)
		cmd()
	})
	if !ok {
		return false
	}
	<-done
	return true
}

// After schedules a command to run on the queue once the delay elapses.
// The timer fires on its own goroutine and funnels back through Async, so a
// queue closed in the meantime simply drops the command.
func (q *commandQueue) After(delay time.Duration, cmd func()) *time.Timer {
	return time.AfterFunc(delay, func() {
		q.Async(cmd)
	})
}

// Close stops accepting commands. Commands already accepted still run; Close
// returns once the worker has drained them and exited. Idempotent.
func (q *commandQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.workerWG.Wait()
		return
	}
	q.closed = true
	q.cond.Broadcast()
	q.mu.Unlock()

	q.workerWG.Wait()
}

func (q *commandQueue) workerID() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.workerGID
}

// currentGoroutineID parses the goroutine id out of the runtime stack
// header ("goroutine N [running]:"). Used only to detect reentrant Sync.
func currentGoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	stack := buf[:n]

	stack = bytes.TrimPrefix(stack, []byte("goroutine "))
	if i := bytes.IndexByte(stack, ' '); i >= 0 {
		stack = stack[:i]
	}
	id, err := strconv.ParseUint(string(stack), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
