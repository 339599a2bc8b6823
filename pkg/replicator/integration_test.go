package replicator

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestReplicatorFullLifecycle walks one continuous replication relationship
// end to end: start, transfer, a network drop with reachability recovery, a
// pull conflict, and a clean stop.
func TestReplicatorFullLifecycle(t *testing.T) {
	db := &fakeDatabase{name: "inventory"}
	monitor := &fakeMonitor{}
	engine := newFakeEngine()

	cfg := validTestConfig(db)
	cfg.Monitor = monitor
	cfg.Resolver = ConflictResolverFunc(func(conflict *Conflict) (*Document, error) {
		return conflict.Remote, nil
	})

	r, err := NewReplicator(cfg, engine)
	require.NoError(t, err)
	defer r.Dispose()

	var levels []ActivityLevel
	_, err = r.AddChangeListener(func(st Status) {
		levels = append(levels, st.Level)
	}, nil)
	require.NoError(t, err)

	// Start: the session comes up and begins transferring.
	require.NoError(t, r.Start())
	require.Equal(t, 1, engine.createCount())
	require.Equal(t, 1, db.ActiveReplicatorCount())

	session := engine.lastSession()
	session.report(ActivityBusy, Progress{Completed: 10, Total: 40}, nil)
	session.report(ActivityIdle, Progress{Completed: 40, Total: 40}, nil)
	barrier(r)

	st := r.Status()
	assert.Equal(t, ActivityIdle, st.Level)
	assert.Equal(t, uint64(40), st.Progress.Completed)

	// A pull conflict is resolved without disturbing the session.
	session.reportDocError(DirectionPull, "sku-100",
		fmt.Errorf("rev mismatch: %w", ErrDocumentConflict), false)
	barrier(r)
	assert.Equal(t, []string{"sku-100"}, db.resolvedDocs())
	assert.Equal(t, ActivityIdle, r.Status().Level)

	// The link drops: the replicator goes Offline and waits for the network.
	session.report(ActivityStopped, Progress{}, NewNetworkError(0, "connection lost", nil))
	barrier(r)

	st = r.Status()
	require.Equal(t, ActivityOffline, st.Level)
	require.Error(t, st.Err)
	require.Equal(t, 1, monitor.startCount())

	// Connectivity returns and the session is rebuilt.
	monitor.signal(true)
	barrier(r)
	require.Equal(t, 2, engine.createCount())
	require.Equal(t, ActivityConnecting, r.Status().Level)

	session = engine.lastSession()
	session.report(ActivityBusy, Progress{Completed: 41, Total: 44}, nil)
	barrier(r)
	assert.Equal(t, 1, monitor.stopCount(), "observer released once past Connecting")

	// Clean stop, confirmed by the engine's final callback.
	require.NoError(t, r.Stop())
	barrier(r)

	st = r.Status()
	assert.Equal(t, ActivityStopped, st.Level)
	assert.NoError(t, st.Err)
	assert.Equal(t, 0, db.ActiveReplicatorCount())

	assert.Equal(t, []ActivityLevel{
		ActivityConnecting,
		ActivityBusy,
		ActivityIdle,
		ActivityOffline,
		ActivityConnecting,
		ActivityBusy,
		ActivityStopped,
	}, levels)
}

// TestReplicatorYAMLDrivenSetup builds a replicator from a parsed config
// file, the way an embedding application would.
func TestReplicatorYAMLDrivenSetup(t *testing.T) {
	raw := []byte(`
target:
  scheme: wss
  host: sync.example.com
  port: 4984
  database: inventory
type: pushAndPull
continuous: true
auth:
  type: session
  session: sess-123
`)
	cf, err := ParseConfig(raw)
	require.NoError(t, err)

	db := &fakeDatabase{name: "inventory"}
	cfg, err := cf.ToConfiguration(db)
	require.NoError(t, err)
	cfg.Monitor = &fakeMonitor{}

	engine := newFakeEngine()
	r, err := NewReplicator(cfg, engine)
	require.NoError(t, err)
	defer r.Dispose()

	require.NoError(t, r.Start())

	// The session authenticator must have stamped the engine options.
	require.Equal(t, 1, engine.createCount())
	opts := engine.lastSessionOptions()
	assert.Equal(t, authTypeSession, opts[optionAuthType])
	assert.Equal(t, "sess-123", opts[optionAuthSession])
	assert.Equal(t, ActivityConnecting, r.Status().Level)
}
