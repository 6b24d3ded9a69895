package speedtest

import (
	"math"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"udcomm-speedtest/config"
	"udcomm-speedtest/exccomm"
	"udcomm-speedtest/shmem"
)

type recordingSender struct {
	raised []string
}

func (s *recordingSender) Raise(payload string) {
	s.raised = append(s.raised, payload)
}

// scriptedSession feeds one sentinel message per Wait, forever.
type scriptedSession struct {
	waits    int
	detached bool
}

func (s *scriptedSession) Wait() (exccomm.Event, error) {
	s.waits++
	return exccomm.Event{
		Exception: true,
		Code:      exccomm.SentinelCode,
		NumParams: 2,
		Params:    []uintptr{0x1000, 14},
		PID:       4242,
		TID:       1,
	}, nil
}

func (s *scriptedSession) Continue(ev exccomm.Event) error { return nil }

func (s *scriptedSession) Detach() error {
	s.detached = true
	return nil
}

type scriptedAttacher struct {
	session  *scriptedSession
	attached []uint32
}

func (a *scriptedAttacher) Attach(pid uint32) (exccomm.Session, error) {
	a.attached = append(a.attached, pid)
	return a.session, nil
}

func testRunner(role shmem.Role, iterations int) (*Runner, *recordingSender, *scriptedAttacher) {
	cfg := &config.Config{
		Iterations: iterations,
		Warmup:     3 * time.Second,
		Payload:    "hello, world!",
	}
	sender := &recordingSender{}
	attacher := &scriptedAttacher{session: &scriptedSession{}}
	r := New(role, 4242, cfg, sender, attacher)

	// Fixed 2s per send loop, no real sleeping.
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	calls := 0
	r.now = func() time.Time {
		calls++
		if calls%2 == 1 {
			return base
		}
		return base.Add(2 * time.Second)
	}
	r.sleep = func(time.Duration) {}
	return r, sender, attacher
}

func TestServerSendsFirstThenCounts(t *testing.T) {
	r, sender, attacher := testRunner(shmem.RoleServer, 100)
	r.partnerPID = uint32(os.Getpid())

	results := r.Run()
	require.Len(t, results, 2)

	assert.True(t, results[0].Sent, "server must send in round 1")
	assert.Equal(t, 100, results[0].Count)
	assert.Len(t, sender.raised, 100)

	assert.False(t, results[1].Sent, "server must count in round 2")
	assert.Equal(t, 100, results[1].Count)
	assert.Equal(t, []uint32{uint32(os.Getpid())}, attacher.attached)
	assert.True(t, attacher.session.detached)
}

func TestClientCountsFirstThenSends(t *testing.T) {
	r, sender, attacher := testRunner(shmem.RoleClient, 50)
	r.partnerPID = uint32(os.Getpid())

	results := r.Run()
	require.Len(t, results, 2)

	assert.False(t, results[0].Sent, "client must count in round 1")
	assert.Equal(t, 50, results[0].Count)
	assert.Len(t, attacher.attached, 1)

	assert.True(t, results[1].Sent, "client must send in round 2")
	assert.Len(t, sender.raised, 50)
}

func TestThroughputIsPositiveFiniteAndExact(t *testing.T) {
	r, _, _ := testRunner(shmem.RoleServer, 100)
	r.partnerPID = uint32(os.Getpid())

	results := r.Run()
	sent := results[0]

	require.True(t, sent.Sent)
	assert.Equal(t, 100, sent.Count, "rate must only be reported for the full iteration count")
	assert.Equal(t, 2*time.Second, sent.Elapsed)
	assert.InDelta(t, 50.0, sent.Rate, 0.001)
	assert.False(t, math.IsInf(sent.Rate, 0))
	assert.False(t, math.IsNaN(sent.Rate))
}

func TestThroughputGuardsZeroElapsed(t *testing.T) {
	r, _, _ := testRunner(shmem.RoleServer, 10)
	r.partnerPID = uint32(os.Getpid())
	frozen := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	r.now = func() time.Time { return frozen }

	results := r.Run()
	sent := results[0]

	assert.Greater(t, sent.Rate, 0.0)
	assert.False(t, math.IsInf(sent.Rate, 0))
}

func TestWarmupOnlyBeforeSendRounds(t *testing.T) {
	r, _, _ := testRunner(shmem.RoleServer, 10)
	r.partnerPID = uint32(os.Getpid())

	var slept []time.Duration
	r.sleep = func(d time.Duration) { slept = append(slept, d) }

	r.Run()

	// One warm-up for the single send round; the counting round starts
	// waiting immediately.
	require.Len(t, slept, 1)
	assert.Equal(t, 3*time.Second, slept[0])
}
