// Package speedtest orchestrates the two timed rounds of the benchmark:
// round 1 has the negotiation server sending and the client counting,
// round 2 swaps the roles.
package speedtest

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v4/process"

	"udcomm-speedtest/config"
	"udcomm-speedtest/exccomm"
	"udcomm-speedtest/shmem"
)

// RoundResult describes one completed round from this process's side.
type RoundResult struct {
	Round   int
	Sent    bool          // true when this process was the sender
	Count   int           // messages sent, or messages counted
	Elapsed time.Duration // send-loop wall time; zero on counting rounds
	Rate    float64       // msg/s; zero on counting rounds
}

type Runner struct {
	role       shmem.Role
	partnerPID uint32
	iterations int
	warmup     time.Duration
	payload    string
	sender     exccomm.Sender
	attacher   exccomm.Attacher

	sleep func(time.Duration) // test hooks
	now   func() time.Time
}

func New(role shmem.Role, partnerPID uint32, cfg *config.Config, sender exccomm.Sender, attacher exccomm.Attacher) *Runner {
	return &Runner{
		role:       role,
		partnerPID: partnerPID,
		iterations: cfg.Iterations,
		warmup:     cfg.Warmup,
		payload:    cfg.Payload,
		sender:     sender,
		attacher:   attacher,
		sleep:      time.Sleep,
		now:        time.Now,
	}
}

// Run performs both rounds in order. There is no cross-process barrier
// between rounds beyond the sender's warm-up sleep; the two instances are
// only loosely synchronized by timing, as in the original demo.
func (r *Runner) Run() []RoundResult {
	r.describePartner()
	return []RoundResult{r.runRound(1), r.runRound(2)}
}

func (r *Runner) runRound(round int) RoundResult {
	own := r.role.String()
	other := otherRole(r.role).String()
	sends := (round == 1) == (r.role == shmem.RoleServer)

	if !sends {
		fmt.Printf("Round %d (%s debugs %s):\n", round, own, other)
		count := exccomm.Receive(r.attacher, r.partnerPID, label(r.role), r.iterations)
		return RoundResult{Round: round, Count: count}
	}

	// Give the partner time to attach before the burst starts.
	r.sleep(r.warmup)
	fmt.Printf("Round %d (%s sends, %s debugs):\n", round, own, other)

	start := r.now()
	for i := 0; i < r.iterations; i++ {
		r.sender.Raise(r.payload)
	}
	elapsed := r.now().Sub(start)
	if elapsed <= 0 {
		elapsed = time.Nanosecond
	}
	rate := float64(r.iterations) / elapsed.Seconds()

	fmt.Printf("%s: sent %s messages in %.3fs (%s msg/s)\n",
		label(r.role), humanize.Comma(int64(r.iterations)), elapsed.Seconds(),
		humanize.CommafWithDigits(rate, 0))
	log.Printf("Sender: round %d finished, %d messages in %v", round, r.iterations, elapsed)

	return RoundResult{Round: round, Sent: true, Count: r.iterations, Elapsed: elapsed, Rate: rate}
}

// describePartner logs who we are talking to. Purely diagnostic; a missing
// partner is warned about here and will surface again as an attach failure
// or an undercounted round.
func (r *Runner) describePartner() {
	pid := int32(r.partnerPID)
	if exists, err := process.PidExists(pid); err != nil || !exists {
		fmt.Fprintf(os.Stderr, "Warning: partner PID %d not found\n", r.partnerPID)
		return
	}
	if p, err := process.NewProcess(pid); err == nil {
		if name, err := p.Name(); err == nil {
			fmt.Printf("Partner process: %s (PID %d)\n", name, r.partnerPID)
			return
		}
	}
	fmt.Printf("Partner process: PID %d\n", r.partnerPID)
}

func otherRole(role shmem.Role) shmem.Role {
	if role == shmem.RoleServer {
		return shmem.RoleClient
	}
	return shmem.RoleServer
}

func label(role shmem.Role) string {
	if role == shmem.RoleServer {
		return "Server"
	}
	return "Client"
}
