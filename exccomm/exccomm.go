// Package exccomm carries messages between two processes over structured
// exceptions: the sender raises a tagged exception whose parameters hold the
// payload address and length, and the receiver observes those raises as
// first-chance debug events from an attached debugger session.
package exccomm

import (
	"errors"
	"fmt"
	"log"
	"os"
)

// SentinelCode tags this protocol's exceptions among everything else the
// OS or CPU may raise in the sender process.
const SentinelCode = 0x1337

// ErrUnsupported is returned where the exception channel has no native
// implementation (anything but 64-bit Windows).
var ErrUnsupported = errors.New("exception channel requires windows on a 64-bit cpu")

// Event is one debug notification observed from an attached partner.
type Event struct {
	// Exception is true for exception events; thread/process lifecycle
	// and DLL notifications arrive with Exception false and are still
	// acknowledged by the counting loop.
	Exception bool
	Code      uint32
	NumParams uint32
	Params    []uintptr
	PID       uint32
	TID       uint32
}

// IsMessage reports whether ev is a protocol message: an exception event
// carrying the sentinel code and at least the address and length parameters.
func (ev Event) IsMessage() bool {
	return ev.Exception && ev.Code == SentinelCode && ev.NumParams >= 2
}

// Sender raises one protocol message per call. The raise is swallowed in
// the sender's own process, so calling it without a debugger attached is
// harmless; an attached partner sees it as a first-chance event.
type Sender interface {
	Raise(payload string)
}

// Session is an attached debugging session on a partner process. All calls
// must come from the goroutine that attached; the Windows implementation
// pins that goroutine to its OS thread.
type Session interface {
	// Wait blocks until the partner's next debug event.
	Wait() (Event, error)
	// Continue resumes the partner thread that reported ev. Every event
	// must be continued before the next Wait or the partner stays
	// suspended.
	Continue(ev Event) error
	// Detach ends the session and lets the partner run free.
	Detach() error
}

// Attacher opens debugging sessions on partner processes.
type Attacher interface {
	Attach(pid uint32) (Session, error)
}

// CountEvents drains s until target protocol messages have been observed,
// acknowledging every event along the way. It returns the number of
// messages counted, which is short of target when a wait or continue
// fails.
func CountEvents(s Session, target int) (int, error) {
	count := 0
	for count < target {
		ev, err := s.Wait()
		if err != nil {
			return count, fmt.Errorf("wait for debug event: %w", err)
		}
		if ev.IsMessage() {
			count++
		}
		if err := s.Continue(ev); err != nil {
			return count, fmt.Errorf("continue debug event: %w", err)
		}
	}
	return count, nil
}

// Receive attaches to the partner, counts target messages, and detaches.
// Failures are reported on stderr but never escalate: an attach failure
// returns a zero count and a truncated loop returns a partial one, and the
// caller's round simply ends short.
func Receive(a Attacher, partnerPID uint32, roleLabel string, target int) int {
	fmt.Printf("%s debugger: attaching to PID %d\n", roleLabel, partnerPID)
	log.Printf("Counter: attaching to PID %d", partnerPID)

	s, err := a.Attach(partnerPID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s debugger: attach failed: %v\n", roleLabel, err)
		return 0
	}

	count, err := CountEvents(s, target)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s debugger: %v\n", roleLabel, err)
	}

	if err := s.Detach(); err != nil {
		fmt.Fprintf(os.Stderr, "%s debugger: detach failed: %v\n", roleLabel, err)
	} else {
		fmt.Printf("%s debugger: detached from PID %d\n", roleLabel, partnerPID)
	}
	log.Printf("Counter: counted %d of %d messages from PID %d", count, target, partnerPID)
	return count
}
