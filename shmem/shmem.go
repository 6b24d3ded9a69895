// Package shmem implements role negotiation between the two benchmark
// instances through a named shared memory record holding both process ids.
package shmem

import (
	"errors"
	"fmt"
	"log"
	"time"
)

// Role is the side this process plays for the rest of its lifetime.
type Role int

const (
	RoleServer Role = iota
	RoleClient
)

func (r Role) String() string {
	if r == RoleServer {
		return "server"
	}
	return "client"
}

// ErrNoClient is returned when no second instance joins within the
// negotiation window.
var ErrNoClient = errors.New("client did not join")

// Region is one mapped view of the rendezvous record. The Windows
// implementation backs it with a named file mapping; a process-local
// stand-in backs it everywhere else. Each PID field has a single writer:
// server_pid is written only by the creator, client_pid only by the joiner.
type Region interface {
	// Created reports whether this process created the mapping fresh.
	// The creator is the server; an opener of a pre-existing mapping is
	// the client. Role comes from this explicit result, never from
	// ambient last-error state.
	Created() bool
	ServerPID() uint32
	SetServerPID(pid uint32)
	ClientPID() uint32
	SetClientPID(pid uint32)
	Close() error
}

// Open creates or opens the named rendezvous region.
func Open(name string) (Region, error) {
	return openRegion(name)
}

// Options configures a negotiation. Zero values fall back to the demo's
// timing (10s join window, 1s poll).
type Options struct {
	OwnPID       uint32
	JoinTimeout  time.Duration
	PollInterval time.Duration
	Sleep        func(time.Duration) // injectable for deterministic tests
}

// Result is a completed negotiation.
type Result struct {
	Role       Role
	PartnerPID uint32
}

// Negotiate resolves roles over an opened region. A creator publishes its
// own PID and polls for a client; an opener reads the server PID and
// publishes its own. The region stays mapped afterwards so the partner can
// still read it.
func Negotiate(r Region, opts Options) (Result, error) {
	if opts.JoinTimeout <= 0 {
		opts.JoinTimeout = 10 * time.Second
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	if !r.Created() {
		partner := r.ServerPID()
		r.SetClientPID(opts.OwnPID)
		log.Printf("Negotiator: joined as client, server PID %d", partner)
		return Result{Role: RoleClient, PartnerPID: partner}, nil
	}

	r.SetServerPID(opts.OwnPID)
	r.SetClientPID(0)

	steps := int(opts.JoinTimeout / opts.PollInterval)
	if steps < 1 {
		steps = 1
	}
	for i := 0; i < steps; i++ {
		if r.ClientPID() != 0 {
			break
		}
		sleep(opts.PollInterval)
	}
	partner := r.ClientPID()
	if partner == 0 {
		return Result{}, fmt.Errorf("negotiate after %v: %w", opts.JoinTimeout, ErrNoClient)
	}
	log.Printf("Negotiator: client PID %d joined", partner)
	return Result{Role: RoleServer, PartnerPID: partner}, nil
}
