//go:build !windows

package shmem

import (
	"sync"
	"sync/atomic"
)

// Process-local stand-in for the named mapping so the tool and its tests
// build and run on non-Windows hosts. Both instances must live in the same
// process to rendezvous here, which only tests do.

var (
	regMu   sync.Mutex
	regions = map[string]*memState{}
)

type memState struct {
	serverPID atomic.Uint32
	clientPID atomic.Uint32
}

type memRegion struct {
	state   *memState
	created bool
}

func openRegion(name string) (Region, error) {
	regMu.Lock()
	defer regMu.Unlock()
	st, ok := regions[name]
	if !ok {
		st = &memState{}
		regions[name] = st
	}
	return &memRegion{state: st, created: !ok}, nil
}

func (r *memRegion) Created() bool { return r.created }

func (r *memRegion) ServerPID() uint32 { return r.state.serverPID.Load() }

func (r *memRegion) SetServerPID(pid uint32) { r.state.serverPID.Store(pid) }

func (r *memRegion) ClientPID() uint32 { return r.state.clientPID.Load() }

func (r *memRegion) SetClientPID(pid uint32) { r.state.clientPID.Store(pid) }

func (r *memRegion) Close() error { return nil }
