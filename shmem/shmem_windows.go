//go:build windows

package shmem

import (
	"fmt"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/windows"
)

// Rendezvous record layout: two little-endian uint32 PIDs.
const (
	serverPIDOffset = 0
	clientPIDOffset = 4
	recordSize      = 8
)

type winRegion struct {
	handle  windows.Handle
	view    unsafe.Pointer
	created bool
}

func openRegion(name string) (Region, error) {
	namep, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return nil, fmt.Errorf("mapping name %q: %w", name, err)
	}

	// CreateFileMapping opens an existing mapping of the same name; the
	// already-exists errno comes back alongside the valid handle and is
	// the role signal.
	handle, err := windows.CreateFileMapping(
		windows.InvalidHandle, nil, windows.PAGE_READWRITE, 0, recordSize, namep)
	created := true
	if err != nil {
		if handle != 0 && err == windows.ERROR_ALREADY_EXISTS {
			created = false
		} else {
			return nil, fmt.Errorf("create file mapping %q: %w", name, err)
		}
	}

	addr, err := windows.MapViewOfFile(
		handle, windows.FILE_MAP_READ|windows.FILE_MAP_WRITE, 0, 0, recordSize)
	if err != nil {
		windows.CloseHandle(handle)
		return nil, fmt.Errorf("map view of %q: %w", name, err)
	}

	return &winRegion{
		handle:  handle,
		view:    unsafe.Pointer(addr),
		created: created,
	}, nil
}

func (r *winRegion) Created() bool { return r.created }

func (r *winRegion) field(offset uintptr) *uint32 {
	return (*uint32)(unsafe.Pointer(uintptr(r.view) + offset))
}

func (r *winRegion) ServerPID() uint32 {
	return atomic.LoadUint32(r.field(serverPIDOffset))
}

func (r *winRegion) SetServerPID(pid uint32) {
	atomic.StoreUint32(r.field(serverPIDOffset), pid)
}

func (r *winRegion) ClientPID() uint32 {
	return atomic.LoadUint32(r.field(clientPIDOffset))
}

func (r *winRegion) SetClientPID(pid uint32) {
	atomic.StoreUint32(r.field(clientPIDOffset), pid)
}

func (r *winRegion) Close() error {
	if err := windows.UnmapViewOfFile(uintptr(r.view)); err != nil {
		windows.CloseHandle(r.handle)
		return fmt.Errorf("unmap view: %w", err)
	}
	if err := windows.CloseHandle(r.handle); err != nil {
		return fmt.Errorf("close mapping handle: %w", err)
	}
	return nil
}
