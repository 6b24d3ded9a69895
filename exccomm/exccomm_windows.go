//go:build windows && (amd64 || arm64)

package exccomm

import (
	"fmt"
	"runtime"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	kernel32 = windows.NewLazySystemDLL("kernel32.dll")

	procRaiseException              = kernel32.NewProc("RaiseException")
	procDebugActiveProcess          = kernel32.NewProc("DebugActiveProcess")
	procDebugActiveProcessStop      = kernel32.NewProc("DebugActiveProcessStop")
	procWaitForDebugEvent           = kernel32.NewProc("WaitForDebugEvent")
	procContinueDebugEvent          = kernel32.NewProc("ContinueDebugEvent")
	procAddVectoredExceptionHandler = kernel32.NewProc("AddVectoredExceptionHandler")
)

const (
	exceptionDebugEvent = 1

	dbgContinue = 0x00010002

	// Vectored handler dispositions (LONG, widened to uintptr).
	exceptionContinueExecution = 0xFFFFFFFF
	exceptionContinueSearch    = 0
)

// exceptionRecord matches EXCEPTION_RECORD on 64-bit Windows.
type exceptionRecord struct {
	Code      uint32
	Flags     uint32
	Record    uintptr
	Address   uintptr
	NumParams uint32
	_         uint32
	Params    [15]uintptr
}

// exceptionPointers matches EXCEPTION_POINTERS.
type exceptionPointers struct {
	Record  *exceptionRecord
	Context uintptr
}

// debugEvent matches DEBUG_EVENT on 64-bit Windows. The union is decoded
// only for exception events, where it starts with an EXCEPTION_RECORD.
type debugEvent struct {
	EventCode uint32
	ProcessID uint32
	ThreadID  uint32
	_         uint32     // the union is pointer-aligned
	u         [20]uint64 // 160-byte union, sized by EXCEPTION_DEBUG_INFO
}

func (e *debugEvent) exceptionRecord() *exceptionRecord {
	return (*exceptionRecord)(unsafe.Pointer(&e.u[0]))
}

var handlerOnce sync.Once

// installLocalHandler registers a first-position vectored exception handler
// that resumes execution for sentinel raises. This is what lets a sender
// run without a debugger attached: the raise is swallowed in process and
// RaiseException returns normally. With a debugger attached, the
// first-chance event reaches the debugger before this handler runs.
func installLocalHandler() {
	handlerOnce.Do(func() {
		cb := windows.NewCallback(func(info *exceptionPointers) uintptr {
			if info.Record.Code == SentinelCode {
				return exceptionContinueExecution
			}
			return exceptionContinueSearch
		})
		procAddVectoredExceptionHandler.Call(1, cb)
	})
}

type winSender struct{}

// NewSender returns the native exception-raising sender.
func NewSender() (Sender, error) {
	installLocalHandler()
	return winSender{}, nil
}

// Raise raises one sentinel exception carrying the payload address and its
// byte length including a terminator. The payload only has to outlive the
// raise itself; the receiver never dereferences the address.
func (winSender) Raise(payload string) {
	buf := append([]byte(payload), 0)
	params := [2]uintptr{
		uintptr(unsafe.Pointer(&buf[0])),
		uintptr(len(buf)),
	}
	procRaiseException.Call(
		uintptr(uint32(SentinelCode)),
		0,
		uintptr(len(params)),
		uintptr(unsafe.Pointer(&params[0])),
	)
	runtime.KeepAlive(buf)
}

type winAttacher struct{}

// SystemAttacher returns the native debug-API attacher.
func SystemAttacher() Attacher { return winAttacher{} }

type winSession struct {
	pid uint32
}

// Attach attaches the calling process as a debugger of pid. The calling
// goroutine is pinned to its OS thread: Windows requires the attaching
// thread to service every subsequent debug call for the session.
func (winAttacher) Attach(pid uint32) (Session, error) {
	runtime.LockOSThread()
	r1, _, errno := procDebugActiveProcess.Call(uintptr(pid))
	if r1 == 0 {
		runtime.UnlockOSThread()
		return nil, fmt.Errorf("DebugActiveProcess(%d): %w", pid, errno)
	}
	return &winSession{pid: pid}, nil
}

func (s *winSession) Wait() (Event, error) {
	var raw debugEvent
	r1, _, errno := procWaitForDebugEvent.Call(
		uintptr(unsafe.Pointer(&raw)),
		uintptr(windows.INFINITE),
	)
	if r1 == 0 {
		return Event{}, fmt.Errorf("WaitForDebugEvent: %w", errno)
	}

	ev := Event{PID: raw.ProcessID, TID: raw.ThreadID}
	if raw.EventCode == exceptionDebugEvent {
		rec := raw.exceptionRecord()
		ev.Exception = true
		ev.Code = rec.Code
		ev.NumParams = rec.NumParams
		n := rec.NumParams
		if n > uint32(len(rec.Params)) {
			n = uint32(len(rec.Params))
		}
		ev.Params = append([]uintptr(nil), rec.Params[:n]...)
	}
	return ev, nil
}

func (s *winSession) Continue(ev Event) error {
	r1, _, errno := procContinueDebugEvent.Call(
		uintptr(ev.PID),
		uintptr(ev.TID),
		dbgContinue,
	)
	if r1 == 0 {
		return fmt.Errorf("ContinueDebugEvent: %w", errno)
	}
	return nil
}

func (s *winSession) Detach() error {
	defer runtime.UnlockOSThread()
	r1, _, errno := procDebugActiveProcessStop.Call(uintptr(s.pid))
	if r1 == 0 {
		return fmt.Errorf("DebugActiveProcessStop(%d): %w", s.pid, errno)
	}
	return nil
}
