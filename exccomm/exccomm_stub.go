//go:build !windows || (!amd64 && !arm64)

package exccomm

// NewSender reports that the exception channel is unavailable here.
func NewSender() (Sender, error) {
	return nil, ErrUnsupported
}

type stubAttacher struct{}

// SystemAttacher returns an attacher whose Attach always fails with
// ErrUnsupported.
func SystemAttacher() Attacher { return stubAttacher{} }

func (stubAttacher) Attach(pid uint32) (Session, error) {
	return nil, ErrUnsupported
}
