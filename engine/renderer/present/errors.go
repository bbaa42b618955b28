package present

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedSurface       = errors.New("surface exposes no formats or present modes")
	ErrSwapchainCreationFailed  = errors.New("swapchain creation failed")
	ErrPipelineRebuildFailed    = errors.New("pipeline rebuild failed")
	ErrSyncObjectCreationFailed = errors.New("sync object creation failed")
	ErrCommandRecordingFailed   = errors.New("command recording failed")
	ErrWindowClosing            = errors.New("window closed while waiting for a drawable size")
	ErrNoGeneration             = errors.New("no live swapchain generation")
	ErrFrameFatal               = errors.New("unrecoverable frame error")
)

// FatalError reports a device result the frame loop cannot recover from.
// It matches ErrFrameFatal with errors.Is.
type FatalError struct {
	Op     string
	Result Result
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("%s failed with %s", e.Op, e.Result)
}

func (e *FatalError) Is(target error) bool {
	return target == ErrFrameFatal
}

func fatal(op string, r Result) error {
	return &FatalError{Op: op, Result: r}
}
