package runner

import (
	"context"
	"fmt"
	"strings"
)

// MountPoint is where the scanned directory appears inside the container.
const MountPoint = "/src"

// ContainerRunner runs one command in a throwaway container with mountDir
// mounted at MountPoint and returns what the command wrote to stdout.
type ContainerRunner interface {
	Run(ctx context.Context, image string, command []string, mountDir string) ([]byte, error)
}

// ExitError is returned when the container command exits non-zero.
type ExitError struct {
	Image  string
	Code   int64
	Stderr string
}

func (e *ExitError) Error() string {
	stderr := strings.TrimSpace(e.Stderr)
	if len(stderr) > 300 {
		stderr = stderr[:300] + " ..."
	}
	return fmt.Sprintf("%s exited with code %d: %s", e.Image, e.Code, stderr)
}
