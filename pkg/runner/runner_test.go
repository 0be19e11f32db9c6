package runner

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExitError(t *testing.T) {
	tests := []struct {
		name     string
		err      *ExitError
		contains string
		maxLen   int
	}{
		{
			name:     "short",
			err:      &ExitError{Image: "aquasec/trivy:latest", Code: 2, Stderr: "  no such file\n"},
			contains: "aquasec/trivy:latest exited with code 2: no such file",
		},
		{
			name:     "truncated",
			err:      &ExitError{Image: "semgrep", Code: 1, Stderr: strings.Repeat("x", 1000)},
			contains: " ...",
			maxLen:   400,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			assert.Contains(t, msg, tt.contains)
			if tt.maxLen > 0 {
				assert.LessOrEqual(t, len(msg), tt.maxLen)
			}
		})
	}
}

func TestExitErrorAs(t *testing.T) {
	var err error = &ExitError{Image: "img", Code: 3}

	var exitErr *ExitError
	assert.True(t, errors.As(err, &exitErr))
	assert.Equal(t, int64(3), exitErr.Code)
}
