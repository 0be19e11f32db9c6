package cmd

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"strings"
)

// Clone makes a shallow clone of repoURL into dir.
func Clone(ctx context.Context, repoURL, dir string) error {
	cmd := exec.CommandContext(ctx, "git", "clone", "--depth=1", "--quiet", repoURL, dir)
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("git clone aborted: %w", ctx.Err())
		}
		return fmt.Errorf("git clone failed: %w: %s", err, RedactURL(strings.TrimSpace(stderr.String()), repoURL))
	}

	return nil
}

// RedactURL hides the credentials of repoURL wherever they appear in msg.
func RedactURL(msg, repoURL string) string {
	u, err := url.Parse(repoURL)
	if err != nil || u.User == nil {
		return msg
	}

	if pass, ok := u.User.Password(); ok && pass != "" {
		msg = strings.ReplaceAll(msg, pass, "*****")
	}

	return msg
}
