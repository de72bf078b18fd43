package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sys/unix"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckCreatableDirectory passes when path is an accessible directory or
// can be created under its nearest existing ancestor.
func CheckCreatableDirectory(name, path string) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "path not configured"}
	}
	if _, err := os.Stat(path); err == nil {
		return CheckDirectoryAccess(name, path)
	}
	ancestor := filepath.Dir(filepath.Clean(path))
	for {
		if _, err := os.Stat(ancestor); err == nil {
			break
		}
		parent := filepath.Dir(ancestor)
		if parent == ancestor {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: no existing parent)", path)}
		}
		ancestor = parent
	}
	parent := CheckDirectoryAccess(name, ancestor)
	if !parent.Passed {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: cannot create under %s)", path, parent.Detail)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (will be created)", path)}
}

// CheckCommand verifies that a build command resolves on PATH.
func CheckCommand(name, command string) Result {
	command = strings.TrimSpace(command)
	if command == "" {
		return Result{Name: name, Detail: "no command configured"}
	}
	resolved, err := exec.LookPath(command)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not found on PATH)", command)}
	}
	return Result{Name: name, Passed: true, Detail: resolved}
}

// CheckEndpoint verifies that an HTTP endpoint answers. Any response below
// 500 counts as reachable; authentication is checked by the client later.
func CheckEndpoint(ctx context.Context, name, rawURL string) Result {
	base := strings.TrimRight(strings.TrimSpace(rawURL), "/")
	if base == "" {
		return Result{Name: name, Detail: "missing url"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	client := &http.Client{Timeout: 5 * time.Second}
	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, base, nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("request failed (%v)", err)}
	}

	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: summarizeEndpointError(err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: status %d)", base, resp.StatusCode)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (reachable)", base)}
}

func summarizeEndpointError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timed out (endpoint unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timed out (endpoint unreachable)"
	}
	return err.Error()
}
