package ssh

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ProcessState is the liveness/exit snapshot read off a spooled background
// process, combining a `kill -0` liveness probe with whatever exit code has
// been written to its exit-status file so far.
type ProcessState struct {
	Alive    bool
	ExitCode *int
}

// StatusOnly probes whether pid is still alive on the remote host and, if
// not, reads back its recorded exit code from exitPath. It never touches
// stdout/stderr, making it cheap enough to poll frequently.
func (c *Client) StatusOnly(ctx context.Context, pid int, exitPath string) (ProcessState, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.ReadTimeout)
	defer cancel()

	alive, err := c.isAlive(ctx, pid)
	if err != nil {
		return ProcessState{}, err
	}
	if alive {
		return ProcessState{Alive: true}, nil
	}

	code, err := c.readExitCode(ctx, exitPath)
	if err != nil {
		// Process has exited but its exit file is missing or unreadable;
		// report it as exited with no exit code rather than erroring the
		// whole call.
		return ProcessState{Alive: false}, nil
	}
	return ProcessState{Alive: false, ExitCode: &code}, nil
}

// Poll reads up to maxBytes from stdout and maxBytes/2 from stderr,
// alongside the process's current liveness/exit state. Capping stderr at
// half the stdout budget keeps a chatty error stream from starving the
// caller's view of stdout, per spec.md §4.5.
func (c *Client) Poll(ctx context.Context, pid int, stdoutPath, stderrPath, exitPath string, maxBytes int64) (stdout, stderr string, state ProcessState, err error) {
	state, err = c.StatusOnly(ctx, pid, exitPath)
	if err != nil {
		return "", "", ProcessState{}, err
	}

	stdout, err = c.readFileBounded(ctx, stdoutPath, maxBytes)
	if err != nil {
		return "", "", state, err
	}
	stderr, err = c.readFileBounded(ctx, stderrPath, maxBytes/2)
	if err != nil {
		return "", "", state, err
	}
	return stdout, stderr, state, nil
}

// Chunk returns a byte-range slice [offset, offset+size) of path, using the
// `tail -c +N | head -c size` idiom so arbitrarily large spool files never
// have to be read in full over the SSH channel.
func (c *Client) Chunk(ctx context.Context, path string, offset, size int64) (data string, totalSize int64, err error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.ReadTimeout)
	defer cancel()

	total, err := c.fileSize(ctx, path)
	if err != nil {
		return "", 0, err
	}

	remote := fmt.Sprintf("tail -c +%d %s | head -c %d", offset+1, shellQuote(path), size)
	session, err := c.conn.NewSession()
	if err != nil {
		return "", 0, fmt.Errorf("exec_failed: opening session: %w", err)
	}
	defer func() { _ = session.Close() }()

	out, err := sessionOutput(ctx, session, "chunk", remote)
	if err != nil {
		if errors.As(err, new(*ErrTimeout)) {
			return "", 0, err
		}
		return "", 0, fmt.Errorf("exec_failed: reading chunk: %w", err)
	}

	return string(out), total, nil
}

func (c *Client) isAlive(ctx context.Context, pid int) (bool, error) {
	session, err := c.conn.NewSession()
	if err != nil {
		return false, fmt.Errorf("exec_failed: opening session: %w", err)
	}
	defer func() { _ = session.Close() }()

	remote := fmt.Sprintf("kill -0 %d", pid)
	if err := sessionRun(ctx, session, "status", remote); err != nil {
		if errors.As(err, new(*ErrTimeout)) {
			return false, err
		}
		// Non-zero exit means the process is gone, not a transport error.
		return false, nil
	}

	return true, nil
}

func (c *Client) readExitCode(ctx context.Context, exitPath string) (int, error) {
	text, err := c.readFile(ctx, exitPath)
	if err != nil {
		return 0, err
	}
	code, convErr := strconv.Atoi(strings.TrimSpace(text))
	if convErr != nil {
		return 0, fmt.Errorf("exit code file %s does not contain a number: %w", exitPath, convErr)
	}
	return code, nil
}

func (c *Client) readFile(ctx context.Context, path string) (string, error) {
	session, err := c.conn.NewSession()
	if err != nil {
		return "", fmt.Errorf("exec_failed: opening session: %w", err)
	}
	defer func() { _ = session.Close() }()

	out, err := sessionOutput(ctx, session, "read", fmt.Sprintf("cat %s 2>/dev/null", shellQuote(path)))
	if err != nil {
		if errors.As(err, new(*ErrTimeout)) {
			return "", err
		}
		return "", fmt.Errorf("exec_failed: reading %s: %w", path, err)
	}

	return string(out), nil
}

// readFileBounded reads at most maxBytes from the head of path. A maxBytes
// of zero or less reads nothing and returns an empty string.
func (c *Client) readFileBounded(ctx context.Context, path string, maxBytes int64) (string, error) {
	if maxBytes <= 0 {
		return "", nil
	}

	session, err := c.conn.NewSession()
	if err != nil {
		return "", fmt.Errorf("exec_failed: opening session: %w", err)
	}
	defer func() { _ = session.Close() }()

	out, err := sessionOutput(ctx, session, "read", fmt.Sprintf("head -c %d %s 2>/dev/null", maxBytes, shellQuote(path)))
	if err != nil {
		if errors.As(err, new(*ErrTimeout)) {
			return "", err
		}
		return "", fmt.Errorf("exec_failed: reading %s: %w", path, err)
	}

	return string(out), nil
}

func (c *Client) fileSize(ctx context.Context, path string) (int64, error) {
	session, err := c.conn.NewSession()
	if err != nil {
		return 0, fmt.Errorf("exec_failed: opening session: %w", err)
	}
	defer func() { _ = session.Close() }()

	out, err := sessionOutput(ctx, session, "stat", fmt.Sprintf("wc -c < %s 2>/dev/null", shellQuote(path)))
	if err != nil {
		if errors.As(err, new(*ErrTimeout)) {
			return 0, err
		}
		return 0, nil
	}

	n, convErr := strconv.ParseInt(strings.TrimSpace(string(out)), 10, 64)
	if convErr != nil {
		return 0, nil
	}
	return n, nil
}
