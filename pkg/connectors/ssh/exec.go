package ssh

import (
	"bytes"
	"context"
	"fmt"
)

// ErrTimeout marks a remote call that exceeded its bound. Callers project
// it onto status "timeout" per spec.md §7.
type ErrTimeout struct {
	Op string
}

func (e *ErrTimeout) Error() string {
	return fmt.Sprintf("timeout: %s exceeded its deadline", e.Op)
}

// execResult carries the outcome of a detached command run so it can be
// sent back over a channel once ready.
type execResult struct {
	stdout   string
	stderr   string
	exitCode int
	err      error
}

// Exec runs command on the remote host without a pseudo-terminal and waits
// for it to finish, bounded by cfg.CommandTimeout. Shell metacharacters or
// complex quoting trigger the simple or heredoc wrap (wrap.go) before the
// command is sent.
// On timeout, Exec returns the partial output accumulated so far alongside
// an *ErrTimeout.
func (c *Client) Exec(ctx context.Context, command string) (stdout, stderr string, exitCode int, err error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.CommandTimeout)
	defer cancel()

	session, err := c.conn.NewSession()
	if err != nil {
		return "", "", 0, fmt.Errorf("exec_failed: opening session: %w", err)
	}
	defer func() { _ = session.Close() }()

	var stdoutBuf, stderrBuf bytes.Buffer
	session.Stdout = &stdoutBuf
	session.Stderr = &stderrBuf

	remote := wrapCommand(command)

	done := make(chan error, 1)
	if startErr := session.Start(remote); startErr != nil {
		return "", "", 0, fmt.Errorf("exec_failed: starting command: %w", startErr)
	}
	go func() { done <- session.Wait() }()

	select {
	case <-ctx.Done():
		_ = session.Signal(Terminate())
		return stdoutBuf.String(), stderrBuf.String(), 0, &ErrTimeout{Op: "exec"}
	case waitErr := <-done:
		code := exitCodeFromWaitErr(waitErr)
		return stdoutBuf.String(), stderrBuf.String(), code, nil
	}
}
