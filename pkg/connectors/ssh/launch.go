package ssh

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrLaunchFailed marks a background launch whose PID could not be
// recovered from the remote shell, per spec.md's launch_failed error kind.
type ErrLaunchFailed struct {
	Reason string
}

func (e *ErrLaunchFailed) Error() string {
	return fmt.Sprintf("launch_failed: %s", e.Reason)
}

// Launch starts command detached on the remote host, redirecting its
// stdout/stderr to the given spool paths and recording its exit code to
// exitPath once it finishes. It returns the backgrounded process's PID.
//
// The remote wrapper is the classic nohup/disown idiom: the command runs
// inside its own subshell so that job control signals sent to the SSH
// session (which exits immediately after echoing the PID) don't propagate
// to it, and '$?' is captured into exitPath right after the subshell exits.
func (c *Client) Launch(ctx context.Context, command, stdoutPath, stderrPath, exitPath string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.ReadTimeout)
	defer cancel()

	session, err := c.conn.NewSession()
	if err != nil {
		return 0, fmt.Errorf("launch_failed: opening session: %w", err)
	}
	defer func() { _ = session.Close() }()

	inner := wrapCommand(command)
	remote := fmt.Sprintf(
		"nohup bash -c %s > %s 2> %s < /dev/null & echo $!",
		shellQuote(fmt.Sprintf("%s\necho $? > %s", inner, shellQuote(exitPath))),
		shellQuote(stdoutPath),
		shellQuote(stderrPath),
	)

	out, err := sessionOutput(ctx, session, "launch", remote)
	if err != nil {
		if errors.As(err, new(*ErrTimeout)) {
			return 0, err
		}
		return 0, fmt.Errorf("launch_failed: starting background command: %w", err)
	}

	pidText := strings.TrimSpace(string(out))
	pid, convErr := strconv.Atoi(pidText)
	if convErr != nil {
		return 0, &ErrLaunchFailed{Reason: fmt.Sprintf("remote did not return a numeric pid (got %q)", pidText)}
	}

	return pid, nil
}
