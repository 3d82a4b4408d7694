package ssh

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// killGracePeriod is how long Kill waits after SIGTERM before escalating
// to SIGKILL.
const killGracePeriod = 2 * time.Second

// Kill terminates pid on the remote host, sending SIGTERM first and
// escalating to SIGKILL if the process is still alive after
// killGracePeriod. It reports whether the process was alive at all when
// Kill was called.
func (c *Client) Kill(ctx context.Context, pid int) (wasAlive bool, err error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.ReadTimeout)
	defer cancel()

	alive, err := c.isAlive(ctx, pid)
	if err != nil {
		return false, err
	}
	if !alive {
		return false, nil
	}

	if err := c.signal(ctx, pid, "-TERM"); err != nil {
		return true, err
	}

	select {
	case <-time.After(killGracePeriod):
	case <-ctx.Done():
		return true, &ErrTimeout{Op: "kill"}
	}

	stillAlive, err := c.isAlive(ctx, pid)
	if err != nil {
		return true, err
	}
	if !stillAlive {
		return true, nil
	}

	if err := c.signal(ctx, pid, "-KILL"); err != nil {
		return true, err
	}
	return true, nil
}

func (c *Client) signal(ctx context.Context, pid int, sig string) error {
	session, err := c.conn.NewSession()
	if err != nil {
		return fmt.Errorf("exec_failed: opening session: %w", err)
	}
	defer func() { _ = session.Close() }()

	remote := fmt.Sprintf("kill %s %d", sig, pid)
	if err := sessionRun(ctx, session, "kill", remote); err != nil {
		if errors.As(err, new(*ErrTimeout)) {
			return err
		}
		return fmt.Errorf("kill_failed: sending %s to pid %d: %w", sig, pid, err)
	}

	return nil
}

// Cleanup removes the spool files recorded for a finished background
// process, per spec.md's optional post-kill cleanup step.
func (c *Client) Cleanup(ctx context.Context, paths ...string) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.ReadTimeout)
	defer cancel()

	session, err := c.conn.NewSession()
	if err != nil {
		return fmt.Errorf("exec_failed: opening session: %w", err)
	}
	defer func() { _ = session.Close() }()

	remote := "rm -f"
	for _, p := range paths {
		remote += " " + shellQuote(p)
	}
	if err := sessionRun(ctx, session, "cleanup", remote); err != nil {
		if errors.As(err, new(*ErrTimeout)) {
			return err
		}
		return fmt.Errorf("exec_failed: cleaning up spool files: %w", err)
	}

	return nil
}
