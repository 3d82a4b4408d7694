package ssh

import (
	"context"
	"errors"

	"golang.org/x/crypto/ssh"
)

// Terminate returns the signal Exec sends to a session whose context
// deadline has expired.
func Terminate() ssh.Signal {
	return ssh.SIGTERM
}

// sessionOutput runs session.Output(remote) in a goroutine and races it
// against ctx, so a hung remote command is abandoned at the deadline
// instead of blocking forever — session.Output itself has no timeout
// parameter and returns only once the remote command exits. On timeout the
// session is signaled and *ErrTimeout{Op: op} is returned; the goroutine's
// eventual result is discarded once the channel is no longer read.
func sessionOutput(ctx context.Context, session *ssh.Session, op, remote string) ([]byte, error) {
	type result struct {
		out []byte
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := session.Output(remote)
		done <- result{out, err}
	}()

	select {
	case <-ctx.Done():
		_ = session.Signal(Terminate())
		return nil, &ErrTimeout{Op: op}
	case r := <-done:
		return r.out, r.err
	}
}

// sessionRun is sessionOutput's counterpart for session.Run, used where the
// remote command's output is discarded and only its error/exit status
// matters.
func sessionRun(ctx context.Context, session *ssh.Session, op, remote string) error {
	done := make(chan error, 1)
	go func() {
		done <- session.Run(remote)
	}()

	select {
	case <-ctx.Done():
		_ = session.Signal(Terminate())
		return &ErrTimeout{Op: op}
	case err := <-done:
		return err
	}
}

// exitCodeFromWaitErr extracts the remote exit code from the error
// returned by (*ssh.Session).Wait, which is nil on a clean zero exit and
// an *ssh.ExitError otherwise.
func exitCodeFromWaitErr(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitStatus()
	}
	return -1
}
