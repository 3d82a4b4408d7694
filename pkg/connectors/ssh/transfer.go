package ssh

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/pkg/sftp"
)

// Put uploads local to remote over SFTP, bounded by cfg.TransferTimeout.
// local must exist and be a regular file; this is checked up front so a
// bad path fails fast rather than after a partial transfer.
func (c *Client) Put(ctx context.Context, local, remote string) (int64, error) {
	info, err := os.Stat(local)
	if err != nil {
		return 0, fmt.Errorf("bad_input: local file does not exist: %w", err)
	}
	if !info.Mode().IsRegular() {
		return 0, fmt.Errorf("bad_input: local path is not a regular file: %s", local)
	}

	client, err := c.newSFTPClient()
	if err != nil {
		return 0, err
	}
	defer func() { _ = client.Close() }()

	ctx, cancel := context.WithTimeout(ctx, c.cfg.TransferTimeout)
	defer cancel()

	src, err := os.Open(local)
	if err != nil {
		return 0, fmt.Errorf("transfer_failed: opening local file: %w", err)
	}
	defer func() { _ = src.Close() }()

	dst, err := client.Create(remote)
	if err != nil {
		return 0, fmt.Errorf("transfer_failed: creating remote file: %w", err)
	}
	defer func() { _ = dst.Close() }()

	n, err := copyWithContext(ctx, dst, src)
	if err != nil {
		return n, fmt.Errorf("transfer_failed: %w", err)
	}
	return n, nil
}

// Get downloads remote to local over SFTP, bounded by cfg.TransferTimeout.
// remote must exist (probed via stat), matching the original's explicit
// existence check before opening the transfer.
func (c *Client) Get(ctx context.Context, remote, local string) (int64, error) {
	client, err := c.newSFTPClient()
	if err != nil {
		return 0, err
	}
	defer func() { _ = client.Close() }()

	if _, err := client.Stat(remote); err != nil {
		return 0, fmt.Errorf("transfer_failed: remote file does not exist: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.TransferTimeout)
	defer cancel()

	src, err := client.Open(remote)
	if err != nil {
		return 0, fmt.Errorf("transfer_failed: opening remote file: %w", err)
	}
	defer func() { _ = src.Close() }()

	dst, err := os.Create(local)
	if err != nil {
		return 0, fmt.Errorf("transfer_failed: creating local file: %w", err)
	}
	defer func() { _ = dst.Close() }()

	n, err := copyWithContext(ctx, dst, src)
	if err != nil {
		return n, fmt.Errorf("transfer_failed: %w", err)
	}

	info, err := os.Stat(local)
	if err != nil {
		return n, fmt.Errorf("transfer_failed: stat local file after transfer: %w", err)
	}
	return info.Size(), nil
}

func (c *Client) newSFTPClient() (*sftp.Client, error) {
	client, err := sftp.NewClient(c.conn)
	if err != nil {
		return nil, fmt.Errorf("transfer_failed: opening sftp session: %w", err)
	}
	return client, nil
}

// copyWithContext copies src to dst, aborting early if ctx is cancelled so
// a stalled transfer surfaces as a timeout rather than hanging forever.
func copyWithContext(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	type result struct {
		n   int64
		err error
	}
	done := make(chan result, 1)
	go func() {
		n, err := io.Copy(dst, src)
		done <- result{n, err}
	}()

	select {
	case <-ctx.Done():
		return 0, &ErrTimeout{Op: "transfer"}
	case r := <-done:
		return r.n, r.err
	}
}
