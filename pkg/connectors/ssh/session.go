package ssh

import (
	"fmt"
	"net"
	"strconv"

	"golang.org/x/crypto/ssh"
)

// Client is an authenticated session against one host alias. It is the
// handle every other operation in this package (exec, put/get, launch,
// poll, kill) is a method on.
type Client struct {
	Alias string
	Entry HostEntry
	cfg   Config

	conn *ssh.Client
}

// Open resolves alias through the host alias file and dials it, attempting
// key-based authentication per auth.go. Connection attempts honor
// cfg.ConnectTimeout.
func Open(alias string, cfg Config) (*Client, error) {
	entry, err := ResolveAlias(alias)
	if err != nil {
		return nil, err
	}

	auth, err := keyAuthMethod(entry, cfg)
	if err != nil {
		return nil, err
	}

	clientCfg := &ssh.ClientConfig{
		User:            entry.User,
		Auth:            []ssh.AuthMethod{auth},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint:gosec // no known_hosts store in this service
		Timeout:         cfg.ConnectTimeout,
	}

	addr := net.JoinHostPort(entry.Hostname, strconv.Itoa(entry.Port))
	conn, err := ssh.Dial("tcp", addr, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("connect_failed: dialing %s: %w", addr, err)
	}

	return &Client{
		Alias: alias,
		Entry: entry,
		cfg:   cfg,
		conn:  conn,
	}, nil
}

// Close closes the underlying SSH connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	return c.conn.Close()
}
