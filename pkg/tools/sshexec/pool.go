package sshexec

import (
	"fmt"
	"sync"

	"github.com/tb0hdan/remote-debugger-mcp/pkg/connectors/ssh"
)

// pool hands out SSH clients per host alias. With connection reuse disabled
// (the default) it is a thin pass-through: every acquire dials fresh and
// every release closes the connection. With reuse enabled, one client is
// kept per alias and its mutex serializes exec calls over it, since the
// underlying ssh.Client multiplexes channels but this package does not
// assume individual operations are safe to interleave on one session.
type pool struct {
	cfg   ssh.Config
	reuse bool
	mu    sync.Mutex
	conns map[string]*pooledConn
}

type pooledConn struct {
	mu     sync.Mutex
	client *ssh.Client
}

func newPool(cfg ssh.Config) *pool {
	return &pool{
		cfg:   cfg,
		reuse: cfg.ConnectionReuse,
		conns: make(map[string]*pooledConn),
	}
}

// release, returned by acquire, must be called exactly once when the caller
// is done with the client.
type release func()

func (p *pool) acquire(alias string) (*ssh.Client, release, error) {
	if !p.reuse {
		client, err := ssh.Open(alias, p.cfg)
		if err != nil {
			return nil, nil, err
		}
		return client, func() { _ = client.Close() }, nil
	}

	p.mu.Lock()
	pc, ok := p.conns[alias]
	if !ok {
		pc = &pooledConn{}
		p.conns[alias] = pc
	}
	p.mu.Unlock()

	pc.mu.Lock()
	if pc.client == nil {
		client, err := ssh.Open(alias, p.cfg)
		if err != nil {
			pc.mu.Unlock()
			return nil, nil, err
		}
		pc.client = client
	}
	client := pc.client
	return client, func() { pc.mu.Unlock() }, nil
}

// closeAll closes every pooled connection. Called during service shutdown.
func (p *pool) closeAll() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	for alias, pc := range p.conns {
		pc.mu.Lock()
		if pc.client != nil {
			if err := pc.client.Close(); err != nil && firstErr == nil {
				firstErr = fmt.Errorf("closing pooled connection to %s: %w", alias, err)
			}
			pc.client = nil
		}
		pc.mu.Unlock()
	}
	return firstErr
}
