// Package registry implements the process registry: process-wide, in-memory
// state mapping opaque process identifiers to process-tracking records. It
// has no persistence and no lifecycle beyond the service's own.
package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a tracked process.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusKilled    Status = "killed"
	StatusTimeout   Status = "timeout"
)

// Record is a single tracked process. StdoutPath/StderrPath/ExitPath are
// derived once at Start and never change; PID and ExitCode start unset and
// are filled in by later Update calls.
type Record struct {
	ID         string
	Host       string
	Command    string
	PID        int // 0 until the background launch succeeds
	CreatedAt  time.Time
	Status     Status
	ExitCode   *int
	StdoutPath string
	StderrPath string
	ExitPath   string // StdoutPath + ".exit"
}

// Registry is process-wide mutable state, safe for concurrent use. The
// zero value is not usable; construct with New.
type Registry struct {
	mu      sync.RWMutex
	records map[string]*Record
	tempDir string
}

// New creates an empty Registry rooted at tempDir for spool file paths.
// If tempDir is empty, os.TempDir() is used.
func New(tempDir string) *Registry {
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &Registry{
		records: make(map[string]*Record),
		tempDir: tempDir,
	}
}

// Start creates a new running record for host/command, allocating unique
// spool paths under the registry's temp dir, and returns a pointer to the
// stored record (its ID field holds the new id). The id is
// 8 hex characters and is collision-checked against existing records
// before insertion, per spec.md §3.
func (r *Registry) Start(host, command string) *Record {
	r.mu.Lock()
	defer r.mu.Unlock()

	var id string
	for {
		id = uuid.New().String()[:8]
		if _, exists := r.records[id]; !exists {
			break
		}
	}

	timestamp := time.Now().Format("20060102_150405")
	stdoutPath := filepath.Join(r.tempDir, fmt.Sprintf("mcp_ssh_%s_%s.out", id, timestamp))
	stderrPath := filepath.Join(r.tempDir, fmt.Sprintf("mcp_ssh_%s_%s.err", id, timestamp))

	rec := &Record{
		ID:         id,
		Host:       host,
		Command:    command,
		CreatedAt:  time.Now(),
		Status:     StatusRunning,
		StdoutPath: stdoutPath,
		StderrPath: stderrPath,
		ExitPath:   stdoutPath + ".exit",
	}
	r.records[id] = rec
	return rec
}

// Get returns a copy of the record for id, or false if unknown. A copy is
// returned so callers cannot mutate registry state without going through
// Update.
func (r *Registry) Get(id string) (Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// Update is a partial merge: zero-value fields in the patch are left
// untouched, mirroring the original's update_process(pid=None,
// status=None, exit_code=None) convention. Returns false if id is unknown.
type Update struct {
	PID      *int
	Status   Status
	ExitCode *int
}

func (r *Registry) Update(id string, u Update) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return false
	}
	if u.PID != nil {
		rec.PID = *u.PID
	}
	if u.Status != "" {
		rec.Status = u.Status
	}
	if u.ExitCode != nil {
		rec.ExitCode = u.ExitCode
	}
	return true
}

// Delete removes id from the registry. Used to roll back a Start call when
// the background launch that was supposed to follow it never succeeded, so
// a failed execute never leaves a dangling process id behind.
func (r *Registry) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, id)
}
