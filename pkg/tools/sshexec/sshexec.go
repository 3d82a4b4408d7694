// Package sshexec is the tool surface (component G): the five MCP
// operations (execute_command, get_command_output, get_command_status,
// kill_command, transfer_file) plus the ssh://hosts resource, wiring the
// safety gate, the process registry, and the SSH session layer together.
package sshexec

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"github.com/tb0hdan/remote-debugger-mcp/pkg/connectors/ssh"
	"github.com/tb0hdan/remote-debugger-mcp/pkg/registry"
	"github.com/tb0hdan/remote-debugger-mcp/pkg/security"
	"github.com/tb0hdan/remote-debugger-mcp/pkg/server"
	"github.com/tb0hdan/remote-debugger-mcp/pkg/tools"
)

// ExecuteInput is the input to execute_command.
type ExecuteInput struct {
	Host    string `json:"host" validate:"required,min=1,max=253"`
	Command string `json:"command" validate:"required,min=1,max=2000"`
}

// CommandOutput is the shared response shape for execute_command and
// get_command_output, per spec.md §6.
type CommandOutput struct {
	Success       bool    `json:"success"`
	ProcessID     string  `json:"process_id"`
	Status        string  `json:"status"`
	Stdout        string  `json:"stdout"`
	Stderr        string  `json:"stderr"`
	ExitCode      int     `json:"exit_code"`
	ExecutionTime float64 `json:"execution_time"`
	OutputSize    int     `json:"output_size"`
	HasMoreOutput bool    `json:"has_more_output"`
	ChunkStart    int64   `json:"chunk_start"`
	ErrorMessage  string  `json:"error_message"`
}

// GetOutputInput is the input to get_command_output.
type GetOutputInput struct {
	ProcessID string `json:"process_id" validate:"required"`
	StartByte int64  `json:"start_byte" validate:"min=0"`
	ChunkSize int64  `json:"chunk_size,omitempty" validate:"omitempty,min=1,max=100000"`
}

// GetStatusInput is the input to get_command_status.
type GetStatusInput struct {
	ProcessID string `json:"process_id" validate:"required"`
}

// StatusOutput is the response shape for get_command_status.
type StatusOutput struct {
	Success       bool    `json:"success"`
	ProcessID     string  `json:"process_id"`
	Status        string  `json:"status"`
	ExitCode      int     `json:"exit_code"`
	ExecutionTime float64 `json:"execution_time"`
	ErrorMessage  string  `json:"error_message"`
}

// KillInput is the input to kill_command. CleanupFiles defaults to true
// when omitted, matching spec.md §3's kill request default.
type KillInput struct {
	ProcessID    string `json:"process_id" validate:"required"`
	CleanupFiles *bool  `json:"cleanup_files,omitempty"`
}

// KillOutput is the response shape for kill_command.
type KillOutput struct {
	Success      bool   `json:"success"`
	ProcessID    string `json:"process_id"`
	Message      string `json:"message"`
	ErrorMessage string `json:"error_message"`
}

// TransferInput is the input to transfer_file.
type TransferInput struct {
	Host       string `json:"host" validate:"required,min=1,max=253"`
	LocalPath  string `json:"local_path" validate:"required"`
	RemotePath string `json:"remote_path" validate:"required"`
	Direction  string `json:"direction" validate:"required,oneof=upload download"`
}

// TransferOutput is the response shape for transfer_file.
type TransferOutput struct {
	Success          bool   `json:"success"`
	BytesTransferred int64  `json:"bytes_transferred"`
	LocalPath        string `json:"local_path"`
	RemotePath       string `json:"remote_path"`
	Host             string `json:"host"`
	ErrorMessage     string `json:"error_message"`
}

// Tool wires the command safety gate, process registry, and pooled SSH
// sessions into the five MCP operations.
type Tool struct {
	logger    zerolog.Logger
	validator *validator.Validate
	gate      *security.Gate
	reg       *registry.Registry
	pool      *pool
	cfg       toolConfig
}

// New builds a Tool from the MCP_SSH_* environment, the way the original
// service bootstraps its connector, validator, and security gate once at
// startup.
func New(logger zerolog.Logger) tools.Tool {
	scoped := logger.With().Str("tool", "sshexec").Logger()
	tcfg := newToolConfigFromEnv()
	sshCfg := ssh.NewConfigFromEnv()

	return &Tool{
		logger:    scoped,
		validator: validator.New(),
		gate:      security.NewGateFromEnv(scoped),
		reg:       registry.New(tcfg.tempDir),
		pool:      newPool(sshCfg),
		cfg:       tcfg,
	}
}

// SecurityInfo exposes the command safety gate's configuration snapshot so
// cmd/debugger can log it at startup without reaching into Tool internals.
func (t *Tool) SecurityInfo() security.Info {
	return t.gate.Info()
}

// Close releases every pooled SSH connection. Called during service
// shutdown; safe to call even when connection reuse is disabled.
func (t *Tool) Close() error {
	return t.pool.closeAll()
}

func (t *Tool) Register(srv *server.Server) {
	mcp.AddTool(&srv.Server, &mcp.Tool{
		Name:        "execute_command",
		Description: "Run a shell command on a remote host over SSH, detached so long-running commands return promptly",
	}, t.ExecuteCommand)

	mcp.AddTool(&srv.Server, &mcp.Tool{
		Name:        "get_command_output",
		Description: "Read a byte-ranged chunk of a previously started command's output",
	}, t.GetCommandOutput)

	mcp.AddTool(&srv.Server, &mcp.Tool{
		Name:        "get_command_status",
		Description: "Check liveness and exit status of a previously started command",
	}, t.GetCommandStatus)

	mcp.AddTool(&srv.Server, &mcp.Tool{
		Name:        "kill_command",
		Description: "Terminate a previously started command, escalating from SIGTERM to SIGKILL",
	}, t.KillCommand)

	mcp.AddTool(&srv.Server, &mcp.Tool{
		Name:        "transfer_file",
		Description: "Upload or download a file between the local filesystem and a remote host over SFTP",
	}, t.TransferFile)

	t.registerHostsResource(srv)
	t.logger.Debug().Msg("sshexec tools registered")
}

// ExecuteCommand implements execute_command: validate, gate, launch, then a
// single quick-wait poll so fast commands complete in one round-trip.
func (t *Tool) ExecuteCommand(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[ExecuteInput]) (*mcp.CallToolResultFor[CommandOutput], error) {
	input := params.Arguments
	if err := t.validator.Struct(input); err != nil {
		return textResult(CommandOutput{Status: "failed", ErrorMessage: fmt.Sprintf("bad_input: %v", err)}), nil
	}

	if allowed, reason := t.gate.Validate(input.Command, input.Host); !allowed {
		return textResult(CommandOutput{Status: "failed", ErrorMessage: "Security policy violation: " + reason}), nil
	}

	client, release, err := t.pool.acquire(input.Host)
	if err != nil {
		return textResult(CommandOutput{Status: "failed", ErrorMessage: err.Error()}), nil
	}
	defer release()

	rec := t.reg.Start(input.Host, input.Command)

	pid, err := client.Launch(ctx, input.Command, rec.StdoutPath, rec.StderrPath, rec.ExitPath)
	if err != nil {
		t.reg.Delete(rec.ID)
		return textResult(t.launchFailureOutput(err)), nil
	}
	t.reg.Update(rec.ID, registry.Update{PID: &pid})

	t.quickWait(ctx)

	stdout, stderr, state, err := client.Poll(ctx, pid, rec.StdoutPath, rec.StderrPath, rec.ExitPath, t.cfg.maxOutputSize)
	if err != nil {
		status := registry.StatusTimeout
		if !errors.As(err, new(*ssh.ErrTimeout)) {
			status = registry.StatusFailed
		}
		t.reg.Update(rec.ID, registry.Update{Status: status})
		return textResult(CommandOutput{
			Success:      status == registry.StatusTimeout,
			ProcessID:    rec.ID,
			Status:       string(status),
			ErrorMessage: err.Error(),
		}), nil
	}

	status, exitCode := t.applyState(rec.ID, state)

	return textResult(CommandOutput{
		Success:       true,
		ProcessID:     rec.ID,
		Status:        string(status),
		Stdout:        stdout,
		Stderr:        stderr,
		ExitCode:      exitCode,
		ExecutionTime: time.Since(rec.CreatedAt).Seconds(),
		OutputSize:    len(stdout),
		HasMoreOutput: int64(len(stdout)) >= t.cfg.maxOutputSize,
		ChunkStart:    0,
	}), nil
}

// GetCommandOutput implements get_command_output: a byte-ranged read of
// the stdout spool via Chunk.
func (t *Tool) GetCommandOutput(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[GetOutputInput]) (*mcp.CallToolResultFor[CommandOutput], error) {
	input := params.Arguments
	if err := t.validator.Struct(input); err != nil {
		return textResult(CommandOutput{Status: "failed", ErrorMessage: fmt.Sprintf("bad_input: %v", err)}), nil
	}

	rec, ok := t.reg.Get(input.ProcessID)
	if !ok {
		return textResult(CommandOutput{Status: "failed", ErrorMessage: "not_found: unknown process id " + input.ProcessID}), nil
	}

	chunkSize := t.cfg.chunkSize
	if input.ChunkSize > 0 {
		chunkSize = input.ChunkSize
	}

	client, release, err := t.pool.acquire(rec.Host)
	if err != nil {
		return textResult(CommandOutput{ProcessID: rec.ID, Status: string(rec.Status), ErrorMessage: err.Error()}), nil
	}
	defer release()

	data, total, err := client.Chunk(ctx, rec.StdoutPath, input.StartByte, chunkSize)
	if err != nil {
		status := registry.StatusTimeout
		if !errors.As(err, new(*ssh.ErrTimeout)) {
			status = rec.Status
		}
		return textResult(CommandOutput{ProcessID: rec.ID, Status: string(status), ErrorMessage: err.Error()}), nil
	}

	var status registry.Status
	var exitCode int
	if rec.Status != registry.StatusRunning {
		status = rec.Status
		if rec.ExitCode != nil {
			exitCode = *rec.ExitCode
		}
	} else {
		state, err := client.StatusOnly(ctx, rec.PID, rec.ExitPath)
		if err != nil {
			return textResult(CommandOutput{ProcessID: rec.ID, Status: string(rec.Status), ErrorMessage: err.Error()}), nil
		}
		status, exitCode = t.applyState(rec.ID, state)
	}

	hasMore := input.StartByte+int64(len(data)) < total

	return textResult(CommandOutput{
		Success:       true,
		ProcessID:     rec.ID,
		Status:        string(status),
		Stdout:        data,
		ExitCode:      exitCode,
		ExecutionTime: time.Since(rec.CreatedAt).Seconds(),
		OutputSize:    len(data),
		HasMoreOutput: hasMore,
		ChunkStart:    input.StartByte,
	}), nil
}

// GetCommandStatus implements get_command_status: the cheapest operation,
// a liveness probe with no output reads.
func (t *Tool) GetCommandStatus(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[GetStatusInput]) (*mcp.CallToolResultFor[StatusOutput], error) {
	input := params.Arguments
	if err := t.validator.Struct(input); err != nil {
		return statusResult(StatusOutput{ErrorMessage: fmt.Sprintf("bad_input: %v", err)}), nil
	}

	rec, ok := t.reg.Get(input.ProcessID)
	if !ok {
		return statusResult(StatusOutput{ErrorMessage: "not_found: unknown process id " + input.ProcessID}), nil
	}

	if rec.Status != registry.StatusRunning {
		exitCode := 0
		if rec.ExitCode != nil {
			exitCode = *rec.ExitCode
		}
		return statusResult(StatusOutput{
			Success:       true,
			ProcessID:     rec.ID,
			Status:        string(rec.Status),
			ExitCode:      exitCode,
			ExecutionTime: time.Since(rec.CreatedAt).Seconds(),
		}), nil
	}

	client, release, err := t.pool.acquire(rec.Host)
	if err != nil {
		return statusResult(StatusOutput{ProcessID: rec.ID, Status: string(rec.Status), ErrorMessage: err.Error()}), nil
	}
	defer release()

	state, err := client.StatusOnly(ctx, rec.PID, rec.ExitPath)
	if err != nil {
		status := registry.StatusTimeout
		if !errors.As(err, new(*ssh.ErrTimeout)) {
			status = rec.Status
		}
		return statusResult(StatusOutput{Success: status == registry.StatusTimeout, ProcessID: rec.ID, Status: string(status), ErrorMessage: err.Error()}), nil
	}

	status, exitCode := t.applyState(rec.ID, state)
	return statusResult(StatusOutput{
		Success:       true,
		ProcessID:     rec.ID,
		Status:        string(status),
		ExitCode:      exitCode,
		ExecutionTime: time.Since(rec.CreatedAt).Seconds(),
	}), nil
}

// KillCommand implements kill_command: escalating SIGTERM/SIGKILL via
// ssh.Client.Kill, with optional spool cleanup.
func (t *Tool) KillCommand(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[KillInput]) (*mcp.CallToolResultFor[KillOutput], error) {
	input := params.Arguments
	if err := t.validator.Struct(input); err != nil {
		return killResult(KillOutput{ErrorMessage: fmt.Sprintf("bad_input: %v", err)}), nil
	}

	rec, ok := t.reg.Get(input.ProcessID)
	if !ok {
		return killResult(KillOutput{ErrorMessage: "not_found: unknown process id " + input.ProcessID}), nil
	}
	if rec.Status != registry.StatusRunning {
		return killResult(KillOutput{ProcessID: rec.ID, ErrorMessage: "not_running: process is not running"}), nil
	}

	cleanup := true
	if input.CleanupFiles != nil {
		cleanup = *input.CleanupFiles
	}

	client, release, err := t.pool.acquire(rec.Host)
	if err != nil {
		return killResult(KillOutput{ProcessID: rec.ID, ErrorMessage: err.Error()}), nil
	}
	defer release()

	wasAlive, err := client.Kill(ctx, rec.PID)
	if err != nil {
		return killResult(KillOutput{ProcessID: rec.ID, ErrorMessage: err.Error()}), nil
	}
	if !wasAlive {
		return killResult(KillOutput{ProcessID: rec.ID, ErrorMessage: "not_running: process is not running"}), nil
	}

	t.reg.Update(rec.ID, registry.Update{Status: registry.StatusKilled})

	message := "terminated gracefully"
	stillAlive, statusErr := client.StatusOnly(ctx, rec.PID, rec.ExitPath)
	if statusErr == nil && stillAlive.Alive {
		message = "force killed"
	}

	if cleanup {
		if err := client.Cleanup(ctx, rec.StdoutPath, rec.StderrPath, rec.ExitPath); err != nil {
			message += fmt.Sprintf("; warning: cleanup failed: %v", err)
		}
	}

	return killResult(KillOutput{Success: true, ProcessID: rec.ID, Message: message}), nil
}

// TransferFile implements transfer_file: SFTP upload or download bounded by
// the transfer timeout.
func (t *Tool) TransferFile(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[TransferInput]) (*mcp.CallToolResultFor[TransferOutput], error) {
	input := params.Arguments
	if err := t.validator.Struct(input); err != nil {
		return transferResult(TransferOutput{ErrorMessage: fmt.Sprintf("bad_input: %v", err)}), nil
	}

	client, release, err := t.pool.acquire(input.Host)
	if err != nil {
		return transferResult(TransferOutput{Host: input.Host, ErrorMessage: err.Error()}), nil
	}
	defer release()

	var n int64
	switch input.Direction {
	case "upload":
		n, err = client.Put(ctx, input.LocalPath, input.RemotePath)
	case "download":
		n, err = client.Get(ctx, input.RemotePath, input.LocalPath)
	}
	if err != nil {
		return transferResult(TransferOutput{Host: input.Host, LocalPath: input.LocalPath, RemotePath: input.RemotePath, ErrorMessage: err.Error()}), nil
	}

	return transferResult(TransferOutput{
		Success:          true,
		BytesTransferred: n,
		LocalPath:        input.LocalPath,
		RemotePath:       input.RemotePath,
		Host:             input.Host,
	}), nil
}

// quickWait sleeps for the configured quick-wait interval or until ctx is
// done, whichever comes first, per spec.md §4.5.
func (t *Tool) quickWait(ctx context.Context) {
	timer := time.NewTimer(t.cfg.quickWait)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

// applyState folds a freshly read ssh.ProcessState into the registry,
// mapping liveness/exit-code into the record's terminal status, and
// returns the resulting status and exit code for the caller's response.
func (t *Tool) applyState(id string, state ssh.ProcessState) (registry.Status, int) {
	if state.Alive {
		return registry.StatusRunning, 0
	}
	status := registry.StatusCompleted
	exitCode := 0
	if state.ExitCode != nil {
		exitCode = *state.ExitCode
		if exitCode != 0 {
			status = registry.StatusFailed
		}
	}
	ec := exitCode
	t.reg.Update(id, registry.Update{Status: status, ExitCode: &ec})
	return status, exitCode
}

func (t *Tool) launchFailureOutput(err error) CommandOutput {
	status := "failed"
	if errors.As(err, new(*ssh.ErrTimeout)) {
		status = "timeout"
	}
	return CommandOutput{Status: status, ErrorMessage: err.Error()}
}

func (t *Tool) registerHostsResource(srv *server.Server) {
	mcp.AddResource(&srv.Server, &mcp.Resource{
		URI:         "ssh://hosts",
		Name:        "ssh-hosts",
		Description: "Host aliases known from the SSH config alias file",
		MIMEType:    "application/json",
	}, t.readHostsResource)
}

// readHostsResource serves ssh://hosts: a list of host descriptors read from
// the alias file, sorted by alias name, per spec.md §6.
func (t *Tool) readHostsResource(_ context.Context, _ *mcp.ServerSession, _ *mcp.ReadResourceParams) (*mcp.ReadResourceResult, error) {
	aliases, err := ssh.ListAliases()
	if err != nil {
		return nil, fmt.Errorf("alias_unknown: %w", err)
	}

	type hostDescriptor struct {
		Name     string `json:"name"`
		Hostname string `json:"hostname"`
		User     string `json:"user,omitempty"`
		Port     int    `json:"port"`
	}

	descriptors := make([]hostDescriptor, 0, len(aliases))
	for name, entry := range aliases {
		descriptors = append(descriptors, hostDescriptor{
			Name:     name,
			Hostname: entry.Hostname,
			User:     entry.User,
			Port:     entry.Port,
		})
	}
	sort.Slice(descriptors, func(i, j int) bool {
		return descriptors[i].Name < descriptors[j].Name
	})

	payload, err := json.Marshal(descriptors)
	if err != nil {
		return nil, fmt.Errorf("exec_failed: encoding host list: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      "ssh://hosts",
				MIMEType: "application/json",
				Text:     string(payload),
			},
		},
	}, nil
}

func textResult(out CommandOutput) *mcp.CallToolResultFor[CommandOutput] {
	return &mcp.CallToolResultFor[CommandOutput]{
		Content: []mcp.Content{&mcp.TextContent{Text: summarize(out)}},
	}
}

func statusResult(out StatusOutput) *mcp.CallToolResultFor[StatusOutput] {
	text := fmt.Sprintf("process %s status: %s", out.ProcessID, out.Status)
	if out.ErrorMessage != "" {
		text = out.ErrorMessage
	}
	return &mcp.CallToolResultFor[StatusOutput]{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func killResult(out KillOutput) *mcp.CallToolResultFor[KillOutput] {
	text := out.Message
	if out.ErrorMessage != "" {
		text = out.ErrorMessage
	}
	return &mcp.CallToolResultFor[KillOutput]{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func transferResult(out TransferOutput) *mcp.CallToolResultFor[TransferOutput] {
	text := fmt.Sprintf("transferred %d bytes (%s -> %s)", out.BytesTransferred, out.LocalPath, out.RemotePath)
	if out.ErrorMessage != "" {
		text = out.ErrorMessage
	}
	return &mcp.CallToolResultFor[TransferOutput]{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func summarize(out CommandOutput) string {
	if out.ErrorMessage != "" {
		return out.ErrorMessage
	}
	return fmt.Sprintf("process %s status=%s exit_code=%d", out.ProcessID, out.Status, out.ExitCode)
}
