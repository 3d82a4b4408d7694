package sshexec

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/suite"

	"github.com/tb0hdan/remote-debugger-mcp/pkg/connectors/ssh"
	"github.com/tb0hdan/remote-debugger-mcp/pkg/registry"
	"github.com/tb0hdan/remote-debugger-mcp/pkg/security"
)

type SSHExecTestSuite struct {
	suite.Suite
	tool *Tool
}

func (suite *SSHExecTestSuite) SetupTest() {
	logger := zerolog.Nop()
	suite.tool = &Tool{
		logger:    logger,
		validator: validator.New(),
		gate:      security.NewGateFromEnv(logger),
		reg:       registry.New(suite.T().TempDir()),
		cfg: toolConfig{
			maxOutputSize: defaultMaxOutputSize,
			chunkSize:     defaultChunkSize,
		},
	}
}

func (suite *SSHExecTestSuite) TestExecuteInputValidation() {
	testCases := []struct {
		name        string
		input       ExecuteInput
		shouldError bool
	}{
		{name: "valid", input: ExecuteInput{Host: "h1", Command: "echo hi"}},
		{name: "missing host", input: ExecuteInput{Command: "echo hi"}, shouldError: true},
		{name: "missing command", input: ExecuteInput{Host: "h1"}, shouldError: true},
		{name: "command too long", input: ExecuteInput{Host: "h1", Command: string(make([]byte, 2001))}, shouldError: true},
		{name: "host too long", input: ExecuteInput{Host: string(make([]byte, 254)), Command: "echo hi"}, shouldError: true},
	}

	for _, tc := range testCases {
		suite.Run(tc.name, func() {
			err := suite.tool.validator.Struct(tc.input)
			if tc.shouldError {
				suite.Error(err)
			} else {
				suite.NoError(err)
			}
		})
	}
}

func (suite *SSHExecTestSuite) TestGetOutputInputValidation() {
	testCases := []struct {
		name        string
		input       GetOutputInput
		shouldError bool
	}{
		{name: "valid", input: GetOutputInput{ProcessID: "abc123", StartByte: 0}},
		{name: "missing process id", input: GetOutputInput{StartByte: 0}, shouldError: true},
		{name: "negative start byte", input: GetOutputInput{ProcessID: "abc123", StartByte: -1}, shouldError: true},
		{name: "chunk size too large", input: GetOutputInput{ProcessID: "abc123", ChunkSize: 100001}, shouldError: true},
		{name: "chunk size zero is allowed (omitted)", input: GetOutputInput{ProcessID: "abc123", ChunkSize: 0}},
	}

	for _, tc := range testCases {
		suite.Run(tc.name, func() {
			err := suite.tool.validator.Struct(tc.input)
			if tc.shouldError {
				suite.Error(err)
			} else {
				suite.NoError(err)
			}
		})
	}
}

func (suite *SSHExecTestSuite) TestTransferInputValidation() {
	testCases := []struct {
		name        string
		input       TransferInput
		shouldError bool
	}{
		{
			name: "valid upload",
			input: TransferInput{Host: "h1", LocalPath: "/tmp/a", RemotePath: "/tmp/b", Direction: "upload"},
		},
		{
			name: "valid download",
			input: TransferInput{Host: "h1", LocalPath: "/tmp/a", RemotePath: "/tmp/b", Direction: "download"},
		},
		{
			name:        "invalid direction",
			input:       TransferInput{Host: "h1", LocalPath: "/tmp/a", RemotePath: "/tmp/b", Direction: "sideways"},
			shouldError: true,
		},
		{
			name:        "missing local path",
			input:       TransferInput{Host: "h1", RemotePath: "/tmp/b", Direction: "upload"},
			shouldError: true,
		},
	}

	for _, tc := range testCases {
		suite.Run(tc.name, func() {
			err := suite.tool.validator.Struct(tc.input)
			if tc.shouldError {
				suite.Error(err)
			} else {
				suite.NoError(err)
			}
		})
	}
}

func (suite *SSHExecTestSuite) TestGetCommandStatusUnknownProcess() {
	ctx := context.Background()
	session := &mcp.ServerSession{}

	result, err := suite.tool.GetCommandStatus(ctx, session, &mcp.CallToolParamsFor[GetStatusInput]{
		Arguments: GetStatusInput{ProcessID: "doesnotexist"},
	})

	suite.NoError(err)
	suite.NotNil(result)
}

func (suite *SSHExecTestSuite) TestKillCommandUnknownProcess() {
	ctx := context.Background()
	session := &mcp.ServerSession{}

	result, err := suite.tool.KillCommand(ctx, session, &mcp.CallToolParamsFor[KillInput]{
		Arguments: KillInput{ProcessID: "doesnotexist"},
	})

	suite.NoError(err)
	suite.NotNil(result)
}

func (suite *SSHExecTestSuite) TestKillCommandNotRunning() {
	rec := suite.tool.reg.Start("h1", "sleep 100")
	suite.tool.reg.Update(rec.ID, registry.Update{Status: registry.StatusCompleted, ExitCode: intPtr(0)})

	ctx := context.Background()
	session := &mcp.ServerSession{}

	result, err := suite.tool.KillCommand(ctx, session, &mcp.CallToolParamsFor[KillInput]{
		Arguments: KillInput{ProcessID: rec.ID},
	})

	suite.NoError(err)
	suite.NotNil(result)
}

func (suite *SSHExecTestSuite) TestGetCommandOutputUnknownProcess() {
	ctx := context.Background()
	session := &mcp.ServerSession{}

	result, err := suite.tool.GetCommandOutput(ctx, session, &mcp.CallToolParamsFor[GetOutputInput]{
		Arguments: GetOutputInput{ProcessID: "doesnotexist"},
	})

	suite.NoError(err)
	suite.NotNil(result)
}

func (suite *SSHExecTestSuite) TestApplyStateRunning() {
	rec := suite.tool.reg.Start("h1", "sleep 100")
	status, exitCode := suite.tool.applyState(rec.ID, ssh.ProcessState{Alive: true})
	suite.Equal(registry.StatusRunning, status)
	suite.Equal(0, exitCode)
}

func (suite *SSHExecTestSuite) TestApplyStateCompleted() {
	rec := suite.tool.reg.Start("h1", "echo hi")
	code := 0
	status, exitCode := suite.tool.applyState(rec.ID, ssh.ProcessState{Alive: false, ExitCode: &code})
	suite.Equal(registry.StatusCompleted, status)
	suite.Equal(0, exitCode)

	updated, ok := suite.tool.reg.Get(rec.ID)
	suite.True(ok)
	suite.Equal(registry.StatusCompleted, updated.Status)
}

func (suite *SSHExecTestSuite) TestNewCreatesValidTool() {
	logger := zerolog.Nop()
	tool := New(logger)

	suite.NotNil(tool)
	sshTool, ok := tool.(*Tool)
	suite.True(ok)
	suite.NotNil(sshTool.validator)
	suite.NotNil(sshTool.gate)
	suite.NotNil(sshTool.reg)
	suite.NotNil(sshTool.pool)
}

func TestSSHExecTestSuite(t *testing.T) {
	suite.Run(t, new(SSHExecTestSuite))
}

func intPtr(v int) *int { return &v }
