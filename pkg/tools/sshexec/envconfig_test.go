package sshexec

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type EnvConfigTestSuite struct {
	suite.Suite
}

func TestEnvConfigTestSuite(t *testing.T) {
	suite.Run(t, new(EnvConfigTestSuite))
}

func (s *EnvConfigTestSuite) TestDefaults() {
	cfg := newToolConfigFromEnv()
	s.Equal(int64(defaultMaxOutputSize), cfg.maxOutputSize)
	s.Equal(5*time.Second, cfg.quickWait)
	s.Equal(int64(defaultChunkSize), cfg.chunkSize)
	s.Equal("", cfg.tempDir)
}

func (s *EnvConfigTestSuite) TestOverridesFromEnv() {
	s.T().Setenv(maxOutputSizeEnvVar, "1000")
	s.T().Setenv(quickWaitEnvVar, "2")
	s.T().Setenv(chunkSizeEnvVar, "500")
	s.T().Setenv(tempDirEnvVar, "/tmp/spool")

	cfg := newToolConfigFromEnv()
	s.Equal(int64(1000), cfg.maxOutputSize)
	s.Equal(2*time.Second, cfg.quickWait)
	s.Equal(int64(500), cfg.chunkSize)
	s.Equal("/tmp/spool", cfg.tempDir)
}

func (s *EnvConfigTestSuite) TestInvalidIntegerFallsBackToDefault() {
	s.T().Setenv(maxOutputSizeEnvVar, "not-a-number")
	cfg := newToolConfigFromEnv()
	s.Equal(int64(defaultMaxOutputSize), cfg.maxOutputSize)
}
