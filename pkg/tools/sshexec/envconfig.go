package sshexec

import (
	"os"
	"strconv"
	"time"
)

const (
	maxOutputSizeEnvVar = "MCP_SSH_MAX_OUTPUT_SIZE"
	quickWaitEnvVar     = "MCP_SSH_QUICK_WAIT_TIME"
	chunkSizeEnvVar     = "MCP_SSH_CHUNK_SIZE"
	tempDirEnvVar       = "MCP_SSH_TEMP_DIR"

	defaultMaxOutputSize = 50000
	defaultQuickWaitSecs = 5
	defaultChunkSize     = 10000
)

// toolConfig holds the tool-surface-level settings that sit above the SSH
// session layer: output caps, the quick-wait interval, and the registry's
// spool directory.
type toolConfig struct {
	maxOutputSize int64
	quickWait     time.Duration
	chunkSize     int64
	tempDir       string
}

func newToolConfigFromEnv() toolConfig {
	return toolConfig{
		maxOutputSize: envInt64(maxOutputSizeEnvVar, defaultMaxOutputSize),
		quickWait:     time.Duration(envInt64(quickWaitEnvVar, defaultQuickWaitSecs)) * time.Second,
		chunkSize:     envInt64(chunkSizeEnvVar, defaultChunkSize),
		tempDir:       os.Getenv(tempDirEnvVar),
	}
}

func envInt64(key string, def int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}
