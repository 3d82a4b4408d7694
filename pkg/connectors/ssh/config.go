package ssh

import (
	"os"
	"strconv"
	"time"
)

// Config holds the MCP_SSH_* environment-derived timeouts and toggles that
// govern every operation in this package. It is built once at service
// start and passed explicitly to connectors rather than read from the
// environment on every call.
type Config struct {
	ConnectTimeout  time.Duration
	CommandTimeout  time.Duration
	ReadTimeout     time.Duration
	TransferTimeout time.Duration
	ConnectionReuse bool
	DefaultKeyFile  string
	KeyPassphrase   string
}

// NewConfigFromEnv loads Config from the environment, applying the
// defaults documented in spec.md §6.
func NewConfigFromEnv() Config {
	return Config{
		ConnectTimeout:  envSeconds("MCP_SSH_CONNECT_TIMEOUT", 30),
		CommandTimeout:  envSeconds("MCP_SSH_COMMAND_TIMEOUT", 60),
		ReadTimeout:     envSeconds("MCP_SSH_READ_TIMEOUT", 30),
		TransferTimeout: envSeconds("MCP_SSH_TRANSFER_TIMEOUT", 300),
		ConnectionReuse: os.Getenv("MCP_SSH_CONNECTION_REUSE") == "true",
		DefaultKeyFile:  envString("SSH_KEY_FILE", "~/.ssh/id_rsa"),
		KeyPassphrase:   os.Getenv("SSH_KEY_PHRASE"),
	}
}

func envSeconds(key string, def int) time.Duration {
	v := def
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			v = n
		}
	}
	return time.Duration(v) * time.Second
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
