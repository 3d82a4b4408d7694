// Package security implements the command safety gate: a configurable
// allow/deny policy evaluated against every candidate command before it
// is ever sent to a remote host.
package security

import (
	"os"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
)

// Mode selects how Gate.Validate treats a command.
type Mode string

const (
	// ModeDisabled allows every non-empty command.
	ModeDisabled Mode = "disabled"
	// ModeBlacklist rejects a command iff a deny pattern matches.
	ModeBlacklist Mode = "blacklist"
	// ModeWhitelist allows a command iff an allow pattern matches.
	ModeWhitelist Mode = "whitelist"
)

const (
	securityModeEnvVar     = "MCP_SSH_SECURITY_MODE"
	caseSensitiveEnvVar    = "MCP_SSH_CASE_SENSITIVE"
	commandBlacklistEnvVar = "MCP_SSH_COMMAND_BLACKLIST"
	commandWhitelistEnvVar = "MCP_SSH_COMMAND_WHITELIST"
)

// defaultDenyPatterns mirrors the original implementation's default
// blacklist: recursive/forced deletion, disk-level operations, privilege
// escalation, account/credential management, firewall mutation, service
// control, broad process kill, shutdown/reboot/halt transitions,
// mount/umount, permission/ownership broadening, raw block device writes,
// crontab/history clearing, and pipe-to-shell download-and-execute.
var defaultDenyPatterns = []string{
	`rm\s+.*-r.*`,
	`rm\s+.*-f.*`,
	`dd\s+.*`,
	`mkfs[.\s].*`,
	`fdisk\s+.*`,
	`parted\s+.*`,
	`sudo\s+.*`,
	`su\s+.*`,
	`passwd\s+.*`,
	`iptables\s+.*`,
	`ufw\s+.*`,
	`systemctl\s+(stop|disable|mask).*`,
	`service\s+(stop|disable).*`,
	`killall\s+.*`,
	`pkill\s+.*`,
	`shutdown\s+.*`,
	`reboot\s+.*`,
	`halt\s+.*`,
	`init\s+[06]`,
	`mount\s+.*`,
	`umount\s+.*`,
	`chmod\s+.*777.*`,
	`chown\s+.*root.*`,
	`.*>\s*/dev/sd[a-z].*`,
	`.*>\s*/dev/nvme.*`,
	`crontab\s+-r`,
	`history\s+-c`,
	`.*\|\s*sh\s*$`,
	`.*\|\s*bash\s*$`,
	`curl\s+.*\|\s*(sh|bash)`,
	`wget\s+.*\|\s*(sh|bash)`,
}

// Gate validates candidate commands against a declared policy mode. It is
// built once at service start and is immutable thereafter, so it is safe
// for concurrent use without further synchronization.
type Gate struct {
	mode          Mode
	caseSensitive bool
	denyPatterns  []*regexp.Regexp
	allowPatterns []*regexp.Regexp
}

// NewGateFromEnv builds a Gate from the MCP_SSH_* environment variables
// documented in spec.md §6, logging the result the way the original
// CommandValidator logs its configuration at construction.
func NewGateFromEnv(logger zerolog.Logger) *Gate {
	mode := Mode(strings.ToLower(getEnv(securityModeEnvVar, string(ModeBlacklist))))
	caseSensitive := strings.ToLower(getEnv(caseSensitiveEnvVar, "false")) == "true"

	g := &Gate{
		mode:          mode,
		caseSensitive: caseSensitive,
	}
	g.denyPatterns = compilePatterns(logger, os.Getenv(commandBlacklistEnvVar), defaultDenyPatterns, caseSensitive)
	g.allowPatterns = compilePatterns(logger, os.Getenv(commandWhitelistEnvVar), nil, caseSensitive)

	logger.Info().
		Str("mode", string(g.mode)).
		Int("deny_patterns", len(g.denyPatterns)).
		Int("allow_patterns", len(g.allowPatterns)).
		Bool("case_sensitive", g.caseSensitive).
		Msg("command safety gate configured")

	return g
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// compilePatterns loads pattern strings from an environment variable
// (semicolon/newline separated) or falls back to defaults, compiling each
// one. Invalid patterns are logged and dropped — they neither allow nor
// deny.
func compilePatterns(logger zerolog.Logger, envVal string, defaults []string, caseSensitive bool) []*regexp.Regexp {
	var raw []string
	if envVal != "" {
		for _, p := range regexp.MustCompile(`[;\n]`).Split(envVal, -1) {
			p = strings.TrimSpace(p)
			if p != "" {
				raw = append(raw, p)
			}
		}
	} else {
		raw = defaults
	}

	patterns := make([]*regexp.Regexp, 0, len(raw))
	for _, p := range raw {
		source := p
		if !caseSensitive {
			source = "(?i)" + p
		}
		compiled, err := regexp.Compile(source)
		if err != nil {
			logger.Error().Err(err).Str("pattern", p).Msg("invalid security pattern dropped")
			continue
		}
		patterns = append(patterns, compiled)
	}
	return patterns
}

// Validate decides whether command may run against host. It never mutates
// state and never has a remote effect — callers must short-circuit on a
// false result before opening a session.
func (g *Gate) Validate(command, host string) (bool, string) {
	command = strings.TrimSpace(command)
	if command == "" {
		return false, "empty command not allowed"
	}

	if g.mode == ModeDisabled {
		return true, "security validation disabled"
	}

	switch g.mode {
	case ModeWhitelist:
		return g.validateWhitelist(command)
	case ModeBlacklist:
		return g.validateBlacklist(command)
	default:
		return false, "unknown security mode: " + string(g.mode)
	}
}

func (g *Gate) validateWhitelist(command string) (bool, string) {
	if len(g.allowPatterns) == 0 {
		return false, "no whitelist patterns configured - all commands blocked"
	}
	for _, p := range g.allowPatterns {
		if p.MatchString(command) {
			return true, "command matches whitelist pattern: " + p.String()
		}
	}
	return false, "command not found in whitelist patterns"
}

func (g *Gate) validateBlacklist(command string) (bool, string) {
	for _, p := range g.denyPatterns {
		if p.MatchString(command) {
			return false, "command blocked by security policy: " + p.String()
		}
	}
	return true, "command passed security validation"
}

// Info mirrors the original's get_security_info(): a snapshot of the
// active configuration for startup logging/introspection, not an MCP tool
// in its own right (see SPEC_FULL.md).
type Info struct {
	Mode               string   `json:"security_mode"`
	CaseSensitive      bool     `json:"case_sensitive"`
	BlacklistCount     int      `json:"blacklist_patterns_count"`
	WhitelistCount     int      `json:"whitelist_patterns_count"`
	BlacklistPatterns  []string `json:"blacklist_patterns"`
	WhitelistPatterns  []string `json:"whitelist_patterns"`
}

// Info returns the gate's current configuration snapshot.
func (g *Gate) Info() Info {
	deny := make([]string, len(g.denyPatterns))
	for i, p := range g.denyPatterns {
		deny[i] = p.String()
	}
	allow := make([]string, len(g.allowPatterns))
	for i, p := range g.allowPatterns {
		allow[i] = p.String()
	}
	return Info{
		Mode:              string(g.mode),
		CaseSensitive:     g.caseSensitive,
		BlacklistCount:    len(deny),
		WhitelistCount:    len(allow),
		BlacklistPatterns: deny,
		WhitelistPatterns: allow,
	}
}
