package ssh

import "strings"

// shellMetacharacters are the features that force a command through a
// shell rather than being run as a bare argument vector, per spec.md §4.1.
var shellMetacharacters = []string{
	"|", ">", "<", ">>", "<<", "&&", "||", ";", "$", "`", "$(", "${",
}

// complexQuotingPatterns defeat naive single-quote wrapping and force the
// heredoc strategy.
var complexQuotingPatterns = []string{
	`'"'`, `"'`, `\'`, `\"`, `\\`,
}

// needsShell reports whether command contains any shell metacharacter and
// therefore cannot be sent as a bare command.
func needsShell(command string) bool {
	for _, m := range shellMetacharacters {
		if strings.Contains(command, m) {
			return true
		}
	}
	return false
}

// hasComplexQuoting reports whether command contains escaped quotes or
// doubled backslashes that would corrupt a naive `bash -c '<cmd>'` wrap.
func hasComplexQuoting(command string) bool {
	for _, p := range complexQuotingPatterns {
		if strings.Contains(command, p) {
			return true
		}
	}
	return false
}

// wrapCommand prepares command for remote shell execution, choosing
// between the simple and heredoc strategies per spec.md §4.1/§9.
// Commands with complex quoting get the heredoc wrap, other commands with
// shell metacharacters get the simple wrap, and commands with neither are
// returned unchanged.
func wrapCommand(command string) string {
	if hasComplexQuoting(command) {
		return heredocWrap(command)
	}
	if !needsShell(command) {
		return command
	}
	return simpleWrap(command)
}

// simpleWrap produces `bash -c <shell-quoted command>`.
func simpleWrap(command string) string {
	return "bash -c " + shellQuote(command)
}

// heredocWrap produces `bash << 'DELIM'\n<command>\nDELIM`, growing the
// delimiter with an "EOF_" prefix until it is guaranteed absent from the
// command text.
func heredocWrap(command string) string {
	delimiter := "EOF_CMD"
	for strings.Contains(command, delimiter) {
		delimiter = "EOF_" + delimiter
	}
	return "bash << '" + delimiter + "'\n" + command + "\n" + delimiter
}

// shellQuote single-quotes s for POSIX shells, escaping embedded single
// quotes the standard way: close the quote, emit an escaped quote, reopen.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
