package ssh

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/ssh"
)

// ErrAuthRequired is returned when a private key needs a passphrase and
// none is configured via SSH_KEY_PHRASE.
var ErrAuthRequired = errors.New("auth_required: private key is encrypted and SSH_KEY_PHRASE is not set")

// keyAuthMethod builds an ssh.AuthMethod from the identity file declared by
// entry (falling back to cfg.DefaultKeyFile), trying an unencrypted parse
// first and retrying with cfg.KeyPassphrase on a key-format failure —
// mirroring get_ssh_client_from_config's two-stage key load.
func keyAuthMethod(entry HostEntry, cfg Config) (ssh.AuthMethod, error) {
	keyPath := entry.IdentityFile
	if keyPath == "" {
		keyPath = cfg.DefaultKeyFile
	}
	keyPath = expandHome(keyPath)

	if _, err := os.Stat(keyPath); err != nil {
		return nil, fmt.Errorf("connect_failed: key file does not exist: %s", keyPath)
	}

	raw, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("connect_failed: reading key file: %w", err)
	}

	signer, err := ssh.ParsePrivateKey(raw)
	if err == nil {
		return ssh.PublicKeys(signer), nil
	}

	var passphraseErr *ssh.PassphraseMissingError
	if !errors.As(err, &passphraseErr) {
		return nil, fmt.Errorf("exec_failed: parsing private key: %w", err)
	}

	if cfg.KeyPassphrase == "" {
		return nil, ErrAuthRequired
	}

	signer, err = ssh.ParsePrivateKeyWithPassphrase(raw, []byte(cfg.KeyPassphrase))
	if err != nil {
		return nil, fmt.Errorf("auth_failed: parsing private key with passphrase: %w", err)
	}
	return ssh.PublicKeys(signer), nil
}

func expandHome(path string) string {
	if path == "" {
		return path
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		if path == "~" {
			return home
		}
		return home + path[1:]
	}
	return path
}
