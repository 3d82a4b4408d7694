package ssh

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"
)

type AuthTestSuite struct {
	suite.Suite
}

func TestAuthTestSuite(t *testing.T) {
	suite.Run(t, new(AuthTestSuite))
}

func (s *AuthTestSuite) writeUnencryptedKey() string {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	s.Require().NoError(err)

	block := &pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	}

	path := filepath.Join(s.T().TempDir(), "id_rsa")
	s.Require().NoError(os.WriteFile(path, pem.EncodeToMemory(block), 0o600))
	return path
}

func (s *AuthTestSuite) writeEncryptedKey(passphrase string) string {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	s.Require().NoError(err)

	//nolint:staticcheck // x509.EncryptPEMBlock is deprecated but still the
	// only stdlib path to produce a classic encrypted PEM key for this test.
	block, err := x509.EncryptPEMBlock(
		rand.Reader,
		"RSA PRIVATE KEY",
		x509.MarshalPKCS1PrivateKey(key),
		[]byte(passphrase),
		x509.PEMCipherAES256,
	)
	s.Require().NoError(err)

	path := filepath.Join(s.T().TempDir(), "id_rsa_enc")
	s.Require().NoError(os.WriteFile(path, pem.EncodeToMemory(block), 0o600))
	return path
}

func (s *AuthTestSuite) TestKeyAuthMethodUnencryptedKeySucceeds() {
	path := s.writeUnencryptedKey()
	method, err := keyAuthMethod(HostEntry{IdentityFile: path}, Config{})
	s.Require().NoError(err)
	s.NotNil(method)
}

func (s *AuthTestSuite) TestKeyAuthMethodMissingFileFails() {
	_, err := keyAuthMethod(HostEntry{IdentityFile: "/no/such/key"}, Config{})
	s.Require().Error(err)
	s.Contains(err.Error(), "connect_failed")
}

func (s *AuthTestSuite) TestKeyAuthMethodFallsBackToDefaultKeyFile() {
	path := s.writeUnencryptedKey()
	method, err := keyAuthMethod(HostEntry{}, Config{DefaultKeyFile: path})
	s.Require().NoError(err)
	s.NotNil(method)
}

func (s *AuthTestSuite) TestKeyAuthMethodEncryptedKeyWithoutPassphraseFails() {
	path := s.writeEncryptedKey("hunter2")
	_, err := keyAuthMethod(HostEntry{IdentityFile: path}, Config{})
	s.Require().ErrorIs(err, ErrAuthRequired)
}

func (s *AuthTestSuite) TestKeyAuthMethodEncryptedKeyWithPassphraseSucceeds() {
	path := s.writeEncryptedKey("hunter2")
	method, err := keyAuthMethod(HostEntry{IdentityFile: path}, Config{KeyPassphrase: "hunter2"})
	s.Require().NoError(err)
	s.NotNil(method)
}

func (s *AuthTestSuite) TestKeyAuthMethodEncryptedKeyWithWrongPassphraseFails() {
	path := s.writeEncryptedKey("hunter2")
	_, err := keyAuthMethod(HostEntry{IdentityFile: path}, Config{KeyPassphrase: "wrong"})
	s.Require().Error(err)
	s.Contains(err.Error(), "auth_failed")
}

func (s *AuthTestSuite) TestExpandHomeExpandsTilde() {
	home, err := os.UserHomeDir()
	s.Require().NoError(err)
	s.Equal(home, expandHome("~"))
	s.Equal(filepath.Join(home, ".ssh/id_rsa"), filepath.Clean(expandHome("~/.ssh/id_rsa")))
}

func (s *AuthTestSuite) TestExpandHomeLeavesAbsolutePathAlone() {
	s.Equal("/tmp/key", expandHome("/tmp/key"))
}

func (s *AuthTestSuite) TestExpandHomeLeavesEmptyPathAlone() {
	s.Equal("", expandHome(""))
}
