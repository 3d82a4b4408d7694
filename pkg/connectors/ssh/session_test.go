package ssh

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type SessionTestSuite struct {
	suite.Suite
}

func TestSessionTestSuite(t *testing.T) {
	suite.Run(t, new(SessionTestSuite))
}

func (s *SessionTestSuite) TestOpenUnknownAliasFails() {
	_, err := Open("definitely-not-a-configured-alias", Config{})
	s.Require().Error(err)
	s.Contains(err.Error(), "alias_unknown")
}

func (s *SessionTestSuite) TestCloseOnNilClientIsNoop() {
	var c *Client
	s.NoError(c.Close())
}

func (s *SessionTestSuite) TestCloseOnZeroValueClientIsNoop() {
	c := &Client{}
	s.NoError(c.Close())
}
