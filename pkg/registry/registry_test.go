package registry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"
)

type RegistryTestSuite struct {
	suite.Suite
	reg *Registry
}

func TestRegistryTestSuite(t *testing.T) {
	suite.Run(t, new(RegistryTestSuite))
}

func (s *RegistryTestSuite) SetupTest() {
	s.reg = New(s.T().TempDir())
}

func (s *RegistryTestSuite) TestNewWithEmptyTempDirFallsBackToOSTempDir() {
	r := New("")
	s.NotNil(r)
	rec := r.Start("h1", "echo hi")
	s.NotEmpty(rec.StdoutPath)
	s.Equal(filepath.Clean(os.TempDir()), filepath.Dir(rec.StdoutPath))
}

func (s *RegistryTestSuite) TestStartAssignsEightCharID() {
	rec := s.reg.Start("h1", "echo hi")
	s.Len(rec.ID, 8)
}

func (s *RegistryTestSuite) TestStartDerivesSpoolPaths() {
	rec := s.reg.Start("h1", "echo hi")
	s.True(strings.HasSuffix(rec.StdoutPath, ".out"))
	s.True(strings.HasSuffix(rec.StderrPath, ".err"))
	s.Equal(rec.StdoutPath+".exit", rec.ExitPath)
	s.Contains(rec.StdoutPath, rec.ID)
}

func (s *RegistryTestSuite) TestStartDefaultsToRunning() {
	rec := s.reg.Start("h1", "echo hi")
	s.Equal(StatusRunning, rec.Status)
	s.Equal(0, rec.PID)
	s.Nil(rec.ExitCode)
}

func (s *RegistryTestSuite) TestStartProducesUniqueIDs() {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		rec := s.reg.Start("h1", "echo hi")
		s.False(seen[rec.ID], "duplicate id generated: %s", rec.ID)
		seen[rec.ID] = true
	}
}

func (s *RegistryTestSuite) TestGetUnknownIDReturnsFalse() {
	_, ok := s.reg.Get("doesnotexist")
	s.False(ok)
}

func (s *RegistryTestSuite) TestGetReturnsCopyNotAlias() {
	rec := s.reg.Start("h1", "echo hi")

	got, ok := s.reg.Get(rec.ID)
	s.Require().True(ok)

	got.Status = StatusKilled
	stillStored, _ := s.reg.Get(rec.ID)
	s.Equal(StatusRunning, stillStored.Status)
}

func (s *RegistryTestSuite) TestUpdateUnknownIDReturnsFalse() {
	ok := s.reg.Update("doesnotexist", Update{Status: StatusCompleted})
	s.False(ok)
}

func (s *RegistryTestSuite) TestUpdatePartialMergeLeavesOtherFieldsAlone() {
	rec := s.reg.Start("h1", "echo hi")

	pid := 4242
	s.Require().True(s.reg.Update(rec.ID, Update{PID: &pid}))

	got, _ := s.reg.Get(rec.ID)
	s.Equal(4242, got.PID)
	s.Equal(StatusRunning, got.Status)
	s.Nil(got.ExitCode)

	code := 0
	s.Require().True(s.reg.Update(rec.ID, Update{Status: StatusCompleted, ExitCode: &code}))

	got, _ = s.reg.Get(rec.ID)
	s.Equal(4242, got.PID)
	s.Equal(StatusCompleted, got.Status)
	s.Require().NotNil(got.ExitCode)
	s.Equal(0, *got.ExitCode)
}

func (s *RegistryTestSuite) TestDeleteRemovesRecord() {
	rec := s.reg.Start("h1", "echo hi")
	s.reg.Delete(rec.ID)

	_, ok := s.reg.Get(rec.ID)
	s.False(ok)
}

func (s *RegistryTestSuite) TestDeleteUnknownIDIsNoop() {
	s.NotPanics(func() {
		s.reg.Delete("doesnotexist")
	})
}
