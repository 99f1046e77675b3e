package itest

import (
	"os"
	"path/filepath"

	"github.com/stretchr/testify/suite"
)

// TestSuite runs a prebuilt igdctl binary, found at $IGD_BINARY or
// build-output/igdctl at the repository root. The suite is skipped when
// neither exists.
type TestSuite struct {
	suite.Suite

	binary    string
	configDir string
}

func (suite *TestSuite) SetupSuite() {
	binary := os.Getenv("IGD_BINARY")
	if binary == "" {
		binary = "../../build-output/igdctl"
	}

	path, err := filepath.Abs(binary)
	suite.Require().NoError(err)
	if _, err := os.Stat(path); err != nil {
		suite.T().Skipf("igdctl binary not available: %v", err)
	}
	suite.binary = path
	suite.configDir = suite.T().TempDir()
}

func (suite *TestSuite) NewIgdctl(args ...string) *Igdctl {
	return &Igdctl{
		T:      suite.T(),
		Binary: suite.binary,
		Args:   args,
		Env: []string{
			"IGD_CONFIG=" + filepath.Join(suite.configDir, "config.yaml"),
			"IGD_LOG_DIR=" + suite.configDir,
		},
	}
}
