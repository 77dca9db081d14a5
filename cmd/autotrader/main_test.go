package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/rxtech-lab/argo-autotrader/internal/config"
	"github.com/rxtech-lab/argo-autotrader/internal/logger"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/stretchr/testify/suite"
)

const dslStrategy = "STRATEGY: breakout\nIF BTCUSDT price > 51000\nTHEN BUY_MARKET BTCUSDT 0.01\n"

type AutotraderCmdTestSuite struct {
	suite.Suite
	tempDir string
}

func TestAutotraderCmdSuite(t *testing.T) {
	suite.Run(t, new(AutotraderCmdTestSuite))
}

func (suite *AutotraderCmdTestSuite) SetupTest() {
	suite.tempDir = suite.T().TempDir()
}

func (suite *AutotraderCmdTestSuite) writeFile(name, content string) string {
	path := filepath.Join(suite.tempDir, name)
	suite.Require().NoError(os.WriteFile(path, []byte(content), 0o600))

	return path
}

func (suite *AutotraderCmdTestSuite) run(args ...string) (string, error) {
	var out bytes.Buffer

	cmd := newCommand()
	cmd.Writer = &out
	cmd.ErrWriter = &out

	err := cmd.Run(context.Background(), append([]string{"autotrader"}, args...))

	return out.String(), err
}

func (suite *AutotraderCmdTestSuite) TestParsePrintsNormalizedStrategy() {
	path := suite.writeFile("breakout.dsl", dslStrategy)

	out, err := suite.run("parse", "--format", "dsl", path)
	suite.Require().NoError(err)

	var s types.Strategy
	suite.Require().NoError(json.Unmarshal([]byte(out), &s))
	suite.Equal("breakout", s.Name)
	suite.Equal(types.StrategyStatusInactive, s.Status)
	suite.NotEmpty(s.ID)
	suite.Len(s.Conditions, 1)
	suite.Len(s.Actions, 1)
}

func (suite *AutotraderCmdTestSuite) TestParseErrors() {
	_, err := suite.run("parse")
	suite.Error(err)

	_, err = suite.run("parse", filepath.Join(suite.tempDir, "missing.json"))
	suite.Error(err)

	path := suite.writeFile("broken.json", "{")
	_, err = suite.run("parse", path)
	suite.Error(err)
}

func (suite *AutotraderCmdTestSuite) TestSchema() {
	out, err := suite.run("schema", "strategy")
	suite.Require().NoError(err)
	suite.Contains(out, "riskManagement")

	out, err = suite.run("schema", "config")
	suite.Require().NoError(err)
	suite.Contains(out, "reconcile_interval")

	out, err = suite.run("schema", "venue")
	suite.Require().NoError(err)
	suite.Contains(out, "apiKey")

	_, err = suite.run("schema", "unknown")
	suite.Error(err)
}

func (suite *AutotraderCmdTestSuite) TestAppLoadsStrategiesAndServes() {
	path := suite.writeFile("breakout.dsl", dslStrategy)

	cfg, err := config.Parse([]byte(fmt.Sprintf(`
http_address: 127.0.0.1:0
strategies:
  - path: %s
    activate: true
`, path)))
	suite.Require().NoError(err)

	a, err := newApp(cfg, logger.NewNopLogger())
	suite.Require().NoError(err)

	strategies := a.engine.GetActiveStrategies()
	suite.Require().Len(strategies, 1)
	suite.True(strategies[0].IsActive())

	suite.Require().NoError(a.start(context.Background()))
	suite.True(a.engine.IsRunning())

	resp, err := http.Get("http://" + a.server.Addr() + "/strategies")
	suite.Require().NoError(err)
	resp.Body.Close()
	suite.Equal(http.StatusOK, resp.StatusCode)

	suite.NoError(a.close())
	suite.False(a.engine.IsRunning())
}

func (suite *AutotraderCmdTestSuite) TestAppRejectsInvalidStrategyFile() {
	path := suite.writeFile("broken.json", `{"name": ""}`)

	cfg, err := config.Parse([]byte(fmt.Sprintf("strategies:\n  - path: %s\n", path)))
	suite.Require().NoError(err)

	_, err = newApp(cfg, logger.NewNopLogger())
	suite.Error(err)
}
