package engine

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type EngineConfigTestSuite struct {
	suite.Suite
}

func TestEngineConfigTestSuite(t *testing.T) {
	suite.Run(t, new(EngineConfigTestSuite))
}

func (s *EngineConfigTestSuite) TestDefaultConfig() {
	config := DefaultConfig()

	s.Equal(5*time.Second, config.ReconcileInterval)
	s.Equal(3, config.RetryCount)
	s.Equal(time.Second, config.RetryBaseDelay)
	s.Equal(30*time.Second, config.ActionTimeout)
	s.Equal(10000, config.LogCapacity)
	s.Equal(64, config.MailboxSize)
	s.Empty(config.DataOutputPath)
	s.NoError(config.Validate())
}

func (s *EngineConfigTestSuite) TestWithDefaults_KeepsExplicitValues() {
	config := Config{RetryCount: 7, MailboxSize: 2, DataOutputPath: "/tmp/data"}.WithDefaults()

	s.Equal(7, config.RetryCount)
	s.Equal(2, config.MailboxSize)
	s.Equal("/tmp/data", config.DataOutputPath)
	s.Equal(DefaultReconcileInterval, config.ReconcileInterval)
	s.Equal(DefaultLogCapacity, config.LogCapacity)
}

func (s *EngineConfigTestSuite) TestValidate_RejectsNegative() {
	err := Config{RetryCount: -1}.Validate()
	s.Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}

func (s *EngineConfigTestSuite) TestGetConfigSchema() {
	schema, err := GetConfigSchema()
	s.Require().NoError(err)

	var parsed map[string]any
	s.Require().NoError(json.Unmarshal([]byte(schema), &parsed))

	properties, ok := parsed["properties"].(map[string]any)
	s.Require().True(ok)
	s.Contains(properties, "reconcile_interval")
	s.Contains(properties, "mailbox_size")
	s.Contains(properties, "data_output_path")
}

func (s *EngineConfigTestSuite) TestPassthroughIndicator() {
	ok, err := PassthroughIndicator{}.Evaluate(context.Background(), types.IndicatorCheck{}, types.MarketData{})
	s.NoError(err)
	s.True(ok)
}
