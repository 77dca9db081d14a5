package types

import "time"

type LogLevel string

const (
	LogLevelInfo    LogLevel = "info"
	LogLevelWarning LogLevel = "warning"
	LogLevelError   LogLevel = "error"
)

// ExecutionLog is one audit entry. StrategyID and OrderID are optional correlation fields.
type ExecutionLog struct {
	ID         string         `json:"id"`
	Timestamp  time.Time      `json:"timestamp"`
	Level      LogLevel       `json:"level"`
	Message    string         `json:"message"`
	Data       map[string]any `json:"data,omitempty"`
	StrategyID string         `json:"strategyId,omitempty"`
	OrderID    string         `json:"orderId,omitempty"`
}
