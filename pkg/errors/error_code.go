package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101

	// Strategy errors (200-299)
	ErrCodeMalformedInput    ErrorCode = 200
	ErrCodeValidation        ErrorCode = 201
	ErrCodeUnsupportedFormat ErrorCode = 202
	ErrCodeStrategyNotFound  ErrorCode = 203
	ErrCodeVersionMismatch   ErrorCode = 204

	// Gateway errors (300-399)
	ErrCodeNotConfigured      ErrorCode = 300
	ErrCodeGatewayTransient   ErrorCode = 301
	ErrCodeGatewayExhausted   ErrorCode = 302
	ErrCodeVenueOrderNotFound ErrorCode = 303

	// Engine errors (400-499)
	ErrCodeEngineNotReady ErrorCode = 400
	ErrCodeRiskRejected   ErrorCode = 401

	// Market data errors (500-599)
	ErrCodeMarketDataFailed ErrorCode = 500

	// Storage errors (600-699)
	ErrCodePersistenceFailed ErrorCode = 600
	ErrCodeExportFailed      ErrorCode = 601
)
