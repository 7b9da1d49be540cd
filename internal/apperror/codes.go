package apperror

// Code represents a unique error code for the application
type Code string

// General error codes
const (
	CodeInvalidInput    Code = "INVALID_INPUT"
	CodeInvalidState    Code = "INVALID_STATE"
	CodeNotFound        Code = "NOT_FOUND"
	CodeValidationError Code = "VALIDATION_ERROR"

	CodeConfigurationError Code = "CONFIGURATION_ERROR"

	CodeServiceTimeout     Code = "SERVICE_TIMEOUT"
	CodeServiceUnavailable Code = "SERVICE_UNAVAILABLE"
	CodeRateLimitExceeded  Code = "RATE_LIMIT_EXCEEDED"

	CodeInternalError Code = "INTERNAL_ERROR"
	CodeUnknownError  Code = "UNKNOWN_ERROR"
)

// Endpoint pool
const (
	CodeEndpointConnectionFailed Code = "ENDPOINT_CONNECTION_FAILED"
	CodeEndpointWrongChain       Code = "ENDPOINT_WRONG_CHAIN"
	CodeEndpointPoolEmpty        Code = "ENDPOINT_POOL_EMPTY"
	CodeEndpointPoolExhausted    Code = "ENDPOINT_POOL_EXHAUSTED"
	CodeRPCCallFailed            Code = "RPC_CALL_FAILED"
	CodeRPCCallTimeout           Code = "RPC_CALL_TIMEOUT"
	CodeCircuitOpen              Code = "CIRCUIT_OPEN"
)

// Quoting
const (
	CodePoolNotFound          Code = "POOL_NOT_FOUND"
	CodeContractCallFailed    Code = "CONTRACT_CALL_FAILED"
	CodeInvalidQuote          Code = "INVALID_QUOTE"
	CodeInsufficientLiquidity Code = "INSUFFICIENT_LIQUIDITY"
	CodeNoRoute               Code = "NO_ROUTE"
	CodeReferencePriceMissing Code = "REFERENCE_PRICE_MISSING"
)

// Detection, dedup and delivery
const (
	CodeNoTokensConfigured Code = "NO_TOKENS_CONFIGURED"
	CodeDedupStoreFailed   Code = "DEDUP_STORE_FAILED"
	CodeNotifyFailed       Code = "NOTIFY_FAILED"
	CodeNotifyTimeout      Code = "NOTIFY_TIMEOUT"
)
