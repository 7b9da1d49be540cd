package apperror

// messages maps error codes to human-readable messages
var messages = map[Code]string{
	CodeInvalidInput:    "Invalid input provided",
	CodeInvalidState:    "Invalid state for this operation",
	CodeNotFound:        "Resource not found",
	CodeValidationError: "Validation error",

	CodeConfigurationError: "Configuration error",

	CodeServiceTimeout:     "Service request timeout",
	CodeServiceUnavailable: "Service temporarily unavailable",
	CodeRateLimitExceeded:  "Rate limit exceeded",

	CodeInternalError: "Internal error",
	CodeUnknownError:  "An unknown error occurred",

	CodeEndpointConnectionFailed: "Failed to connect to RPC endpoint",
	CodeEndpointWrongChain:       "RPC endpoint serves a different network",
	CodeEndpointPoolEmpty:        "No healthy RPC endpoints available",
	CodeEndpointPoolExhausted:    "Every RPC endpoint failed for this call",
	CodeRPCCallFailed:            "RPC call failed",
	CodeRPCCallTimeout:           "RPC call timed out",
	CodeCircuitOpen:              "Circuit breaker is open",

	CodePoolNotFound:          "Liquidity pool not found",
	CodeContractCallFailed:    "Smart contract call failed",
	CodeInvalidQuote:          "Invalid quote data",
	CodeInsufficientLiquidity: "Insufficient liquidity for notional",
	CodeNoRoute:               "No route clears the liquidity floor",
	CodeReferencePriceMissing: "Reference price unavailable",

	CodeNoTokensConfigured: "No tokens configured",
	CodeDedupStoreFailed:   "Dedup store operation failed",
	CodeNotifyFailed:       "Alert delivery failed",
	CodeNotifyTimeout:      "Alert delivery timed out",
}
