package apperror

// Code represents a unique error code for the application
type Code string

const (
	// Input validation
	CodeRequiredField      Code = "REQUIRED_FIELD"
	CodeInvalidFormat      Code = "INVALID_FORMAT"
	CodeInvalidAmount      Code = "INVALID_AMOUNT"
	CodeConfigurationError Code = "CONFIGURATION_ERROR"

	// Outbound call guards
	CodeRateLimitExceeded Code = "RATE_LIMIT_EXCEEDED"
	CodeCircuitOpen       Code = "CIRCUIT_OPEN"
	CodeCircuitHalfOpen   Code = "CIRCUIT_HALF_OPEN"

	// Price stream transport
	CodeWebSocketConnectionError Code = "WEBSOCKET_CONNECTION_ERROR"
	CodeWebSocketClosed          Code = "WEBSOCKET_CLOSED"
	CodeWebSocketSendError       Code = "WEBSOCKET_SEND_ERROR"

	// Price stream frames and lifecycle
	CodeFeedDecodeError   Code = "FEED_DECODE_ERROR"
	CodeFeedUnknownType   Code = "FEED_UNKNOWN_TYPE"
	CodeFeedManagerClosed Code = "FEED_MANAGER_CLOSED"

	// Offers
	CodeOfferPending      Code = "OFFER_PENDING"
	CodeOfferRejected     Code = "OFFER_REJECTED"
	CodeOfferSubmitFailed Code = "OFFER_SUBMIT_FAILED"

	// Item queries
	CodeItemQueryFailed Code = "ITEM_QUERY_FAILED"
	CodeItemNotFound    Code = "ITEM_NOT_FOUND"

	// Returned by GetCode for errors outside this package
	CodeUnknownError Code = "UNKNOWN_ERROR"
)
