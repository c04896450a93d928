package apperror

// messages holds the text shown to users for each code.
var messages = map[Code]string{
	CodeRequiredField:      "Required field is missing",
	CodeInvalidFormat:      "Invalid data format",
	CodeInvalidAmount:      "Offer amount must be a number greater than zero",
	CodeConfigurationError: "Configuration error",

	CodeRateLimitExceeded: "Too many requests, try again shortly",
	CodeCircuitOpen:       "The marketplace server is not responding",
	CodeCircuitHalfOpen:   "The marketplace server is recovering",

	CodeWebSocketConnectionError: "Could not connect to live prices",
	CodeWebSocketClosed:          "Live prices connection closed",
	CodeWebSocketSendError:       "Failed to send on the live prices connection",

	CodeFeedDecodeError:   "Malformed price feed message",
	CodeFeedUnknownType:   "Unknown price feed message type",
	CodeFeedManagerClosed: "Live prices are shut down",

	CodeOfferPending:      "An offer is already being sent",
	CodeOfferRejected:     "The offer was rejected",
	CodeOfferSubmitFailed: "Error sending the offer",

	CodeItemQueryFailed: "Error loading items",
	CodeItemNotFound:    "Item not found",

	CodeUnknownError: "An unknown error occurred",
}

// DefaultMessage returns the registered message for code, or "" if none.
func DefaultMessage(code Code) string {
	return messages[code]
}
