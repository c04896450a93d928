package apperror

import (
	"errors"
	"net/http"
	"strings"
	"testing"
)

func TestNew_DefaultsFromCode(t *testing.T) {
	tests := []struct {
		code       Code
		wantStatus int
		wantMsg    string
	}{
		{CodeInvalidAmount, http.StatusBadRequest, "Offer amount must be a number greater than zero"},
		{CodeItemNotFound, http.StatusNotFound, "Item not found"},
		{CodeWebSocketConnectionError, http.StatusServiceUnavailable, "Could not connect to live prices"},
		{CodeCircuitOpen, http.StatusServiceUnavailable, "The marketplace server is not responding"},
		{CodeOfferPending, http.StatusConflict, "An offer is already being sent"},
		{CodeOfferSubmitFailed, http.StatusInternalServerError, "Error sending the offer"},
		{Code("SOMETHING_NEW"), http.StatusInternalServerError, "SOMETHING_NEW"},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			err := New(tt.code)
			if err.StatusCode != tt.wantStatus {
				t.Errorf("StatusCode = %d, want %d", err.StatusCode, tt.wantStatus)
			}
			if err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantMsg)
			}
		})
	}
}

func TestIs_MatchesByCode(t *testing.T) {
	err := New(CodeOfferRejected, WithMessage("Offer must be higher than current price"))
	wrapped := errors.Join(errors.New("outer"), err)

	if !errors.Is(wrapped, New(CodeOfferRejected)) {
		t.Error("expected errors.Is to match on code")
	}
	if errors.Is(wrapped, New(CodeOfferPending)) {
		t.Error("unexpected match on different code")
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil, CodeUnknownError, "x") != nil {
		t.Fatal("Wrap(nil) should be nil")
	}

	cause := errors.New("dial tcp: refused")
	err := Wrap(cause, CodeItemQueryFailed, "GET /api/items")
	if err.Code != CodeItemQueryFailed {
		t.Errorf("Code = %s", err.Code)
	}
	if !errors.Is(err, cause) {
		t.Error("expected cause to be unwrappable")
	}
	if !strings.Contains(err.Error(), "dial tcp: refused") {
		t.Errorf("Error() = %q", err.Error())
	}

	again := Wrap(err, CodeUnknownError, "ignored")
	if again != err {
		t.Error("Wrap should return an existing AppError unchanged")
	}
}

func TestUserMessage(t *testing.T) {
	if got := UserMessage(New(CodeOfferRejected, WithMessage("Item not found")), "fallback"); got != "Item not found" {
		t.Errorf("got %q", got)
	}
	if got := UserMessage(errors.New("boom"), "fallback"); got != "fallback" {
		t.Errorf("got %q", got)
	}
}

func TestLogArgs(t *testing.T) {
	err := New(CodeFeedDecodeError, WithContext("price_update"), WithCause(errors.New("unexpected EOF")))
	args := err.LogArgs()
	if len(args)%2 != 0 {
		t.Fatalf("odd number of log args: %d", len(args))
	}
	kv := map[any]any{}
	for i := 0; i < len(args); i += 2 {
		kv[args[i]] = args[i+1]
	}
	if kv["code"] != string(CodeFeedDecodeError) {
		t.Errorf("code = %v", kv["code"])
	}
	if kv["cause"] != "unexpected EOF" {
		t.Errorf("cause = %v", kv["cause"])
	}
}
