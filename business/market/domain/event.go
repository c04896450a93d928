package domain

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/fd1az/marketlive/internal/apperror"
)

// Feed message types.
const (
	EventPriceUpdate = "price_update"
	EventConnected   = "connected"
)

// PriceUpdateEvent announces the authoritative price of one item.
type PriceUpdateEvent struct {
	ItemID   string
	NewPrice string
}

// FeedMessage is a decoded stream frame. Only price updates carry a payload;
// other recognised types are informational.
type FeedMessage struct {
	Type        string
	PriceUpdate *PriceUpdateEvent
}

type envelope struct {
	Type     string          `json:"type"`
	ItemID   json.RawMessage `json:"itemId"`
	NewPrice *string         `json:"newPrice"`
}

// DecodeFeedMessage parses a stream frame.
//
// Frames that are not JSON objects, lack a type, or carry an unknown type
// yield CodeFeedDecodeError / CodeFeedUnknownType. A price_update missing
// itemId or newPrice decodes to a FeedMessage with a nil PriceUpdate.
func DecodeFeedMessage(data []byte) (FeedMessage, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return FeedMessage{}, apperror.New(apperror.CodeFeedDecodeError, apperror.WithCause(err))
	}

	switch env.Type {
	case EventPriceUpdate:
		msg := FeedMessage{Type: env.Type}
		id, ok := decodeItemID(env.ItemID)
		if ok && env.NewPrice != nil {
			msg.PriceUpdate = &PriceUpdateEvent{ItemID: id, NewPrice: *env.NewPrice}
		}
		return msg, nil
	case EventConnected:
		return FeedMessage{Type: env.Type}, nil
	case "":
		return FeedMessage{}, apperror.New(apperror.CodeFeedDecodeError, apperror.WithContext("missing type"))
	default:
		return FeedMessage{Type: env.Type}, apperror.New(apperror.CodeFeedUnknownType, apperror.WithContext(env.Type))
	}
}

// decodeItemID accepts a JSON string or number.
func decodeItemID(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", false
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		s = strings.TrimSpace(s)
		return s, s != ""
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), true
	}
	return "", false
}
