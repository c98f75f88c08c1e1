// Package stream follows live futures market data over websocket.
package stream

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const eventTypeMarkPrice = "markPriceUpdate"

// StreamMessage is the combined-stream envelope
type StreamMessage struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

// MarkPriceEvent is one markPriceUpdate push
type MarkPriceEvent struct {
	EventType            string          `json:"e"`
	EventTime            int64           `json:"E"`
	Symbol               string          `json:"s"`
	MarkPrice            decimal.Decimal `json:"p"`
	IndexPrice           decimal.Decimal `json:"i"`
	EstimatedSettlePrice decimal.Decimal `json:"P"`
	FundingRate          decimal.Decimal `json:"r"`
	NextFundingTime      int64           `json:"T"`
}

// Time is the event time
func (e MarkPriceEvent) Time() time.Time {
	return time.UnixMilli(e.EventTime).UTC()
}

// NextFunding is when the current funding rate settles
func (e MarkPriceEvent) NextFunding() time.Time {
	return time.UnixMilli(e.NextFundingTime).UTC()
}

// decodeMarkPrice accepts raw and combined-stream frames. ok is false for
// frames that are not mark price updates.
func decodeMarkPrice(message []byte) (event MarkPriceEvent, ok bool, err error) {
	payload := message

	var envelope StreamMessage
	if err := json.Unmarshal(message, &envelope); err == nil && len(envelope.Data) > 0 {
		payload = envelope.Data
	}

	if err := json.Unmarshal(payload, &event); err != nil {
		return MarkPriceEvent{}, false, fmt.Errorf("failed to decode mark price event: %w", err)
	}
	if event.EventType != eventTypeMarkPrice {
		return MarkPriceEvent{}, false, nil
	}
	return event, true, nil
}
