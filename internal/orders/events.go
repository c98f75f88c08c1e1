package orders

import (
	"context"

	"github.com/rs/zerolog"
)

// LogEventEmitter logs order updates
type LogEventEmitter struct {
	logger zerolog.Logger
}

// NewLogEventEmitter creates a new log event emitter
func NewLogEventEmitter(logger zerolog.Logger) *LogEventEmitter {
	return &LogEventEmitter{logger: logger}
}

// EmitOrderUpdate logs the update at info level, or warn for failures
func (e *LogEventEmitter) EmitOrderUpdate(ctx context.Context, update *OrderUpdate) error {
	event := e.logger.Info()
	if update.Status == StatusFailed {
		event = e.logger.Warn()
	}

	event.
		Str("event_type", update.EventType).
		Str("symbol", update.Symbol).
		Int64("order_id", update.OrderID).
		Str("client_order_id", update.ClientOrderID).
		Str("status", update.Status).
		Str("side", update.Side).
		Str("order_type", update.OrderType).
		Str("price", update.Price.String()).
		Str("quantity", update.Quantity.String()).
		Str("executed_qty", update.ExecutedQty.String()).
		Time("update_time", update.UpdateTime).
		Str("reason", update.Reason).
		Msg("Order update event")
	return nil
}
