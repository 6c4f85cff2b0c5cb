package mq

import (
	"context"
	"encoding/json"

	"github.com/talent-hunters/bookportal/types"
	"go.uber.org/zap"
)

// LedgerEventLogger returns a Handler that writes each ledger event to log.
// Payloads that are not ledger events are logged and acknowledged so they
// are not redelivered.
func LedgerEventLogger(log *zap.Logger) Handler {
	return func(_ context.Context, msg Message) error {
		var event types.LedgerEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil || event.Kind == "" {
			log.Warn("discarding malformed ledger event",
				zap.String("message_id", msg.ID),
				zap.String("content_type", msg.Attributes[ContentTypeAttr]),
				zap.Error(err),
			)
			return nil
		}

		log.Info("ledger event",
			zap.String("message_id", msg.ID),
			zap.String("kind", string(event.Kind)),
			zap.String("entry_id", event.EntryID),
			zap.String("user_id", event.UserID),
			zap.String("book_id", event.BookID),
			zap.String("bookname", event.BookName),
			zap.String("grade", event.Grade),
			zap.Time("recorded_at", event.RecordedAt),
		)
		return nil
	}
}
