package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/marks/internal/backend"
	"github.com/MrSnakeDoc/marks/internal/logger"
)

// ChannelPrefix namespaces row-change channels.
const ChannelPrefix = "marks:realtime:"

// ChannelName returns the pub/sub channel carrying changes of table rows
// matching filter.
func ChannelName(table, filter string) string {
	return ChannelPrefix + table + ":" + filter
}

// Service implements backend.Realtime on a Broker.
type Service struct {
	broker *Broker
	log    logger.Logger
}

// NewService creates the change feed.
func NewService(broker *Broker, log logger.Logger) *Service {
	return &Service{broker: broker, log: log}
}

// Subscribe calls fn for every change of ch.Table rows matching ch.Filter
// whose kind matches ch.Event.
func (s *Service) Subscribe(ctx context.Context, ch backend.Channel, fn func(backend.Change)) (backend.Subscription, error) {
	name := ChannelName(ch.Table, ch.Filter)

	return s.broker.Subscribe(ctx, name, func(_ string, payload []byte) {
		var change backend.Change
		if err := json.Unmarshal(payload, &change); err != nil {
			s.log.Warn("dropping malformed change",
				logger.String("channel", name),
				logger.Error(err))
			return
		}
		if ch.Event != "" && ch.Event != backend.ChangeAll && change.Event != ch.Event {
			return
		}
		fn(change)
	})
}

// Publish announces change to the subscribers of filter.
func (s *Service) Publish(ctx context.Context, filter string, change backend.Change) error {
	if change.Timestamp.IsZero() {
		change.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("marshal change: %w", err)
	}
	return s.broker.Publish(ctx, ChannelName(change.Table, filter), data)
}
