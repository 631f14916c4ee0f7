package realtime

import (
	"context"

	"github.com/MrSnakeDoc/marks/internal/backend"
	"github.com/MrSnakeDoc/marks/internal/domain"
	"github.com/MrSnakeDoc/marks/internal/logger"
)

// NotifyingData publishes a change for every row a mutation touched.
// Publish failures are logged; the mutation result is returned unchanged.
type NotifyingData struct {
	backend.Data

	table string
	feed  *Service
	log   logger.Logger
}

// NewNotifyingData wraps data so its mutations reach feed subscribers.
func NewNotifyingData(data backend.Data, table string, feed *Service, log logger.Logger) *NotifyingData {
	return &NotifyingData{Data: data, table: table, feed: feed, log: log}
}

// InsertBookmark inserts and announces an INSERT change.
func (d *NotifyingData) InsertBookmark(ctx context.Context, actor string, nb domain.NewBookmark) (domain.Bookmark, error) {
	b, err := d.Data.InsertBookmark(ctx, actor, nb)
	if err != nil {
		return b, err
	}

	row := b
	d.publish(ctx, row.UserID, backend.Change{Event: backend.ChangeInsert, Table: d.table, New: &row})
	return b, nil
}

// DeleteBookmark deletes and announces one DELETE change per removed row.
func (d *NotifyingData) DeleteBookmark(ctx context.Context, actor string, id int64) ([]domain.Bookmark, error) {
	removed, err := d.Data.DeleteBookmark(ctx, actor, id)
	if err != nil {
		return removed, err
	}

	for i := range removed {
		row := removed[i]
		d.publish(ctx, row.UserID, backend.Change{Event: backend.ChangeDelete, Table: d.table, Old: &row})
	}
	return removed, nil
}

func (d *NotifyingData) publish(ctx context.Context, owner string, change backend.Change) {
	if err := d.feed.Publish(ctx, backend.UserFilter(owner), change); err != nil {
		d.log.Warn("failed to publish change",
			logger.String("event", string(change.Event)),
			logger.Error(err))
	}
}
