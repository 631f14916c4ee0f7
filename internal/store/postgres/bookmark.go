package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/MrSnakeDoc/marks/internal/domain"
	"github.com/MrSnakeDoc/marks/internal/errs"
)

const (
	setActor = `SELECT set_config('marks.user_id', $1, true)`

	listBookmarks = `
SELECT id, title, url, created_at, user_id
FROM bookmarks
WHERE user_id=$1
ORDER BY created_at DESC`

	insertBookmark = `
INSERT INTO bookmarks (title, url, user_id)
VALUES ($1,$2,$3)
RETURNING id, title, url, created_at, user_id`

	deleteBookmark = `
DELETE FROM bookmarks
WHERE id=$1
RETURNING id, title, url, created_at, user_id`
)

// BookmarkRepo implements backend.Data on PostgreSQL.
type BookmarkRepo struct{ db *DB }

// NewBookmarkRepo constructs a bookmark repository.
func NewBookmarkRepo(db *DB) *BookmarkRepo { return &BookmarkRepo{db: db} }

// ListBookmarks returns the actor's bookmarks, newest first.
func (r *BookmarkRepo) ListBookmarks(ctx context.Context, actor string) (out []domain.Bookmark, err error) {
	err = r.asActor(ctx, actor, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, listBookmarks, actor)
		if err != nil {
			return err
		}
		out, err = scanBookmarks(rows)
		return err
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.Bookmark{}
	}
	return out, nil
}

// InsertBookmark stores nb and returns the row with its assigned id and
// timestamp. The policy rejects a payload owned by someone else.
func (r *BookmarkRepo) InsertBookmark(ctx context.Context, actor string, nb domain.NewBookmark) (b domain.Bookmark, err error) {
	err = r.asActor(ctx, actor, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, insertBookmark, nb.Title, nb.URL, nb.UserID).
			Scan(&b.ID, &b.Title, &b.URL, &b.CreatedAt, &b.UserID)
	})
	if err != nil {
		return domain.Bookmark{}, err
	}
	return b, nil
}

// DeleteBookmark removes the row with id when the policy lets actor see it.
// Rows the actor does not own are silently left alone.
func (r *BookmarkRepo) DeleteBookmark(ctx context.Context, actor string, id int64) (out []domain.Bookmark, err error) {
	err = r.asActor(ctx, actor, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, deleteBookmark, id)
		if err != nil {
			return err
		}
		out, err = scanBookmarks(rows)
		return err
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.Bookmark{}
	}
	return out, nil
}

// asActor runs fn in a transaction whose row-level security context is
// bound to actor.
func (r *BookmarkRepo) asActor(ctx context.Context, actor string, fn func(pgx.Tx) error) (err error) {
	if actor == "" {
		return errs.ErrUnauthorized
	}

	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = e
		}
	}()

	if _, err = tx.Exec(ctx, setActor, actor); err != nil {
		return err
	}
	return fn(tx)
}

func scanBookmarks(rows pgx.Rows) ([]domain.Bookmark, error) {
	defer rows.Close()

	var out []domain.Bookmark
	for rows.Next() {
		var b domain.Bookmark
		if err := rows.Scan(&b.ID, &b.Title, &b.URL, &b.CreatedAt, &b.UserID); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
