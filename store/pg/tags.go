package pg

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"

	"github.com/giftwish/giftwish/tags"
)

// TagRepo is the Postgres implementation of tags.Repo.
type TagRepo struct {
	store *Store
}

var _ tags.Repo = (*TagRepo)(nil)

// NewTagRepo creates a TagRepo over store.
func NewTagRepo(store *Store) *TagRepo {
	return &TagRepo{store: store}
}

func (r *TagRepo) Create(ctx context.Context, tag tags.Tag) error {
	title, err := json.Marshal(tag.TitleLocalized)
	if err != nil {
		return errors.Wrap(err, "[Create] marshal localized title")
	}

	_, err = r.store.db.ExecContext(ctx,
		`INSERT INTO tags (id, title_localized, color, created_at) VALUES ($1, $2, $3, $4)`,
		tag.ID, title, tag.Color, tag.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return tags.ErrDuplicateTag
		}
		return errors.Wrap(err, "[Create] insert tag")
	}
	return nil
}

func (r *TagRepo) Find(ctx context.Context, id string) (tags.Tag, error) {
	row := r.store.db.QueryRowContext(ctx,
		`SELECT id, title_localized, color, created_at FROM tags WHERE id = $1`, id)

	tag, err := scanTag(row)
	if errors.Is(err, sql.ErrNoRows) {
		return tags.Tag{}, tags.ErrTagNotFound
	}
	if err != nil {
		return tags.Tag{}, errors.Wrap(err, "[Find] select tag")
	}
	return tag, nil
}

func (r *TagRepo) FindByTitle(ctx context.Context, title string) (tags.Tag, error) {
	row := r.store.db.QueryRowContext(ctx,
		`SELECT id, title_localized, color, created_at FROM tags
		 WHERE EXISTS (
		     SELECT 1 FROM jsonb_each_text(title_localized) AS entry
		     WHERE LOWER(entry.value) = LOWER($1)
		 )
		 LIMIT 1`, title)

	tag, err := scanTag(row)
	if errors.Is(err, sql.ErrNoRows) {
		return tags.Tag{}, tags.ErrTagNotFound
	}
	if err != nil {
		return tags.Tag{}, errors.Wrap(err, "[FindByTitle] select tag")
	}
	return tag, nil
}

func (r *TagRepo) List(ctx context.Context) ([]tags.Tag, error) {
	rows, err := r.store.db.QueryContext(ctx,
		`SELECT id, title_localized, color, created_at FROM tags ORDER BY created_at, id`)
	if err != nil {
		return nil, errors.Wrap(err, "[List] select tags")
	}
	defer rows.Close()

	var out []tags.Tag
	for rows.Next() {
		tag, err := scanTag(rows)
		if err != nil {
			return nil, errors.Wrap(err, "[List] scan tag")
		}
		out = append(out, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "[List] rows")
	}
	return out, nil
}

func (r *TagRepo) Update(ctx context.Context, tag tags.Tag) error {
	title, err := json.Marshal(tag.TitleLocalized)
	if err != nil {
		return errors.Wrap(err, "[Update] marshal localized title")
	}

	result, err := r.store.db.ExecContext(ctx,
		`UPDATE tags SET title_localized = $2, color = $3 WHERE id = $1`,
		tag.ID, title, tag.Color,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return tags.ErrDuplicateTag
		}
		return errors.Wrap(err, "[Update] update tag")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "[Update] rows affected")
	}
	if affected == 0 {
		return tags.ErrTagNotFound
	}
	return nil
}

func (r *TagRepo) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.store.db.ExecContext(ctx, `DELETE FROM tags WHERE id = $1`, id)
	if err != nil {
		return false, errors.Wrap(err, "[Delete] delete tag")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "[Delete] rows affected")
	}
	return affected > 0, nil
}

func scanTag(row rowScanner) (tags.Tag, error) {
	var (
		tag   tags.Tag
		title []byte
	)
	if err := row.Scan(&tag.ID, &title, &tag.Color, &tag.CreatedAt); err != nil {
		return tags.Tag{}, err
	}
	if len(title) > 0 {
		if err := json.Unmarshal(title, &tag.TitleLocalized); err != nil {
			return tags.Tag{}, errors.Wrap(err, "unmarshal localized title")
		}
	}
	return tag, nil
}
