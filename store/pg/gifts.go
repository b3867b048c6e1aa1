package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/giftwish/giftwish/gifts"
	"github.com/giftwish/giftwish/internal/pagination"
)

// GiftRepo is the Postgres implementation of gifts.Repo.
type GiftRepo struct {
	store *Store
}

var _ gifts.Repo = (*GiftRepo)(nil)

// NewGiftRepo creates a GiftRepo over store.
func NewGiftRepo(store *Store) *GiftRepo {
	return &GiftRepo{store: store}
}

func (r *GiftRepo) Create(ctx context.Context, gift gifts.Gift) error {
	amount, currency := priceColumns(gift.Price)
	title, description, tagIDs, err := giftJSONColumns(gift)
	if err != nil {
		return errors.Wrap(err, "[Create] marshal gift columns")
	}

	_, err = r.store.db.ExecContext(ctx,
		`INSERT INTO gifts (id, title_localized, description_localized, url, image_url, price_amount, price_currency, claimable, tag_ids, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		gift.ID, title, description, gift.URL, gift.ImageURL,
		amount, currency, gift.Claimable, tagIDs, gift.CreatedAt, gift.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "[Create] insert gift")
	}
	return nil
}

func (r *GiftRepo) Find(ctx context.Context, id string) (gifts.Gift, error) {
	row := r.store.db.QueryRowContext(ctx,
		`SELECT id, title_localized, description_localized, url, image_url, price_amount, price_currency, claimable, tag_ids, created_at, updated_at
		 FROM gifts WHERE id = $1`, id)

	gift, err := scanGift(row)
	if errors.Is(err, sql.ErrNoRows) {
		return gifts.Gift{}, gifts.ErrGiftNotFound
	}
	if err != nil {
		return gifts.Gift{}, errors.Wrap(err, "[Find] select gift")
	}
	return gift, nil
}

func (r *GiftRepo) List(ctx context.Context, cursor *pagination.Cursor, limit int) ([]gifts.Gift, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if cursor == nil {
		rows, err = r.store.db.QueryContext(ctx,
			`SELECT id, title_localized, description_localized, url, image_url, price_amount, price_currency, claimable, tag_ids, created_at, updated_at
			 FROM gifts
			 ORDER BY created_at DESC, id DESC
			 LIMIT $1`, limit)
	} else {
		rows, err = r.store.db.QueryContext(ctx,
			`SELECT id, title_localized, description_localized, url, image_url, price_amount, price_currency, claimable, tag_ids, created_at, updated_at
			 FROM gifts
			 WHERE (created_at, id) < ($1, $2)
			 ORDER BY created_at DESC, id DESC
			 LIMIT $3`, cursor.CreatedAt, cursor.ID, limit)
	}
	if err != nil {
		return nil, errors.Wrap(err, "[List] select gifts")
	}
	defer rows.Close()

	var out []gifts.Gift
	for rows.Next() {
		gift, err := scanGift(rows)
		if err != nil {
			return nil, errors.Wrap(err, "[List] scan gift")
		}
		out = append(out, gift)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "[List] rows")
	}
	return out, nil
}

func (r *GiftRepo) Update(ctx context.Context, gift gifts.Gift) error {
	amount, currency := priceColumns(gift.Price)
	title, description, tagIDs, err := giftJSONColumns(gift)
	if err != nil {
		return errors.Wrap(err, "[Update] marshal gift columns")
	}

	result, err := r.store.db.ExecContext(ctx,
		`UPDATE gifts
		 SET title_localized = $2, description_localized = $3, url = $4, image_url = $5,
		     price_amount = $6, price_currency = $7, claimable = $8, tag_ids = $9, updated_at = $10
		 WHERE id = $1`,
		gift.ID, title, description, gift.URL, gift.ImageURL,
		amount, currency, gift.Claimable, tagIDs, gift.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "[Update] update gift")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "[Update] rows affected")
	}
	if affected == 0 {
		return gifts.ErrGiftNotFound
	}
	return nil
}

func (r *GiftRepo) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.store.db.ExecContext(ctx, `DELETE FROM gifts WHERE id = $1`, id)
	if err != nil {
		return false, errors.Wrap(err, "[Delete] delete gift")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "[Delete] rows affected")
	}
	return affected > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGift(row rowScanner) (gifts.Gift, error) {
	var (
		gift        gifts.Gift
		title       []byte
		description []byte
		amount      sql.NullFloat64
		currency    sql.NullString
		tagIDs      []byte
	)
	if err := row.Scan(&gift.ID, &title, &description, &gift.URL, &gift.ImageURL,
		&amount, &currency, &gift.Claimable, &tagIDs, &gift.CreatedAt, &gift.UpdatedAt); err != nil {
		return gifts.Gift{}, err
	}
	if len(title) > 0 {
		if err := json.Unmarshal(title, &gift.TitleLocalized); err != nil {
			return gifts.Gift{}, errors.Wrap(err, "unmarshal localized title")
		}
	}
	if len(description) > 0 {
		if err := json.Unmarshal(description, &gift.DescriptionLocalized); err != nil {
			return gifts.Gift{}, errors.Wrap(err, "unmarshal localized description")
		}
	}
	if amount.Valid && currency.Valid {
		gift.Price = &gifts.Money{Amount: amount.Float64, Currency: currency.String}
	}
	if len(tagIDs) > 0 {
		if err := json.Unmarshal(tagIDs, &gift.TagIDs); err != nil {
			return gifts.Gift{}, errors.Wrap(err, "unmarshal tag ids")
		}
	}
	return gift, nil
}

func priceColumns(price *gifts.Money) (sql.NullFloat64, sql.NullString) {
	if price == nil {
		return sql.NullFloat64{}, sql.NullString{}
	}
	return sql.NullFloat64{Float64: price.Amount, Valid: true},
		sql.NullString{String: price.Currency, Valid: true}
}

// giftJSONColumns marshals the jsonb columns of a gift row. A nil
// description maps to SQL NULL.
func giftJSONColumns(gift gifts.Gift) (title, description, tagIDs []byte, err error) {
	title, err = json.Marshal(gift.TitleLocalized)
	if err != nil {
		return nil, nil, nil, err
	}
	if gift.DescriptionLocalized != nil {
		description, err = json.Marshal(gift.DescriptionLocalized)
		if err != nil {
			return nil, nil, nil, err
		}
	}
	ids := gift.TagIDs
	if ids == nil {
		ids = []string{}
	}
	tagIDs, err = json.Marshal(ids)
	if err != nil {
		return nil, nil, nil, err
	}
	return title, description, tagIDs, nil
}

// ReservationRepo is the Postgres implementation of gifts.ReservationRepo.
type ReservationRepo struct {
	store *Store
}

var _ gifts.ReservationRepo = (*ReservationRepo)(nil)

// NewReservationRepo creates a ReservationRepo over store.
func NewReservationRepo(store *Store) *ReservationRepo {
	return &ReservationRepo{store: store}
}

func (r *ReservationRepo) Reserve(ctx context.Context, reservation gifts.Reservation) error {
	// The insert only succeeds when no row holds the gift, making the
	// claim race safe without a transaction.
	result, err := r.store.db.ExecContext(ctx,
		`INSERT INTO reservations (gift_id, email, created_at, expires_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (gift_id) DO NOTHING`,
		reservation.GiftID, reservation.Email, reservation.CreatedAt, reservation.ExpiresAt,
	)
	if err != nil {
		return errors.Wrap(err, "[Reserve] insert reservation")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "[Reserve] rows affected")
	}
	if affected == 0 {
		return gifts.ErrAlreadyReserved
	}
	return nil
}

func (r *ReservationRepo) Find(ctx context.Context, giftID string) (gifts.Reservation, error) {
	var reservation gifts.Reservation
	err := r.store.db.QueryRowContext(ctx,
		`SELECT gift_id, email, created_at, expires_at
		 FROM reservations WHERE gift_id = $1`, giftID,
	).Scan(&reservation.GiftID, &reservation.Email, &reservation.CreatedAt, &reservation.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return gifts.Reservation{}, gifts.ErrNotReserved
	}
	if err != nil {
		return gifts.Reservation{}, errors.Wrap(err, "[Find] select reservation")
	}
	return reservation, nil
}

func (r *ReservationRepo) Release(ctx context.Context, giftID string) (bool, error) {
	result, err := r.store.db.ExecContext(ctx, `DELETE FROM reservations WHERE gift_id = $1`, giftID)
	if err != nil {
		return false, errors.Wrap(err, "[Release] delete reservation")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "[Release] rows affected")
	}
	return affected > 0, nil
}

func (r *ReservationRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.store.db.ExecContext(ctx, `DELETE FROM reservations WHERE expires_at < $1`, now)
	if err != nil {
		return 0, errors.Wrap(err, "[DeleteExpired] delete reservations")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "[DeleteExpired] rows affected")
	}
	return affected, nil
}
