package gifts

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/giftwish/giftwish/internal/pagination"
)

var (
	// ErrGiftNotFound indicates no gift matches the id.
	ErrGiftNotFound = errors.New("gift not found")

	// ErrAlreadyReserved indicates the gift holds an active reservation.
	ErrAlreadyReserved = errors.New("gift already reserved")

	// ErrNotReserved indicates no active reservation exists for the gift.
	ErrNotReserved = errors.New("gift not reserved")

	// ErrNotReservationOwner indicates the caller did not place the
	// reservation they are trying to release.
	ErrNotReservationOwner = errors.New("reservation belongs to someone else")

	// ErrNotClaimable indicates the owner marked the gift as not open for
	// reservation.
	ErrNotClaimable = errors.New("gift not claimable")
)

// Repo persists gifts.
type Repo interface {
	Create(ctx context.Context, gift Gift) error
	Find(ctx context.Context, id string) (Gift, error)
	// List returns up to limit gifts created strictly before the cursor
	// position, newest first. A nil cursor starts from the newest gift.
	List(ctx context.Context, cursor *pagination.Cursor, limit int) ([]Gift, error)
	Update(ctx context.Context, gift Gift) error
	Delete(ctx context.Context, id string) (bool, error)
}

// ReservationRepo persists gift reservations, at most one per gift.
type ReservationRepo interface {
	// Reserve stores the reservation unless an unexpired one already
	// exists for the gift, in which case it returns ErrAlreadyReserved.
	Reserve(ctx context.Context, reservation Reservation) error
	Find(ctx context.Context, giftID string) (Reservation, error)
	Release(ctx context.Context, giftID string) (bool, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
