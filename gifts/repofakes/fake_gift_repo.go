package fakegiftrepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/giftwish/giftwish/gifts"
	"github.com/giftwish/giftwish/internal/pagination"
)

var (
	_ gifts.Repo            = (*FakeGiftRepo)(nil)
	_ gifts.ReservationRepo = (*FakeReservationRepo)(nil)
)

type FakeGiftRepo struct {
	gifts map[string]gifts.Gift
	lock  sync.RWMutex
}

func NewFakeGiftRepo() *FakeGiftRepo {
	return &FakeGiftRepo{gifts: make(map[string]gifts.Gift)}
}

func (gr *FakeGiftRepo) Create(_ context.Context, gift gifts.Gift) error {
	gr.lock.Lock()
	defer gr.lock.Unlock()
	gr.gifts[gift.ID] = gift
	return nil
}

func (gr *FakeGiftRepo) Find(_ context.Context, id string) (gifts.Gift, error) {
	gr.lock.RLock()
	defer gr.lock.RUnlock()

	gift, ok := gr.gifts[id]
	if !ok {
		return gifts.Gift{}, gifts.ErrGiftNotFound
	}
	return gift, nil
}

func (gr *FakeGiftRepo) List(_ context.Context, cursor *pagination.Cursor, limit int) ([]gifts.Gift, error) {
	gr.lock.RLock()
	defer gr.lock.RUnlock()

	all := make([]gifts.Gift, 0, len(gr.gifts))
	for _, gift := range gr.gifts {
		all = append(all, gift)
	}
	// Newest first, id descending as the tiebreak, matching the SQL order.
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})

	var out []gifts.Gift
	for _, gift := range all {
		if cursor != nil {
			after := gift.CreatedAt.After(cursor.CreatedAt) ||
				(gift.CreatedAt.Equal(cursor.CreatedAt) && gift.ID >= cursor.ID)
			if after {
				continue
			}
		}
		out = append(out, gift)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (gr *FakeGiftRepo) Update(_ context.Context, gift gifts.Gift) error {
	gr.lock.Lock()
	defer gr.lock.Unlock()

	if _, ok := gr.gifts[gift.ID]; !ok {
		return gifts.ErrGiftNotFound
	}
	gr.gifts[gift.ID] = gift
	return nil
}

func (gr *FakeGiftRepo) Delete(_ context.Context, id string) (bool, error) {
	gr.lock.Lock()
	defer gr.lock.Unlock()

	if _, ok := gr.gifts[id]; !ok {
		return false, nil
	}
	delete(gr.gifts, id)
	return true, nil
}

type FakeReservationRepo struct {
	reservations map[string]gifts.Reservation
	lock         sync.RWMutex
}

func NewFakeReservationRepo() *FakeReservationRepo {
	return &FakeReservationRepo{reservations: make(map[string]gifts.Reservation)}
}

func (rr *FakeReservationRepo) Reserve(_ context.Context, reservation gifts.Reservation) error {
	rr.lock.Lock()
	defer rr.lock.Unlock()

	if _, ok := rr.reservations[reservation.GiftID]; ok {
		return gifts.ErrAlreadyReserved
	}
	rr.reservations[reservation.GiftID] = reservation
	return nil
}

func (rr *FakeReservationRepo) Find(_ context.Context, giftID string) (gifts.Reservation, error) {
	rr.lock.RLock()
	defer rr.lock.RUnlock()

	reservation, ok := rr.reservations[giftID]
	if !ok {
		return gifts.Reservation{}, gifts.ErrNotReserved
	}
	return reservation, nil
}

func (rr *FakeReservationRepo) Release(_ context.Context, giftID string) (bool, error) {
	rr.lock.Lock()
	defer rr.lock.Unlock()

	if _, ok := rr.reservations[giftID]; !ok {
		return false, nil
	}
	delete(rr.reservations, giftID)
	return true, nil
}

func (rr *FakeReservationRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	rr.lock.Lock()
	defer rr.lock.Unlock()

	var removed int64
	for giftID, reservation := range rr.reservations {
		if now.After(reservation.ExpiresAt) {
			delete(rr.reservations, giftID)
			removed++
		}
	}
	return removed, nil
}
