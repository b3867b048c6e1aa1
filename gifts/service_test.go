package gifts_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giftwish/giftwish/currency"
	"github.com/giftwish/giftwish/gifts"
	fakegiftrepo "github.com/giftwish/giftwish/gifts/repofakes"
	"github.com/giftwish/giftwish/internal/utils"
)

type staticRates struct{ values map[string]float64 }

func (p *staticRates) Fetch(context.Context) (currency.Rates, error) {
	return currency.Rates{Base: "USD", Values: p.values}, nil
}

type testFixture struct {
	service      *gifts.Service
	giftRepo     *fakegiftrepo.FakeGiftRepo
	reservations *fakegiftrepo.FakeReservationRepo
	now          time.Time
	setNow       func(time.Time)
}

func newTestFixture(t *testing.T) *testFixture {
	t.Helper()

	currencies, err := currency.NewService(&staticRates{
		values: map[string]float64{"USD": 1, "EUR": 0.5},
	}, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, currencies.Refresh(context.Background()))

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := &now

	giftRepo := fakegiftrepo.NewFakeGiftRepo()
	reservations := fakegiftrepo.NewFakeReservationRepo()

	service, err := gifts.NewService(
		gifts.Repos{Gifts: giftRepo, Reservations: reservations},
		currencies,
		gifts.WithNowTime(func() time.Time { return *clock }),
	)
	require.NoError(t, err)

	return &testFixture{
		service:      service,
		giftRepo:     giftRepo,
		reservations: reservations,
		now:          now,
		setNow:       func(newNow time.Time) { *clock = newNow },
	}
}

func titleJSON(title string) json.RawMessage {
	raw, _ := json.Marshal(map[string]string{"en": title})
	return raw
}

func (f *testFixture) createGift(t *testing.T, title string) *gifts.Gift {
	t.Helper()
	gift, err := f.service.Create(context.Background(), gifts.WriteInput{
		TitleLocalized: titleJSON(title),
		Price:          json.RawMessage(`{"amount":20,"currency":"USD"}`),
	})
	require.NoError(t, err)
	return gift
}

func TestCreateRequiresLocalizedTitle(t *testing.T) {
	f := newTestFixture(t)

	_, err := f.service.Create(context.Background(), gifts.WriteInput{})
	assert.ErrorIs(t, err, gifts.ErrValidation)

	_, err = f.service.Create(context.Background(), gifts.WriteInput{
		TitleLocalized: json.RawMessage(`{}`),
	})
	assert.ErrorIs(t, err, gifts.ErrValidation)

	_, err = f.service.Create(context.Background(), gifts.WriteInput{
		TitleLocalized: json.RawMessage(`{"en":"   "}`),
	})
	assert.ErrorIs(t, err, gifts.ErrValidation)

	_, err = f.service.Create(context.Background(), gifts.WriteInput{
		TitleLocalized: json.RawMessage(`{"not a locale":"Bike"}`),
	})
	assert.ErrorIs(t, err, gifts.ErrValidation)

	_, err = f.service.Create(context.Background(), gifts.WriteInput{
		TitleLocalized: json.RawMessage(`"Bike"`),
	})
	assert.ErrorIs(t, err, gifts.ErrValidation)
}

func TestCreateNormalizesLocaleKeys(t *testing.T) {
	f := newTestFixture(t)

	gift, err := f.service.Create(context.Background(), gifts.WriteInput{
		TitleLocalized: json.RawMessage(`{"EN_us":"Bike","de":"Fahrrad"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, "Bike", gift.TitleLocalized["en-us"])
	assert.Equal(t, "Fahrrad", gift.TitleLocalized["de"])
	assert.True(t, gift.Claimable, "gifts default to claimable")
}

func TestCreateRejectsBadPrice(t *testing.T) {
	f := newTestFixture(t)

	_, err := f.service.Create(context.Background(), gifts.WriteInput{
		TitleLocalized: titleJSON("Bike"),
		Price:          json.RawMessage(`{"amount":-5,"currency":"USD"}`),
	})
	assert.ErrorIs(t, err, gifts.ErrValidation)

	_, err = f.service.Create(context.Background(), gifts.WriteInput{
		TitleLocalized: titleJSON("Bike"),
		Price:          json.RawMessage(`{"amount":5,"currency":"usd"}`),
	})
	assert.ErrorIs(t, err, gifts.ErrValidation)
}

func TestGetConvertsPriceToDisplayCurrency(t *testing.T) {
	f := newTestFixture(t)
	gift := f.createGift(t, "Bike")

	view, err := f.service.Get(context.Background(), gift.ID, gifts.Viewer{Currency: "EUR"})
	require.NoError(t, err)
	require.NotNil(t, view.DisplayPrice)
	assert.Equal(t, gifts.Money{Amount: 10, Currency: "EUR"}, *view.DisplayPrice)

	// Same currency skips the conversion.
	view, err = f.service.Get(context.Background(), gift.ID, gifts.Viewer{Currency: "USD"})
	require.NoError(t, err)
	assert.Nil(t, view.DisplayPrice)
}

func TestGetResolvesTextForViewerLocale(t *testing.T) {
	f := newTestFixture(t)

	gift, err := f.service.Create(context.Background(), gifts.WriteInput{
		TitleLocalized:       json.RawMessage(`{"en":"Bike","de":"Fahrrad"}`),
		DescriptionLocalized: json.RawMessage(`{"en":"a red one"}`),
	})
	require.NoError(t, err)

	view, err := f.service.Get(context.Background(), gift.ID, gifts.Viewer{Locale: "de-at"})
	require.NoError(t, err)
	assert.Equal(t, "Fahrrad", view.Title)
	assert.Equal(t, "a red one", view.Description, "missing locale falls back to english")

	view, err = f.service.Get(context.Background(), gift.ID, gifts.Viewer{})
	require.NoError(t, err)
	assert.Equal(t, "Bike", view.Title)
}

func TestUpdatePatchSemantics(t *testing.T) {
	f := newTestFixture(t)
	gift := f.createGift(t, "Bike")

	// Absent fields stay untouched.
	updated, err := f.service.Update(context.Background(), gift.ID, gifts.WriteInput{
		DescriptionLocalized: json.RawMessage(`{"en":"red one"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, "Bike", updated.TitleLocalized["en"])
	assert.Equal(t, "red one", updated.DescriptionLocalized["en"])
	require.NotNil(t, updated.Price)

	// Explicit null clears the description and the price.
	updated, err = f.service.Update(context.Background(), gift.ID, gifts.WriteInput{
		DescriptionLocalized: json.RawMessage(`null`),
		Price:                json.RawMessage(`null`),
	})
	require.NoError(t, err)
	assert.Nil(t, updated.DescriptionLocalized)
	assert.Nil(t, updated.Price)

	// The title cannot be cleared.
	_, err = f.service.Update(context.Background(), gift.ID, gifts.WriteInput{
		TitleLocalized: json.RawMessage(`null`),
	})
	assert.ErrorIs(t, err, gifts.ErrValidation)

	_, err = f.service.Update(context.Background(), "missing", gifts.WriteInput{})
	assert.ErrorIs(t, err, gifts.ErrGiftNotFound)
}

func TestListPaginatesNewestFirst(t *testing.T) {
	f := newTestFixture(t)

	for i, title := range []string{"a", "b", "c", "d", "e"} {
		f.setNow(f.now.Add(time.Duration(i) * time.Minute))
		f.createGift(t, title)
	}

	page, err := f.service.List(context.Background(), "", 2, gifts.Viewer{})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.True(t, page.HasNextPage)
	assert.Equal(t, "e", page.Items[0].Title)
	assert.Equal(t, "d", page.Items[1].Title)

	page2, err := f.service.List(context.Background(), page.NextCursor, 2, gifts.Viewer{})
	require.NoError(t, err)
	require.Len(t, page2.Items, 2)
	assert.Equal(t, "c", page2.Items[0].Title)
	assert.Equal(t, "b", page2.Items[1].Title)

	page3, err := f.service.List(context.Background(), page2.NextCursor, 2, gifts.Viewer{})
	require.NoError(t, err)
	require.Len(t, page3.Items, 1)
	assert.False(t, page3.HasNextPage)
	assert.Empty(t, page3.NextCursor)
}

func TestListRejectsBadCursor(t *testing.T) {
	f := newTestFixture(t)
	_, err := f.service.List(context.Background(), "garbage", 10, gifts.Viewer{})
	assert.ErrorIs(t, err, gifts.ErrValidation)
}

func TestReserveLifecycle(t *testing.T) {
	f := newTestFixture(t)
	gift := f.createGift(t, "Bike")

	reservation, err := f.service.Reserve(context.Background(), gift.ID, "Guest@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "guest@example.com", reservation.Email)
	assert.Equal(t, f.now.Add(gifts.ReservationTTL), reservation.ExpiresAt)

	// Second claim fails while the first holds.
	_, err = f.service.Reserve(context.Background(), gift.ID, "other@example.com")
	assert.ErrorIs(t, err, gifts.ErrAlreadyReserved)

	// The view reflects the reservation.
	view, err := f.service.Get(context.Background(), gift.ID, gifts.Viewer{Email: "guest@example.com"})
	require.NoError(t, err)
	assert.True(t, view.Reserved)
	assert.True(t, view.ReservedByMe)

	view, err = f.service.Get(context.Background(), gift.ID, gifts.Viewer{Email: "other@example.com"})
	require.NoError(t, err)
	assert.True(t, view.Reserved)
	assert.False(t, view.ReservedByMe)
}

func TestReserveRejectsUnclaimableGift(t *testing.T) {
	f := newTestFixture(t)

	gift, err := f.service.Create(context.Background(), gifts.WriteInput{
		TitleLocalized: titleJSON("Heirloom"),
		Claimable:      utils.Ptr(false),
	})
	require.NoError(t, err)
	assert.False(t, gift.Claimable)

	_, err = f.service.Reserve(context.Background(), gift.ID, "guest@example.com")
	assert.ErrorIs(t, err, gifts.ErrNotClaimable)

	// The owner can open it up again.
	_, err = f.service.Update(context.Background(), gift.ID, gifts.WriteInput{
		Claimable: utils.Ptr(true),
	})
	require.NoError(t, err)

	_, err = f.service.Reserve(context.Background(), gift.ID, "guest@example.com")
	require.NoError(t, err)
}

func TestReserveAfterLapseSucceeds(t *testing.T) {
	f := newTestFixture(t)
	gift := f.createGift(t, "Bike")

	_, err := f.service.Reserve(context.Background(), gift.ID, "first@example.com")
	require.NoError(t, err)

	f.setNow(f.now.Add(gifts.ReservationTTL + time.Hour))
	reservation, err := f.service.Reserve(context.Background(), gift.ID, "second@example.com")
	require.NoError(t, err)
	assert.Equal(t, "second@example.com", reservation.Email)
}

func TestUnreserveOnlyByOwner(t *testing.T) {
	f := newTestFixture(t)
	gift := f.createGift(t, "Bike")

	_, err := f.service.Reserve(context.Background(), gift.ID, "guest@example.com")
	require.NoError(t, err)

	err = f.service.Unreserve(context.Background(), gift.ID, "other@example.com")
	assert.ErrorIs(t, err, gifts.ErrNotReservationOwner)

	require.NoError(t, f.service.Unreserve(context.Background(), gift.ID, "guest@example.com"))
	assert.ErrorIs(t, f.service.Unreserve(context.Background(), gift.ID, "guest@example.com"), gifts.ErrNotReserved)
}

func TestDeleteRemovesGiftAndReservation(t *testing.T) {
	f := newTestFixture(t)
	gift := f.createGift(t, "Bike")

	_, err := f.service.Reserve(context.Background(), gift.ID, "guest@example.com")
	require.NoError(t, err)

	require.NoError(t, f.service.Delete(context.Background(), gift.ID))
	assert.ErrorIs(t, f.service.Delete(context.Background(), gift.ID), gifts.ErrGiftNotFound)

	_, err = f.reservations.Find(context.Background(), gift.ID)
	assert.ErrorIs(t, err, gifts.ErrNotReserved)
}

func TestCleanupExpiredReservations(t *testing.T) {
	f := newTestFixture(t)
	a := f.createGift(t, "a")
	b := f.createGift(t, "b")

	_, err := f.service.Reserve(context.Background(), a.ID, "guest@example.com")
	require.NoError(t, err)
	f.setNow(f.now.Add(time.Hour))
	_, err = f.service.Reserve(context.Background(), b.ID, "guest@example.com")
	require.NoError(t, err)

	f.setNow(f.now.Add(gifts.ReservationTTL + 30*time.Minute))
	removed, err := f.service.CleanupExpiredReservations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
}
