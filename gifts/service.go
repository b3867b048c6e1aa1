package gifts

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/giftwish/giftwish/currency"
	"github.com/giftwish/giftwish/internal/ids"
	"github.com/giftwish/giftwish/internal/localization"
	"github.com/giftwish/giftwish/internal/pagination"
	"github.com/giftwish/giftwish/permissions"
)

// ErrValidation wraps input validation failures so handlers can map them
// to a 400 response.
var ErrValidation = errors.New("invalid gift input")

// WriteInput carries a create or patch payload. Nil pointers mean "leave
// unchanged" on update. Price and the localized text fields use raw JSON so
// an explicit null, which clears the field, is distinguishable from an
// absent one.
type WriteInput struct {
	TitleLocalized       json.RawMessage `json:"titleLocalized"`
	DescriptionLocalized json.RawMessage `json:"descriptionLocalized"`
	URL                  *string         `json:"url" validate:"omitempty,url,max=2000"`
	ImageURL             *string         `json:"imageUrl" validate:"omitempty,url,max=2000"`
	Price                json.RawMessage `json:"price"`
	Claimable            *bool           `json:"claimable"`
	TagIDs               *[]string       `json:"tagIds" validate:"omitempty,dive,required"`
}

// Viewer identifies who is looking at a gift and how it should be shaped
// for them.
type Viewer struct {
	Email    string
	Currency string
	Locale   string
}

// GiftView is a gift shaped for one caller: the title and description
// resolved to their locale, the price converted to their display currency
// and the reservation state relative to their identity.
type GiftView struct {
	Gift
	Title        string `json:"title"`
	Description  string `json:"description,omitempty"`
	DisplayPrice *Money `json:"displayPrice,omitempty"`
	Reserved     bool   `json:"reserved"`
	ReservedByMe bool   `json:"reservedByMe"`
}

// Repos holds the repository dependencies for the Service.
type Repos struct {
	Gifts        Repo
	Reservations ReservationRepo
}

// Service implements wishlist operations over gifts and reservations.
type Service struct {
	repos      Repos
	currencies *currency.Service
	validate   *validator.Validate
	logger     zerolog.Logger
	nowTime    func() time.Time
}

// ServiceOption defines a function type to modify the Service instance.
type ServiceOption func(*Service)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

// WithLogger sets the service logger.
func WithLogger(logger zerolog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService initializes the gift Service with required dependencies.
func NewService(repos Repos, currencies *currency.Service, options ...ServiceOption) (*Service, error) {
	if repos.Gifts == nil {
		return nil, errors.New("[NewService] Gifts repo is required")
	}
	if repos.Reservations == nil {
		return nil, errors.New("[NewService] Reservations repo is required")
	}
	if currencies == nil {
		return nil, errors.New("[NewService] currency service is required")
	}

	service := &Service{
		repos:      repos,
		currencies: currencies,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		logger:     zerolog.Nop(),
		nowTime:    time.Now,
	}
	for _, opt := range options {
		opt(service)
	}
	return service, nil
}

// Create stores a new gift. The localized title is the only required field
// and must carry at least one locale entry.
func (s *Service) Create(ctx context.Context, input WriteInput) (*Gift, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, errors.Wrap(ErrValidation, err.Error())
	}
	title, _, err := parseLocalized(input.TitleLocalized, "titleLocalized")
	if err != nil {
		return nil, err
	}
	if len(title) == 0 {
		return nil, errors.Wrap(ErrValidation, "titleLocalized must include at least one locale entry")
	}
	description, _, err := parseLocalized(input.DescriptionLocalized, "descriptionLocalized")
	if err != nil {
		return nil, err
	}
	// On create an explicit null price is the same as no price.
	price, _, err := s.parsePrice(input.Price)
	if err != nil {
		return nil, err
	}

	now := s.nowTime()
	gift := Gift{
		ID:                   ids.New(),
		TitleLocalized:       title,
		DescriptionLocalized: description,
		Price:                price,
		Claimable:            true,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if input.URL != nil {
		gift.URL = *input.URL
	}
	if input.ImageURL != nil {
		gift.ImageURL = *input.ImageURL
	}
	if input.Claimable != nil {
		gift.Claimable = *input.Claimable
	}
	if input.TagIDs != nil {
		gift.TagIDs = *input.TagIDs
	}

	if err := s.repos.Gifts.Create(ctx, gift); err != nil {
		return nil, errors.Wrap(err, "[Create] Gifts.Create")
	}
	return &gift, nil
}

// Get returns the gift shaped for the viewer.
func (s *Service) Get(ctx context.Context, id string, viewer Viewer) (*GiftView, error) {
	gift, err := s.repos.Gifts.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	view := s.buildView(ctx, gift, viewer)
	return &view, nil
}

// List returns one page of gifts, newest first.
func (s *Service) List(ctx context.Context, encodedCursor string, limit int, viewer Viewer) (*pagination.Page[GiftView], error) {
	limit = pagination.NormalizeLimit(limit)

	var cursor *pagination.Cursor
	if encodedCursor != "" {
		decoded, err := pagination.Decode(encodedCursor)
		if err != nil {
			return nil, errors.Wrap(ErrValidation, "bad cursor")
		}
		cursor = &decoded
	}

	// Fetch one extra row to learn whether a next page exists.
	rows, err := s.repos.Gifts.List(ctx, cursor, limit+1)
	if err != nil {
		return nil, errors.Wrap(err, "[List] Gifts.List")
	}

	page := &pagination.Page[GiftView]{HasNextPage: len(rows) > limit}
	if page.HasNextPage {
		rows = rows[:limit]
	}
	for _, gift := range rows {
		page.Items = append(page.Items, s.buildView(ctx, gift, viewer))
	}
	if page.HasNextPage && len(rows) > 0 {
		last := rows[len(rows)-1]
		page.NextCursor = pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}.Encode()
	}
	return page, nil
}

// Update applies a partial update. Absent fields stay untouched; an explicit
// null clears the price or the localized description. The title can be
// replaced but never cleared.
func (s *Service) Update(ctx context.Context, id string, input WriteInput) (*Gift, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, errors.Wrap(ErrValidation, err.Error())
	}

	gift, err := s.repos.Gifts.Find(ctx, id)
	if err != nil {
		return nil, err
	}

	if title, clear, err := parseLocalized(input.TitleLocalized, "titleLocalized"); err != nil {
		return nil, err
	} else if clear || (title != nil && len(title) == 0) {
		return nil, errors.Wrap(ErrValidation, "titleLocalized must include at least one locale entry")
	} else if title != nil {
		gift.TitleLocalized = title
	}
	if description, clear, err := parseLocalized(input.DescriptionLocalized, "descriptionLocalized"); err != nil {
		return nil, err
	} else if clear {
		gift.DescriptionLocalized = nil
	} else if description != nil {
		gift.DescriptionLocalized = description
	}
	if input.Claimable != nil {
		gift.Claimable = *input.Claimable
	}
	if input.URL != nil {
		gift.URL = *input.URL
	}
	if input.ImageURL != nil {
		gift.ImageURL = *input.ImageURL
	}
	if input.TagIDs != nil {
		gift.TagIDs = *input.TagIDs
	}
	if price, clear, err := s.parsePrice(input.Price); err != nil {
		return nil, err
	} else if clear {
		gift.Price = nil
	} else if price != nil {
		gift.Price = price
	}
	gift.UpdatedAt = s.nowTime()

	if err := s.repos.Gifts.Update(ctx, gift); err != nil {
		return nil, errors.Wrap(err, "[Update] Gifts.Update")
	}
	return &gift, nil
}

// Delete removes a gift and any reservation on it.
func (s *Service) Delete(ctx context.Context, id string) error {
	deleted, err := s.repos.Gifts.Delete(ctx, id)
	if err != nil {
		return errors.Wrap(err, "[Delete] Gifts.Delete")
	}
	if !deleted {
		return ErrGiftNotFound
	}
	if _, err := s.repos.Reservations.Release(ctx, id); err != nil {
		s.logger.Warn().Err(err).Str("gift_id", id).Msg("failed releasing reservation of deleted gift")
	}
	return nil
}

// Reserve claims a gift for email. A gift marked not claimable cannot be
// reserved at all; one with an unexpired reservation cannot be claimed
// again, while a lapsed reservation is released first.
func (s *Service) Reserve(ctx context.Context, giftID, email string) (*Reservation, error) {
	gift, err := s.repos.Gifts.Find(ctx, giftID)
	if err != nil {
		return nil, err
	}
	if !gift.Claimable {
		return nil, ErrNotClaimable
	}

	now := s.nowTime()
	if existing, err := s.repos.Reservations.Find(ctx, giftID); err == nil {
		if now.Before(existing.ExpiresAt) {
			return nil, ErrAlreadyReserved
		}
		if _, err := s.repos.Reservations.Release(ctx, giftID); err != nil {
			return nil, errors.Wrap(err, "[Reserve] release lapsed reservation")
		}
	}

	reservation := Reservation{
		GiftID:    giftID,
		Email:     permissions.NormalizeIdentity(email),
		CreatedAt: now,
		ExpiresAt: now.Add(ReservationTTL),
	}
	if err := s.repos.Reservations.Reserve(ctx, reservation); err != nil {
		return nil, errors.Wrap(err, "[Reserve] Reservations.Reserve")
	}
	return &reservation, nil
}

// Unreserve releases a reservation. Only the guest who placed it may
// release it.
func (s *Service) Unreserve(ctx context.Context, giftID, email string) error {
	reservation, err := s.repos.Reservations.Find(ctx, giftID)
	if err != nil {
		return ErrNotReserved
	}
	if reservation.Email != permissions.NormalizeIdentity(email) {
		return ErrNotReservationOwner
	}
	if _, err := s.repos.Reservations.Release(ctx, giftID); err != nil {
		return errors.Wrap(err, "[Unreserve] Reservations.Release")
	}
	return nil
}

// CleanupExpiredReservations removes reservations past their window.
func (s *Service) CleanupExpiredReservations(ctx context.Context) (int64, error) {
	removed, err := s.repos.Reservations.DeleteExpired(ctx, s.nowTime())
	if err != nil {
		return 0, errors.Wrap(err, "[CleanupExpiredReservations] DeleteExpired")
	}
	return removed, nil
}

func (s *Service) buildView(ctx context.Context, gift Gift, viewer Viewer) GiftView {
	view := GiftView{
		Gift:        gift,
		Title:       gift.TitleLocalized.Resolve(viewer.Locale),
		Description: gift.DescriptionLocalized.Resolve(viewer.Locale),
	}

	if gift.Price != nil && viewer.Currency != "" && viewer.Currency != gift.Price.Currency {
		if amount, err := s.currencies.Convert(gift.Price.Amount, gift.Price.Currency, viewer.Currency); err == nil {
			view.DisplayPrice = &Money{Amount: amount, Currency: viewer.Currency}
		} else {
			s.logger.Debug().Err(err).Str("gift_id", gift.ID).Msg("price conversion skipped")
		}
	}

	if reservation, err := s.repos.Reservations.Find(ctx, gift.ID); err == nil && s.nowTime().Before(reservation.ExpiresAt) {
		view.Reserved = true
		view.ReservedByMe = viewer.Email != "" && reservation.Email == permissions.NormalizeIdentity(viewer.Email)
	}
	return view
}

// parseLocalized interprets a raw localized text field: absent means no
// change, null means clear, an object must be a valid locale-to-text map.
func parseLocalized(raw json.RawMessage, field string) (localization.TextMap, bool, error) {
	if len(raw) == 0 {
		return nil, false, nil
	}
	if string(raw) == "null" {
		return nil, true, nil
	}
	var values map[string]string
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, false, errors.Wrapf(ErrValidation, "%s must be an object map of locale to string", field)
	}
	parsed, err := localization.ParseTextMap(values)
	if err != nil {
		return nil, false, errors.Wrapf(ErrValidation, "%s: %s", field, err.Error())
	}
	return parsed, false, nil
}

// parsePrice interprets the raw price field: absent means no change, null
// means clear, an object must validate as Money.
func (s *Service) parsePrice(raw json.RawMessage) (price *Money, clear bool, err error) {
	if len(raw) == 0 {
		return nil, false, nil
	}
	if string(raw) == "null" {
		return nil, true, nil
	}
	var money Money
	if err := json.Unmarshal(raw, &money); err != nil {
		return nil, false, errors.Wrap(ErrValidation, "bad price")
	}
	if err := s.validate.Struct(money); err != nil {
		return nil, false, errors.Wrap(ErrValidation, err.Error())
	}
	return &money, false, nil
}
