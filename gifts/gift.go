package gifts

import (
	"time"

	"github.com/giftwish/giftwish/internal/localization"
)

// Money is an amount in an ISO 4217 currency.
type Money struct {
	Amount   float64 `json:"amount" validate:"gte=0"`
	Currency string  `json:"currency" validate:"len=3,uppercase"`
}

// Gift is one wishlist entry. Title and description are stored per locale;
// the display text is resolved per request. Price is optional; a gift
// without one is shown without an amount. A gift marked not claimable
// cannot be reserved.
type Gift struct {
	ID                   string               `json:"id"`
	TitleLocalized       localization.TextMap `json:"titleLocalized"`
	DescriptionLocalized localization.TextMap `json:"descriptionLocalized,omitempty"`
	URL                  string               `json:"url,omitempty"`
	ImageURL             string               `json:"imageUrl,omitempty"`
	Price                *Money               `json:"price,omitempty"`
	Claimable            bool                 `json:"claimable"`
	TagIDs               []string             `json:"tagIds,omitempty"`
	CreatedAt            time.Time            `json:"createdAt"`
	UpdatedAt            time.Time            `json:"updatedAt"`
}

// Reservation marks a gift as claimed by a guest. It expires so an abandoned
// claim eventually frees the gift.
type Reservation struct {
	GiftID    string    `json:"giftId"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ReservationTTL is how long a reservation holds before lapsing.
const ReservationTTL = 30 * 24 * time.Hour
