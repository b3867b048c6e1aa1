package currency

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	xcurrency "golang.org/x/text/currency"
)

var (
	// ErrUnknownCurrency is returned for codes absent from the rate table.
	ErrUnknownCurrency = errors.New("unknown currency")
	// ErrNoRates is returned before the first successful rate fetch.
	ErrNoRates = errors.New("no exchange rates loaded")
)

// Service converts amounts between currencies through the base currency and
// rounds results to each target currency's standard fraction digits.
type Service struct {
	provider RateProvider
	logger   zerolog.Logger

	mu    sync.RWMutex
	rates Rates
}

// NewService creates a Service with no rates loaded. Call Refresh before
// converting, or run KeepFresh in the background.
func NewService(provider RateProvider, logger zerolog.Logger) (*Service, error) {
	if provider == nil {
		return nil, errors.New("[NewService] rate provider is required")
	}
	return &Service{provider: provider, logger: logger}, nil
}

// Refresh replaces the rate table with a fresh fetch.
func (s *Service) Refresh(ctx context.Context) error {
	rates, err := s.provider.Fetch(ctx)
	if err != nil {
		return errors.Wrap(err, "[Refresh] provider.Fetch")
	}

	s.mu.Lock()
	s.rates = rates
	s.mu.Unlock()

	s.logger.Info().Str("base", rates.Base).Int("currencies", len(rates.Values)).Msg("exchange rates refreshed")
	return nil
}

// KeepFresh refreshes the table every interval until ctx is done. A failed
// refresh keeps the previous table and is only logged.
func (s *Service) KeepFresh(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Refresh(ctx); err != nil {
				s.logger.Warn().Err(err).Msg("exchange rate refresh failed, keeping stale table")
			}
		}
	}
}

// Convert converts amount from one ISO 4217 code to another, going through
// the base currency, and rounds to the target's fraction digits.
func (s *Service) Convert(amount float64, from, to string) (float64, error) {
	if from == to {
		return amount, nil
	}

	s.mu.RLock()
	rates := s.rates
	s.mu.RUnlock()

	if len(rates.Values) == 0 {
		return 0, ErrNoRates
	}

	fromRate, ok := rates.Values[from]
	if !ok || fromRate == 0 {
		return 0, errors.Wrapf(ErrUnknownCurrency, "%q", from)
	}
	toRate, ok := rates.Values[to]
	if !ok {
		return 0, errors.Wrapf(ErrUnknownCurrency, "%q", to)
	}

	converted := amount / fromRate * toRate
	return roundToCurrency(converted, to), nil
}

// Supported reports whether code is present in the current rate table.
func (s *Service) Supported(code string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.rates.Values[code]
	return ok
}

// roundToCurrency rounds amount to the standard minor unit scale of code,
// falling back to two digits for codes the currency registry does not know.
func roundToCurrency(amount float64, code string) float64 {
	digits := 2
	if unit, err := xcurrency.ParseISO(code); err == nil {
		scale, _ := xcurrency.Standard.Rounding(unit)
		digits = scale
	}
	factor := math.Pow10(digits)
	return math.Round(amount*factor) / factor
}
