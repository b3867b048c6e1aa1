package currency

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"
)

// Rates maps ISO 4217 codes to their value in units of the base currency.
type Rates struct {
	Base      string
	Values    map[string]float64
	FetchedAt time.Time
}

// RateProvider fetches the current exchange rate table.
type RateProvider interface {
	Fetch(ctx context.Context) (Rates, error)
}

// HTTPProvider pulls rates from an exchange rate HTTP API that answers
// GET <endpoint>?base=<code> with {"base": "...", "rates": {"EUR": 0.92, ...}}.
type HTTPProvider struct {
	endpoint string
	base     string
	apiKey   string
	client   *http.Client
}

// NewHTTPProvider creates a provider for endpoint, quoting against base.
func NewHTTPProvider(endpoint, base, apiKey string, client *http.Client) (*HTTPProvider, error) {
	if endpoint == "" || base == "" {
		return nil, errors.New("[NewHTTPProvider] endpoint and base currency are required")
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPProvider{endpoint: endpoint, base: base, apiKey: apiKey, client: client}, nil
}

type ratesResponse struct {
	Base  string             `json:"base"`
	Rates map[string]float64 `json:"rates"`
}

func (p *HTTPProvider) Fetch(ctx context.Context) (Rates, error) {
	query := url.Values{"base": {p.base}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s?%s", p.endpoint, query.Encode()), nil)
	if err != nil {
		return Rates{}, errors.Wrap(err, "[Fetch] build request")
	}
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return Rates{}, errors.Wrap(err, "[Fetch] get rates")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Rates{}, errors.Errorf("[Fetch] rate API returned %d: %s", resp.StatusCode, string(detail))
	}

	var parsed ratesResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Rates{}, errors.Wrap(err, "[Fetch] decode response")
	}
	if len(parsed.Rates) == 0 {
		return Rates{}, errors.New("[Fetch] rate API returned no rates")
	}

	base := parsed.Base
	if base == "" {
		base = p.base
	}
	// The base always quotes 1 against itself.
	parsed.Rates[base] = 1

	return Rates{Base: base, Values: parsed.Rates, FetchedAt: time.Now()}, nil
}
