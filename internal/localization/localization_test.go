package localization_test

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/giftwish/giftwish/internal/localization"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   language.Tag
	}{
		{"empty header falls back", "", localization.DefaultLocale},
		{"garbage falls back", ";;;", localization.DefaultLocale},
		{"exact match", "de", language.German},
		{"quality ordering respected", "fr;q=0.9, de;q=1.0", language.German},
		{"regional narrows to base", "de-AT", language.German},
		{"unsupported falls back", "zz", localization.DefaultLocale},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := localization.Resolve(tt.header)
			base, _ := got.Base()
			wantBase, _ := tt.want.Base()
			assert.Equal(t, wantBase, base)
		})
	}
}

func TestParseTextMap(t *testing.T) {
	tests := []struct {
		name    string
		raw     map[string]string
		want    localization.TextMap
		wantErr bool
	}{
		{"nil map passes through", nil, nil, false},
		{"keys are normalized", map[string]string{"EN_us": " Bike "}, localization.TextMap{"en-us": "Bike"}, false},
		{"plain language key", map[string]string{"de": "Fahrrad"}, localization.TextMap{"de": "Fahrrad"}, false},
		{"numeric key rejected", map[string]string{"123": "x"}, nil, true},
		{"overlong key rejected", map[string]string{"notalocale": "x"}, nil, true},
		{"blank value rejected", map[string]string{"en": "   "}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := localization.ParseTextMap(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTextMapResolveFallbackChain(t *testing.T) {
	m := localization.TextMap{"en": "Bike", "en-gb": "Bicycle", "de": "Fahrrad"}

	tests := []struct {
		name   string
		locale string
		want   string
	}{
		{"exact locale wins", "en-GB", "Bicycle"},
		{"regional falls back to base", "de-AT", "Fahrrad"},
		{"unknown falls back to english", "pl", "Bike"},
		{"empty locale falls back to english", "", "Bike"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Resolve(tt.locale))
		})
	}

	// Without an english entry any entry serves, picked deterministically.
	noEnglish := localization.TextMap{"uk": "Велосипед", "de": "Fahrrad"}
	assert.Equal(t, "Fahrrad", noEnglish.Resolve("pl"))

	assert.Empty(t, localization.TextMap{}.Resolve("en"))
	assert.Empty(t, localization.TextMap(nil).Resolve("en"))
}

func TestRequestLocale(t *testing.T) {
	tests := []struct {
		name           string
		xLocale        string
		acceptLanguage string
		want           string
	}{
		{"no headers", "", "", ""},
		{"accept-language first entry", "", "de-AT,de;q=0.9,en;q=0.8", "de-at"},
		{"quality suffix stripped", "", "fr;q=0.9", "fr"},
		{"x-locale wins over accept-language", "pl_PL", "de", "pl-pl"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			if tt.xLocale != "" {
				r.Header.Set("X-Locale", tt.xLocale)
			}
			if tt.acceptLanguage != "" {
				r.Header.Set("Accept-Language", tt.acceptLanguage)
			}
			assert.Equal(t, tt.want, localization.RequestLocale(r))
		})
	}
}
