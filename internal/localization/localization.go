package localization

import (
	"net/http"
	"regexp"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/text/language"
)

// DefaultLocale is used when a request carries no usable Accept-Language.
var DefaultLocale = language.AmericanEnglish

// supported is the matcher over locales the service has content for.
var supported = language.NewMatcher([]language.Tag{
	language.AmericanEnglish,
	language.BritishEnglish,
	language.German,
	language.French,
	language.Spanish,
	language.Polish,
	language.Ukrainian,
})

// Resolve picks the best supported locale for an Accept-Language header
// value. Malformed headers fall back to DefaultLocale.
func Resolve(acceptLanguage string) language.Tag {
	if acceptLanguage == "" {
		return DefaultLocale
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return DefaultLocale
	}
	tag, _, confidence := supported.Match(tags...)
	if confidence == language.No {
		return DefaultLocale
	}
	return tag
}

// FromRequest resolves the locale of an HTTP request.
func FromRequest(r *http.Request) language.Tag {
	return Resolve(r.Header.Get("Accept-Language"))
}

// FallbackLocale is tried when a text map has no entry for the requested
// locale or its base language.
const FallbackLocale = "en"

// localeKeyPattern accepts BCP 47 style keys such as "en", "en-us" or
// "zh-hant-tw", lowercased.
var localeKeyPattern = regexp.MustCompile(`^[a-z]{2,3}(-[a-z0-9]{2,8})*$`)

// TextMap holds one piece of text keyed by normalized locale.
type TextMap map[string]string

// NormalizeLocale lowercases a locale and rewrites underscores to hyphens,
// so "en_US" and "en-us" address the same entry.
func NormalizeLocale(locale string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(locale)), "_", "-")
}

// ParseTextMap validates a raw locale-to-text map and returns it with
// normalized keys. Keys must look like locales, values must be non-empty
// after trimming.
func ParseTextMap(raw map[string]string) (TextMap, error) {
	if raw == nil {
		return nil, nil
	}

	parsed := make(TextMap, len(raw))
	for rawLocale, rawText := range raw {
		locale := NormalizeLocale(rawLocale)
		if !localeKeyPattern.MatchString(locale) {
			return nil, errors.Errorf("invalid locale key %q", rawLocale)
		}
		text := strings.TrimSpace(rawText)
		if text == "" {
			return nil, errors.Errorf("empty text for locale %q", rawLocale)
		}
		parsed[locale] = text
	}
	return parsed, nil
}

// Resolve picks the text for locale, falling back from the exact locale to
// its base language, then FallbackLocale, then any entry. An empty map
// resolves to "".
func (m TextMap) Resolve(locale string) string {
	if len(m) == 0 {
		return ""
	}

	if normalized := NormalizeLocale(locale); normalized != "" {
		if text, ok := m[normalized]; ok {
			return text
		}
		base, _, _ := strings.Cut(normalized, "-")
		if text, ok := m[base]; ok {
			return text
		}
	}
	if text, ok := m[FallbackLocale]; ok {
		return text
	}

	// Last resort: the entry with the smallest key, so the choice is stable.
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return m[keys[0]]
}

// RequestLocale extracts the caller's preferred locale from an HTTP request.
// An explicit X-Locale header wins over Accept-Language; only the first
// listed language is considered. Returns "" when neither header is usable.
func RequestLocale(r *http.Request) string {
	for _, candidate := range []string{r.Header.Get("X-Locale"), r.Header.Get("Accept-Language")} {
		first, _, _ := strings.Cut(candidate, ",")
		first, _, _ = strings.Cut(first, ";")
		if locale := NormalizeLocale(first); locale != "" {
			return locale
		}
	}
	return ""
}
