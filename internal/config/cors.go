package config

import "strings"

// AllowedOrigins is the set of origins allowed to call the API from a
// browser.
type AllowedOrigins map[string]struct{}

func (a AllowedOrigins) IsAllowedOrigin(origin string) bool {
	_, ok := a[origin]
	return ok
}

func (a AllowedOrigins) String() string {
	origins := make([]string, 0, len(a))
	for origin := range a {
		origins = append(origins, origin)
	}
	return strings.Join(origins, ", ")
}
