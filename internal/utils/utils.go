// Package utils holds small generic helpers shared across packages.
package utils

// Ptr returns a pointer to v. Handy for building partial-update inputs
// whose optional fields are pointers.
func Ptr[T any](v T) *T {
	return &v
}
