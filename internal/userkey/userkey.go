// Package userkey converts between a user's email and the storage key the
// profile is filed under.
package userkey

import "strings"

var (
	encoder = strings.NewReplacer(".", ",", "@", "_at_")
	decoder = strings.NewReplacer(",", ".", "_at_", "@")
)

// Encode replaces every "." with "," and every "@" with "_at_".
func Encode(email string) string {
	return encoder.Replace(email)
}

// Decode is the inverse of Encode. It round-trips any email that does not
// already contain "," or "_at_".
func Decode(key string) string {
	return decoder.Replace(key)
}
