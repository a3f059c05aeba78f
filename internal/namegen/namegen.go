// Package namegen produces the random fallback job name used by the
// manager's add operation when the caller supplies no name and the URL's
// path has no usable last segment.
package namegen

import (
	"strings"

	"github.com/teris-io/shortid"
)

const length = 7

const alnum = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Generate returns a 7-character alphanumeric string. shortid's default
// alphabet includes '-' and '_', which job names exclude, so we keep
// drawing ids and filtering down to alnum runes until we have enough.
func Generate() (string, error) {
	var b strings.Builder
	for b.Len() < length {
		id, err := shortid.Generate()
		if err != nil {
			return "", err
		}
		for _, r := range id {
			if strings.ContainsRune(alnum, r) {
				b.WriteRune(r)
				if b.Len() == length {
					break
				}
			}
		}
	}
	return b.String(), nil
}
