// Package vrm normalizes raw UK vehicle registration marks into canonical
// cache keys.
package vrm

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// InvalidKeyError is returned for input that cannot be a UK registration
// mark. It is raised before any cache or upstream access happens.
type InvalidKeyError struct {
	Raw string
}

func (e *InvalidKeyError) Error() string {
	return fmt.Sprintf("%q is not a recognized UK vehicle registration mark", e.Raw)
}

// Recognized plate syntaxes. The current format (two letters, two digits,
// three letters) is the primary one; prefix, suffix and dateless/NI marks
// are accepted as a documented allowance for older vehicles.
var platePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^[A-Z]{2}[0-9]{2}[A-Z]{3}$`), // current: AB12CDE
	regexp.MustCompile(`^[A-Z][0-9]{1,3}[A-Z]{3}$`),  // prefix: A123BCD
	regexp.MustCompile(`^[A-Z]{3}[0-9]{1,3}[A-Z]$`),  // suffix: ABC123D
	regexp.MustCompile(`^[A-Z]{1,3}[0-9]{1,4}$`),     // dateless and NI
	regexp.MustCompile(`^[0-9]{1,4}[A-Z]{1,3}$`),     // dateless, reversed
}

// Normalize canonicalizes a raw registration mark: whitespace is removed,
// letters are uppercased and the result is validated against the known UK
// plate syntaxes. Normalize is idempotent on its own output.
func Normalize(raw string) (string, error) {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToUpper(r)
	}, raw)

	for _, p := range platePatterns {
		if p.MatchString(cleaned) {
			return cleaned, nil
		}
	}

	return "", &InvalidKeyError{Raw: raw}
}
