package extract

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	addressSuffixPattern = regexp.MustCompile(`(?i)\s-\s(?:até|de|lado).*`)
	leadingNumberPattern = regexp.MustCompile(`^(\d+)\s+(.*)$`)
)

// CleanStreet drops free-text suffixes such as " - até a esquina".
func CleanStreet(street string) string {
	return strings.TrimSpace(addressSuffixPattern.ReplaceAllString(street, ""))
}

// SplitNumber separates a leading house number from the street.
func SplitNumber(street string) (rest, number string, ok bool) {
	m := leadingNumberPattern.FindStringSubmatch(strings.TrimSpace(street))
	if m == nil {
		return street, "", false
	}
	return m[2], m[1], true
}

// FullAddress is the one-line address quoted in customer messages.
func FullAddress(street, number, complement, neighborhood, city, postcode string) string {
	return fmt.Sprintf("%s, %s / %s, %s - %s | Cep: %s", street, number, complement, neighborhood, city, postcode)
}
