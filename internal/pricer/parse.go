package pricer

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

var pricePattern = regexp.MustCompile(`[\d,]+(?:\.\d+)?`)

// ParsePrice extracts the first price-looking number from model output.
// Handles "$1,299.99", "Price: $450", and bare numbers.
func ParsePrice(text string) (float64, error) {
	match := pricePattern.FindString(text)
	if match == "" {
		return 0, eris.Errorf("pricer: no number in %q", text)
	}

	cleaned := strings.ReplaceAll(match, ",", "")
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, eris.Wrapf(err, "pricer: parse %q", match)
	}
	return v, nil
}
