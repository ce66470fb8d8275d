package grid

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// displayPrinter renders numbers with locale-aware grouping separators.
var displayPrinter = message.NewPrinter(language.English)

// Display format tags carried by Style.NumberFormat. Anything else
// passes values through untouched.
const (
	FormatNumber  = "number"  // grouped, two decimal places
	FormatInteger = "integer" // grouped, rounded to a whole number
	FormatPercent = "percent" // scaled by 100, one decimal place
)

// formatDisplay applies the style's numeric display format to a raw
// value. Non-numeric values and unknown format tags pass through
// unchanged; formatting is presentation only and never feeds back into
// evaluation.
func formatDisplay(raw string, style *Style) string {
	if style == nil || style.NumberFormat == "" {
		return raw
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return raw
	}

	switch style.NumberFormat {
	case FormatNumber:
		return displayPrinter.Sprintf("%.2f", f)
	case FormatInteger:
		return displayPrinter.Sprintf("%d", int64(math.Round(f)))
	case FormatPercent:
		return displayPrinter.Sprintf("%.1f%%", f*100)
	default:
		return raw
	}
}
