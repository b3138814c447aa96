package assertion

import (
	"regexp"
	"strings"

	"github.com/cmdrvl/fingerprint/internal/view"
)

const (
	typeCurrency   = "currency"
	typeNumber     = "number"
	typePercentage = "percentage"
	typeDate       = "date"
	typeString     = "string"
)

var (
	emphasisStrip  = regexp.MustCompile(`\*\*|\*|__|_`)
	currencyRe     = regexp.MustCompile(`^[-+]?[$£€]\s?[\d,]+(\.\d+)?$`)
	percentageRe   = regexp.MustCompile(`^[-+]?[\d,]+(\.\d+)?\s?%$`)
	numberRe       = regexp.MustCompile(`^[-+]?[\d,]+(\.\d+)?$`)
	dateRe         = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$|^\d{1,2}/\d{1,2}/\d{2,4}$`)
)

func classifyCell(raw string) string {
	s := strings.TrimSpace(emphasisStrip.ReplaceAllString(raw, ""))
	switch {
	case currencyRe.MatchString(s):
		return typeCurrency
	case percentageRe.MatchString(s):
		return typePercentage
	case dateRe.MatchString(s):
		return typeDate
	case numberRe.MatchString(s):
		return typeNumber
	default:
		return typeString
	}
}

// inferColumnTypes classifies each column of t by strict majority (>50%)
// vote among its non-blank cells; ties or no majority default to string.
// Blank cells are excluded from the vote entirely.
func inferColumnTypes(t view.Table) []string {
	cols := len(t.Header)
	counts := make([]map[string]int, cols)
	totals := make([]int, cols)
	for i := range counts {
		counts[i] = make(map[string]int)
	}
	for _, row := range t.Rows {
		for c := 0; c < cols && c < len(row); c++ {
			if strings.TrimSpace(row[c]) == "" {
				continue
			}
			counts[c][classifyCell(row[c])]++
			totals[c]++
		}
	}
	out := make([]string, cols)
	for c := 0; c < cols; c++ {
		out[c] = typeString
		if totals[c] == 0 {
			continue
		}
		for typ, n := range counts[c] {
			if float64(n) > float64(totals[c])*0.5 {
				out[c] = typ
				break
			}
		}
	}
	return out
}

// typesCompatible reports whether inferred satisfies the wanted type,
// treating currency as a subtype of number in both directions.
func typesCompatible(inferred, want string) bool {
	if inferred == want {
		return true
	}
	if (inferred == typeCurrency && want == typeNumber) || (inferred == typeNumber && want == typeCurrency) {
		return true
	}
	return false
}
