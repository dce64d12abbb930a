package report

import (
	"fmt"
	"math"
	"strings"
)

// FormatInt formats an integer with comma separators.
func FormatInt(n int) string {
	neg := n < 0
	if neg {
		n = -n
	}
	s := fmt.Sprintf("%d", n)
	if len(s) > 3 {
		var b strings.Builder
		start := len(s) % 3
		if start > 0 {
			b.WriteString(s[:start])
		}
		for i := start; i < len(s); i += 3 {
			if b.Len() > 0 {
				b.WriteByte(',')
			}
			b.WriteString(s[i : i+3])
		}
		s = b.String()
	}
	if neg {
		return "-" + s
	}
	return s
}

// FormatMoney formats a dollar value as $X,XXX.XX, or "-" for NaN.
func FormatMoney(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	whole := int(v)
	cents := int(math.Round((v - float64(whole)) * 100))
	if cents == 100 {
		whole++
		cents = 0
	}
	return fmt.Sprintf("%s$%s.%02d", sign, FormatInt(whole), cents)
}

// FormatPct formats a ratio as a signed percentage, dropping the decimal for
// magnitudes of 100% and above to keep width compact.
func FormatPct(r float64) string {
	if math.IsNaN(r) {
		return "-"
	}
	pct := r * 100
	if math.Abs(pct) >= 100 {
		return fmt.Sprintf("%+.0f%%", pct)
	}
	return fmt.Sprintf("%+.1f%%", pct)
}
