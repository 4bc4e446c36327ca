package actuarial

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// Rupiah magnitude suffixes: T (triliun), M (miliar), jt (juta).
var rupiahScales = []struct {
	min    float64
	suffix string
}{
	{1e12, "T"},
	{1e9, "M"},
	{1e6, "jt"},
}

// FormatRupiah renders v the way the dashboard shows money: one decimal with a
// magnitude suffix above one million, thousands separators below.
//
//	FormatRupiah(145.2e12) == "Rp 145.2T"
//	FormatRupiah(94_482_028) == "Rp 94.5jt"
//	FormatRupiah(12500) == "Rp 12,500"
func FormatRupiah(v float64) string {
	if !finite(v) {
		return "Rp " + nonFinite(v)
	}
	d := decimal.NewFromFloat(v)
	for _, s := range rupiahScales {
		if v >= s.min {
			return fmt.Sprintf("Rp %s%s", d.Div(decimal.NewFromFloat(s.min)).StringFixed(1), s.suffix)
		}
	}
	return "Rp " + groupThousands(d.Round(0).String())
}

// FormatPercent renders v with the given number of decimals and a % sign.
func FormatPercent(v float64, decimals int32) string {
	if !finite(v) {
		return nonFinite(v) + "%"
	}
	return decimal.NewFromFloat(v).StringFixed(decimals) + "%"
}

// nonFinite renders NaN and the infinities, which decimal cannot represent.
func nonFinite(v float64) string {
	switch {
	case math.IsNaN(v):
		return "n/a"
	case v > 0:
		return "+inf"
	default:
		return "-inf"
	}
}

func groupThousands(s string) string {
	sign := ""
	if len(s) > 0 && s[0] == '-' {
		sign, s = "-", s[1:]
	}
	if len(s) <= 3 {
		return sign + s
	}
	head := len(s) % 3
	if head == 0 {
		head = 3
	}
	out := s[:head]
	for i := head; i < len(s); i += 3 {
		out += "," + s[i:i+3]
	}
	return sign + out
}
