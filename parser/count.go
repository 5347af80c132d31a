package parser

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/aluiziolira/go-scrape-goodreads/models"
)

const (
	million  = 1_000_000
	thousand = 1_000
)

var errNegative = errors.New("negative count")

// NormalizeCount converts a compact rating count ("1.5m", "234k", "1,234")
// into an integer. The sentinel and the empty string map to zero.
func NormalizeCount(input string) (int64, error) {
	s := strings.TrimSpace(input)
	if s == "" || s == models.NotAvailable {
		return 0, nil
	}

	lower := strings.ToLower(s)
	switch {
	case strings.HasSuffix(lower, "m"):
		return scaled(input, strings.TrimSuffix(lower, "m"), million)
	case strings.HasSuffix(lower, "k"):
		return scaled(input, strings.TrimSuffix(lower, "k"), thousand)
	}

	digits := strings.NewReplacer(",", "", "_", "", " ", "").Replace(s)
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, parseErr(input, err)
	}
	if n < 0 {
		return 0, parseErr(input, errNegative)
	}
	return n, nil
}

// FormatCount renders n in the compact form used on listing pages. The
// output is quantized: one decimal in millions, none in thousands.
func FormatCount(n int64) string {
	switch {
	case n >= million:
		return strconv.FormatFloat(float64(n)/million, 'f', 1, 64) + "m"
	case n >= thousand:
		return strconv.FormatFloat(float64(n)/thousand, 'f', 0, 64) + "k"
	default:
		return strconv.FormatInt(n, 10)
	}
}

// CountQuantum is the resolution FormatCount keeps for n.
func CountQuantum(n int64) int64 {
	switch {
	case n >= million:
		return million / 10
	case n >= thousand:
		return thousand
	default:
		return 1
	}
}

// scaled multiplies a decimal string by scale and truncates. Plain decimals
// are computed digit by digit so "2.3m" is 2300000 rather than a float
// artefact one below it.
func scaled(input, num string, scale int64) (int64, error) {
	num = strings.TrimSpace(num)
	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, parseErr(input, err)
	}
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, parseErr(input, strconv.ErrRange)
	}
	if f < 0 {
		return 0, parseErr(input, errNegative)
	}

	whole, frac, hasDot := strings.Cut(num, ".")
	if !isDigits(whole) || (hasDot && !isDigits(frac)) || (whole == "" && frac == "") {
		v := f * float64(scale)
		if v >= math.MaxInt64 {
			return 0, parseErr(input, strconv.ErrRange)
		}
		return int64(v), nil
	}

	var n int64
	if whole != "" {
		w, err := strconv.ParseInt(whole, 10, 64)
		if err != nil {
			return 0, parseErr(input, err)
		}
		if w > math.MaxInt64/scale {
			return 0, parseErr(input, strconv.ErrRange)
		}
		n = w * scale
	}

	unit := scale / 10
	for _, r := range frac {
		if unit == 0 {
			break
		}
		d := int64(r-'0') * unit
		if n > math.MaxInt64-d {
			return 0, parseErr(input, strconv.ErrRange)
		}
		n += d
		unit /= 10
	}
	return n, nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
