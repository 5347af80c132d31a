package parser

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/aluiziolira/go-scrape-goodreads/models"
)

// MaxRating is the top of the Goodreads star scale.
const MaxRating = 5.0

var (
	starsRe     = regexp.MustCompile(`([\d.]+)\s+stars?`)
	millionRe   = regexp.MustCompile(`(?i)([\d.]+)\s+million`)
	thousandRe  = regexp.MustCompile(`(?i)([\d.]+)\s+thousand`)
	compactRe   = regexp.MustCompile(`(?i)([\d.]+)\s*([km])\s+ratings?`)
	plainRe     = regexp.MustCompile(`([\d,]+)\s+ratings?`)
	ratingsRe   = regexp.MustCompile(`(?i)([\d][\d.,]*\s*[km]?)\s+ratings?\b`)
	shelvingsRe = regexp.MustCompile(`(?i)([\d][\d.,]*\s*[km]?)\s+shelvings?\b`)

	errOutOfRange = errors.New("rating outside [0, 5]")
)

// ParseRating converts an average rating string into a float on the star
// scale.
func ParseRating(input string) (float64, error) {
	s := strings.TrimSpace(input)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, parseErr(input, err)
	}
	if f < 0 || f > MaxRating {
		return 0, parseErr(input, errOutOfRange)
	}
	return f, nil
}

// ParseAriaLabel splits an AverageRating aria-label such as
// "4.21 stars, 2 million ratings" into a rating and a compact count.
// Parts that are absent come back as the sentinel.
func ParseAriaLabel(label string) (rating, count string) {
	rating, count = models.NotAvailable, models.NotAvailable
	if m := starsRe.FindStringSubmatch(label); m != nil {
		rating = m[1]
	}

	switch {
	case strings.Contains(strings.ToLower(label), "million"):
		if m := millionRe.FindStringSubmatch(label); m != nil {
			count = m[1] + "m"
		}
	case strings.Contains(strings.ToLower(label), "thousand"):
		if m := thousandRe.FindStringSubmatch(label); m != nil {
			count = m[1] + "k"
		}
	default:
		if m := compactRe.FindStringSubmatch(label); m != nil {
			count = m[1] + strings.ToLower(m[2])
		} else if m := plainRe.FindStringSubmatch(label); m != nil {
			count = m[1]
		}
	}
	return rating, count
}

// ParseStats reads the ratings and shelvings counts out of one free-text
// node ("2m ratings · 3.1m shelvings"). Each match is independent.
func ParseStats(text string) (ratings, shelvings string) {
	ratings, shelvings = models.NotAvailable, models.NotAvailable
	if m := ratingsRe.FindStringSubmatch(text); m != nil {
		ratings = compactDisplay(m[1])
	}
	if m := shelvingsRe.FindStringSubmatch(text); m != nil {
		shelvings = compactDisplay(m[1])
	}
	return ratings, shelvings
}

func compactDisplay(s string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", ""))
}
