package crawl

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	nonDigit       = regexp.MustCompile(`[^0-9]`)
	centsSuffix    = regexp.MustCompile(`[.,]\d{1,2}$`)
	decimalNumber  = regexp.MustCompile(`\d+(?:[.,]\d+)*`)
	integerNumber  = regexp.MustCompile(`\d+`)
	thousandsGroup = regexp.MustCompile(`[.,]\d{3}(?:[.,]|$)`)
	whitespaceRun  = regexp.MustCompile(`\s+`)
)

// parseAmount reads a currency amount such as "$ 2.500.000" or "2,500,000.00".
// It returns nil when the text carries no digits.
func parseAmount(text string) *float64 {
	match := decimalNumber.FindString(text)
	if match == "" {
		return nil
	}
	digits := nonDigit.ReplaceAllString(centsSuffix.ReplaceAllString(match, ""), "")
	v, err := strconv.ParseFloat(digits, 64)
	if err != nil {
		return nil
	}
	return &v
}

// parseDecimal reads the first number in text, such as "70,5 m²" or
// "1.200 m2". A separator followed by exactly three digits is a thousands
// separator.
func parseDecimal(text string) *float64 {
	match := decimalNumber.FindString(text)
	if match == "" {
		return nil
	}

	for thousandsGroup.MatchString(match) {
		loc := thousandsGroup.FindStringIndex(match)
		match = match[:loc[0]] + match[loc[0]+1:]
	}
	match = strings.ReplaceAll(match, ",", ".")
	if strings.Count(match, ".") > 1 {
		return nil
	}

	v, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return nil
	}
	return &v
}

// parseCount reads the first integer in text, such as "3 alcobas".
func parseCount(text string) *int {
	match := integerNumber.FindString(text)
	if match == "" {
		return nil
	}
	v, err := strconv.Atoi(match)
	if err != nil {
		return nil
	}
	return &v
}

func collapseSpace(text string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
}
