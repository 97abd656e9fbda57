package domain

import "strings"

const (
	seiMaxDigits  = 21
	simpMaxDigits = 13
)

type maskGroup struct {
	sep   string
	width int
}

// NN.NN.NNNN.NNNNNNN/NNNN-NN
var seiMask = []maskGroup{{"", 2}, {".", 2}, {".", 4}, {".", 7}, {"/", 4}, {"-", 2}}

// NNNNNN-NNN/NNNN
var simpMask = []maskGroup{{"", 6}, {"-", 3}, {"/", 4}}

// FormatSEI groups the digits of a primary official number. Partial input
// yields a partial mask; anything beyond 21 digits is dropped.
func FormatSEI(value string) string {
	return applyMask(digitsOnly(value, seiMaxDigits), seiMask)
}

// FormatSIMP groups the digits of a secondary official number.
func FormatSIMP(value string) string {
	return applyMask(digitsOnly(value, simpMaxDigits), simpMask)
}

func digitsOnly(value string, limit int) string {
	var b strings.Builder
	for _, r := range value {
		if r < '0' || r > '9' {
			continue
		}
		if b.Len() == limit {
			break
		}
		b.WriteRune(r)
	}
	return b.String()
}

func applyMask(digits string, groups []maskGroup) string {
	var b strings.Builder
	for _, g := range groups {
		if digits == "" {
			break
		}
		n := g.width
		if n > len(digits) {
			n = len(digits)
		}
		b.WriteString(g.sep)
		b.WriteString(digits[:n])
		digits = digits[n:]
	}
	return b.String()
}
