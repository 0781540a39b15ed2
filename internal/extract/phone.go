// Package extract turns the rendered text of a list row into contact fields.
package extract

import (
	"regexp"
	"strings"
	"unicode"
)

// MinPhoneDigits is the digit floor below which a numeric match is treated as
// a count, a year or some other fragment rather than a phone number.
const MinPhoneDigits = 10

const waBaseURL = "https://wa.me/"

var (
	// International groupings: optional "+", then 1-4 digit groups joined by
	// spaces, hyphens, dots or parentheses. Newlines never join groups.
	phonePattern = regexp.MustCompile(`\+?\(?\d{1,4}\)?(?:[ \t.\-]*\(?\d{1,4}\)?){1,7}`)

	// A line consisting of nothing but phone punctuation and digits.
	purePhonePattern = regexp.MustCompile(`^\+?[\d\s\-.()]{7,}$`)
)

// ExtractPhones returns every phone-like substring of text with at least
// MinPhoneDigits digits, in order of appearance.
func ExtractPhones(text string) []string {
	if text == "" {
		return nil
	}

	var phones []string
	for _, match := range phonePattern.FindAllString(text, -1) {
		match = strings.TrimSpace(match)
		if CountDigits(match) >= MinPhoneDigits {
			phones = append(phones, match)
		}
	}
	return phones
}

// NormalizePhone strips every character except digits and a single leading "+".
func NormalizePhone(phone string) string {
	var b strings.Builder
	if strings.HasPrefix(strings.TrimSpace(phone), "+") {
		b.WriteByte('+')
	}
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 1 && strings.HasPrefix(b.String(), "+") {
		return ""
	}
	return b.String()
}

// GenerateWaLink builds a https://wa.me/<digits> direct-message link.
func GenerateWaLink(phone string) string {
	digits := strings.TrimPrefix(NormalizePhone(phone), "+")
	if digits == "" {
		return ""
	}
	return waBaseURL + digits
}

// CountDigits counts ASCII digits in s.
func CountDigits(s string) int {
	n := 0
	for _, r := range s {
		if r < unicode.MaxASCII && unicode.IsDigit(r) {
			n++
		}
	}
	return n
}

// IsPurePhone reports whether line is nothing but a phone number.
func IsPurePhone(line string) bool {
	line = strings.TrimSpace(line)
	return purePhonePattern.MatchString(line) && CountDigits(line) >= 7
}
