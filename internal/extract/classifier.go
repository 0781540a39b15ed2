package extract

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"go-contact-scraper/pkg/models"
)

// Default classification bounds.
const (
	DefaultMaxChildren = 6
	DefaultMinLength   = 3
	DefaultMaxLength   = 300
)

// DefaultNoisePhrases are list chrome strings that never belong to a contact row.
var DefaultNoisePhrases = []string{"View all", "Group info", "created group"}

var (
	loadingPlaceholder = regexp.MustCompile(`(?i)loading about(?:…|\.\.\.)?`)

	roleLabels = map[string]bool{
		"admin":       true,
		"group admin": true,
	}
)

// Rules bound which nodes count as candidate blocks.
type Rules struct {
	MaxChildren  int
	MinLength    int
	MaxLength    int
	NoisePhrases []string
}

func DefaultRules() Rules {
	return Rules{
		MaxChildren:  DefaultMaxChildren,
		MinLength:    DefaultMinLength,
		MaxLength:    DefaultMaxLength,
		NoisePhrases: append([]string(nil), DefaultNoisePhrases...),
	}
}

// Candidate is the structured guess for one qualifying block.
type Candidate struct {
	models.Observation
	Phones []string
	Name   string
	About  string
	Role   models.Role
}

type Classifier struct {
	rules Rules
}

func NewClassifier(rules Rules) *Classifier {
	return &Classifier{rules: rules}
}

// Classify decides whether a node with the given rendered text and direct child
// count is contact-like and, if so, splits it into fields.
func (c *Classifier) Classify(text string, children int) (Candidate, bool) {
	if children > c.rules.MaxChildren {
		return Candidate{}, false
	}

	text = strings.TrimSpace(text)
	n := utf8.RuneCountInString(text)
	if n < c.rules.MinLength || n > c.rules.MaxLength {
		return Candidate{}, false
	}
	for _, phrase := range c.rules.NoisePhrases {
		if phrase != "" && strings.Contains(text, phrase) {
			return Candidate{}, false
		}
	}

	lines := SplitLines(text)
	phones := ExtractPhones(text)
	if len(phones) == 0 && len(lines) < 2 {
		return Candidate{}, false
	}

	cand := Candidate{
		Observation: models.Observation{Text: text, Lines: lines},
		Phones:      phones,
		Role:        ClassifyRole(text),
	}
	cand.Name, cand.About = nameAndAbout(lines)
	return cand, true
}

// ClassifyRole reports admin when the text mentions "admin" anywhere.
func ClassifyRole(text string) models.Role {
	if strings.Contains(strings.ToLower(text), "admin") {
		return models.Admin
	}
	return models.Member
}

// SplitLines returns the trimmed, non-blank lines of text.
func SplitLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// CleanLine strips phone numbers, the "~" unsaved-contact marker and loading
// placeholders from a line and collapses its whitespace.
func CleanLine(line string) string {
	for _, phone := range ExtractPhones(line) {
		line = strings.Replace(line, phone, "", 1)
	}
	line = strings.TrimSpace(line)
	line = strings.TrimPrefix(line, "~")
	line = loadingPlaceholder.ReplaceAllString(line, "")
	return strings.Join(strings.Fields(line), " ")
}

// IsPlaceholder reports whether s is empty or UI loading text.
func IsPlaceholder(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || strings.Contains(strings.ToLower(s), "loading")
}

func nameAndAbout(lines []string) (name, about string) {
	nameAt := -1
	for i, line := range lines {
		cleaned := CleanLine(line)
		if cleaned == "" || IsPurePhone(cleaned) || isRoleLabel(cleaned) {
			continue
		}
		name, nameAt = cleaned, i
		break
	}
	if nameAt < 0 {
		return "", ""
	}

	for _, line := range lines[nameAt+1:] {
		cleaned := CleanLine(line)
		if IsPlaceholder(cleaned) || IsPurePhone(cleaned) || isRoleLabel(cleaned) {
			continue
		}
		return name, cleaned
	}
	return name, ""
}

func isRoleLabel(s string) bool {
	return roleLabels[strings.ToLower(s)]
}
