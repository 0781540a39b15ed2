package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-contact-scraper/pkg/models"
)

func TestClassifier_Filters(t *testing.T) {
	c := NewClassifier(DefaultRules())

	tests := []struct {
		name     string
		text     string
		children int
		want     bool
	}{
		{"layout wrapper", "Jane Doe\nHey there", 7, false},
		{"too short", "ab", 0, false},
		{"too long", strings.Repeat("word ", 80) + "\nsecond", 1, false},
		{"noise view all", "View all (12 more)\nmembers", 1, false},
		{"noise group info", "Group info\n+1 415-555-0100", 1, false},
		{"noise created group", "Jane created group \"Family\"\nToday", 1, false},
		{"single line without phone", "Jane Doe", 0, false},
		{"single line with phone", "+1 415-555-0100", 0, true},
		{"two lines", "Jane Doe\nAvailable", 2, true},
		{"six children allowed", "Jane Doe\nAvailable", 6, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := c.Classify(tt.text, tt.children)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestClassifier_PhoneLineWithGroupAdmin(t *testing.T) {
	c := NewClassifier(DefaultRules())

	cand, ok := c.Classify("+1 415-555-0100\nGroup Admin", 0)
	require.True(t, ok)
	assert.Equal(t, []string{"+1 415-555-0100"}, cand.Phones)
	assert.Equal(t, models.Admin, cand.Role)
	assert.Empty(t, cand.Name)
	assert.Empty(t, cand.About)
}

func TestClassifier_Fields(t *testing.T) {
	c := NewClassifier(DefaultRules())

	tests := []struct {
		name      string
		text      string
		wantName  string
		wantAbout string
		wantRole  models.Role
	}{
		{"name and phone", "Jane Doe\n+44 20 7946 0958", "Jane Doe", "", models.Member},
		{"unsaved contact marker", "~ Bob   Smith\nHey there! I am using WhatsApp.", "Bob Smith", "Hey there! I am using WhatsApp.", models.Member},
		{"placeholder first line", "Loading About…\nAlice", "Alice", "", models.Member},
		{"placeholder about", "Alice\nLoading About...", "Alice", "", models.Member},
		{"phone inline with name", "~ Raj +91 98765 43210\nBusy", "Raj", "Busy", models.Member},
		{"bare admin label", "Jane D.\n+44 20 7946 0958\nAdmin", "Jane D.", "", models.Admin},
		{"about after phone line", "Carol\n+1 415-555-0100\nAt the gym", "Carol", "At the gym", models.Member},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cand, ok := c.Classify(tt.text, 1)
			require.True(t, ok)
			assert.Equal(t, tt.wantName, cand.Name)
			assert.Equal(t, tt.wantAbout, cand.About)
			assert.Equal(t, tt.wantRole, cand.Role)
		})
	}
}

func TestClassifier_CustomNoise(t *testing.T) {
	rules := DefaultRules()
	rules.NoisePhrases = []string{"Sponsored"}
	c := NewClassifier(rules)

	_, ok := c.Classify("Sponsored\n+1 415-555-0100", 0)
	assert.False(t, ok)

	_, ok = c.Classify("Group info\n+1 415-555-0100", 0)
	assert.True(t, ok)
}

func TestSplitLines(t *testing.T) {
	assert.Equal(t, []string{"a", "b c"}, SplitLines("  a\n\n   \n b c \n"))
	assert.Nil(t, SplitLines("   "))
}
