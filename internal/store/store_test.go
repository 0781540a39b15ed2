package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-contact-scraper/internal/extract"
	"go-contact-scraper/pkg/models"
)

var classifier = extract.NewClassifier(extract.DefaultRules())

func observe(t *testing.T, s *Store, texts ...string) {
	t.Helper()
	for _, text := range texts {
		cand, ok := classifier.Classify(text, 1)
		require.True(t, ok, "text %q should classify", text)
		s.Upsert(cand)
	}
}

var policies = []MergePolicy{MergeIncremental, MergeReprocess}

func TestStore_LesserSightingKeepsFirstName(t *testing.T) {
	for _, policy := range policies {
		t.Run(policy.String(), func(t *testing.T) {
			s := New(Options{Keys: KeyByPhone, Merge: policy})
			observe(t, s,
				"Jane Doe\n+44 20 7946 0958",
				"Jane D.\n+44 20 7946 0958\nAdmin",
			)

			snap := s.Snapshot()
			require.Len(t, snap, 1)
			assert.Equal(t, "+442079460958", snap[0].NormalizedPhone)
			assert.Equal(t, models.Admin, snap[0].Role)
			assert.Equal(t, "Jane Doe", snap[0].Name)
			assert.Equal(t, "https://wa.me/442079460958", snap[0].DMLink)
		})
	}
}

func TestStore_RoleNeverDowngrades(t *testing.T) {
	for _, policy := range policies {
		t.Run(policy.String(), func(t *testing.T) {
			s := New(Options{Merge: policy})
			observe(t, s,
				"Sam\n+1 415-555-0100\nGroup Admin",
				"Sam\n+1 415-555-0100",
				"Sam\n+1 415-555-0100\nBusy",
			)

			snap := s.Snapshot()
			require.Len(t, snap, 1)
			assert.Equal(t, models.Admin, snap[0].Role)
		})
	}
}

func TestStore_AboutNeverRegresses(t *testing.T) {
	for _, policy := range policies {
		t.Run(policy.String(), func(t *testing.T) {
			s := New(Options{Merge: policy})
			observe(t, s,
				"Sam\n+1 415-555-0100\nAt the gym",
				"Sam\n+1 415-555-0100",
				"Sam\n+1 415-555-0100\nLoading About…",
			)

			snap := s.Snapshot()
			require.Len(t, snap, 1)
			assert.Equal(t, "At the gym", snap[0].About)
		})
	}
}

func TestStore_AboutFillsPlaceholder(t *testing.T) {
	s := New(Options{})
	phone := []string{"+1 415-555-0100"}
	s.Upsert(extract.Candidate{
		Observation: models.Observation{Text: "Sam\n+1 415-555-0100\nLoading…"},
		Phones:      phone,
		Name:        "Sam",
		About:       "Loading…",
	})
	s.Upsert(extract.Candidate{
		Observation: models.Observation{Text: "Sam\n+1 415-555-0100\nAvailable"},
		Phones:      phone,
		Name:        "Sam",
		About:       "Available",
	})

	snap := s.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "Available", snap[0].About)
}

func TestStore_DedupByNormalizedPhone(t *testing.T) {
	for _, policy := range policies {
		t.Run(policy.String(), func(t *testing.T) {
			s := New(Options{Merge: policy})
			observe(t, s,
				"Ann\n+1 415-555-0100",
				"Ann\n+1 (415) 555.0100",
				"Bob\n+1 415-555-0101",
			)

			snap := s.Snapshot()
			require.Len(t, snap, 2)
			assert.Equal(t, "+14155550100", snap[0].NormalizedPhone)
			assert.Equal(t, "+14155550101", snap[1].NormalizedPhone)
			assert.Equal(t, "Bob", snap[1].Name)
		})
	}
}

func TestStore_MultiplePhonesInOneBlock(t *testing.T) {
	s := New(Options{})
	observe(t, s, "Team line\n+1 415-555-0100 / +44 20 7946 0958")

	snap := s.Snapshot()
	require.Len(t, snap, 2)
	for _, rec := range snap {
		assert.Equal(t, "Team line", rec.Name)
	}
}

func TestStore_KeyByText(t *testing.T) {
	s := New(Options{Keys: KeyByText})
	observe(t, s,
		"Jane Doe\n+44 20 7946 0958",
		"Jane Doe\n+44 20 7946 0958",
		"Jane D.\n+44 20 7946 0958\nAdmin",
	)

	snap := s.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "Jane Doe\n+44 20 7946 0958", snap[0].Key)
	assert.Equal(t, "+442079460958", snap[0].NormalizedPhone)
}

func TestStore_ReprocessFoldsTextOnlySightings(t *testing.T) {
	texts := []string{
		"Jane Doe\nAt work",
		"Jane Doe\n+44 20 7946 0958",
	}

	incremental := New(Options{Merge: MergeIncremental})
	observe(t, incremental, texts...)
	assert.Equal(t, 2, incremental.Len())

	reprocess := New(Options{Merge: MergeReprocess})
	observe(t, reprocess, texts...)
	snap := reprocess.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "Jane Doe", snap[0].Name)
	assert.Equal(t, "At work", snap[0].About)
	assert.Equal(t, "+442079460958", snap[0].Key)
}

func TestStore_ReprocessVotesOnName(t *testing.T) {
	texts := []string{
		"J.\n+44 20 7946 0958",
		"Jane Doe\n+44 20 7946 0958",
		"Jane Doe\n+44 20 7946 0958",
	}

	incremental := New(Options{Merge: MergeIncremental})
	observe(t, incremental, texts...)
	assert.Equal(t, "J.", incremental.Snapshot()[0].Name)

	reprocess := New(Options{Merge: MergeReprocess})
	observe(t, reprocess, texts...)
	assert.Equal(t, "Jane Doe", reprocess.Snapshot()[0].Name)
}

func TestStore_Changes(t *testing.T) {
	for _, policy := range policies {
		t.Run(policy.String(), func(t *testing.T) {
			s := New(Options{Merge: policy})

			observe(t, s, "Jane Doe\n+44 20 7946 0958")
			changed, removed := s.Changes()
			assert.Len(t, changed, 1)
			assert.Empty(t, removed)
			changed, _ = s.Changes()
			assert.Empty(t, changed)

			observe(t, s, "Jane Doe\n+44 20 7946 0958")
			changed, _ = s.Changes()
			assert.Empty(t, changed)

			observe(t, s, "Jane D.\n+44 20 7946 0958\nAdmin")
			changed, removed = s.Changes()
			assert.Empty(t, removed)
			require.Len(t, changed, 1)
			assert.Equal(t, models.Admin, changed[0].Role)
		})
	}
}

func TestStore_Clear(t *testing.T) {
	s := New(Options{Merge: MergeReprocess})
	observe(t, s, "Jane Doe\n+44 20 7946 0958")
	require.Equal(t, 1, s.Len())

	s.Clear()
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.Snapshot())
	changed, removed := s.Changes()
	assert.Empty(t, changed)
	assert.Empty(t, removed)
}

func TestStore_ChangesReportFoldedRecords(t *testing.T) {
	s := New(Options{Merge: MergeReprocess})

	observe(t, s, "Jane Doe\nAt work")
	changed, removed := s.Changes()
	require.Len(t, changed, 1)
	assert.Equal(t, "Jane Doe\nAt work", changed[0].Key)
	assert.Empty(t, removed)

	observe(t, s, "Jane Doe\n+44 20 7946 0958")
	changed, removed = s.Changes()
	require.Len(t, changed, 1)
	assert.Equal(t, "+442079460958", changed[0].Key)
	assert.Equal(t, "At work", changed[0].About)
	assert.Equal(t, []string{"Jane Doe\nAt work"}, removed)

	_, removed = s.Changes()
	assert.Empty(t, removed, "a removal is reported once")
}

func TestParseOptions(t *testing.T) {
	k, err := ParseKeyStrategy("TEXT")
	require.NoError(t, err)
	assert.Equal(t, KeyByText, k)

	_, err = ParseKeyStrategy("email")
	assert.Error(t, err)

	m, err := ParseMergePolicy("reprocess")
	require.NoError(t, err)
	assert.Equal(t, MergeReprocess, m)

	_, err = ParseMergePolicy("sometimes")
	assert.Error(t, err)
}
