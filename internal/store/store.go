// Package store keeps the deduplicated contact records of one scraping session.
//
// Two merge policies are supported. MergeIncremental folds each sighting into
// the existing record as it arrives: cheap, but the first non-empty name wins
// even if a better one shows up once more of the row has rendered.
// MergeReprocess keeps every distinct observation and rebuilds all records from
// scratch, voting on names and abouts and folding phone-less sightings into the
// phone-keyed record with the same name. It costs a full pass per rebuild.
package store

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"go-contact-scraper/internal/extract"
	"go-contact-scraper/pkg/models"
)

type KeyStrategy int

const (
	// KeyByPhone keys records by normalized phone and falls back to the raw
	// text for blocks without an extractable number.
	KeyByPhone KeyStrategy = iota
	// KeyByText keys every record by its raw text.
	KeyByText
)

func (k KeyStrategy) String() string {
	if k == KeyByText {
		return "text"
	}
	return "phone"
}

func ParseKeyStrategy(s string) (KeyStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "phone":
		return KeyByPhone, nil
	case "text":
		return KeyByText, nil
	default:
		return KeyByPhone, fmt.Errorf("unknown key strategy %q", s)
	}
}

type MergePolicy int

const (
	MergeIncremental MergePolicy = iota
	MergeReprocess
)

func (m MergePolicy) String() string {
	if m == MergeReprocess {
		return "reprocess"
	}
	return "incremental"
}

func ParseMergePolicy(s string) (MergePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "incremental":
		return MergeIncremental, nil
	case "reprocess":
		return MergeReprocess, nil
	default:
		return MergeIncremental, fmt.Errorf("unknown merge policy %q", s)
	}
}

type Options struct {
	Keys  KeyStrategy
	Merge MergePolicy
}

// Store is safe for concurrent use.
type Store struct {
	mu   sync.Mutex
	opts Options

	records map[string]*models.ContactRecord
	order   []string

	// reprocess state
	raw   []rawEntry
	byRaw map[string]int
	stale bool

	published map[string]models.ContactRecord
}

type rawEntry struct {
	cand  extract.Candidate
	count int
}

func New(opts Options) *Store {
	s := &Store{opts: opts}
	s.reset()
	return s
}

func (s *Store) reset() {
	s.records = make(map[string]*models.ContactRecord)
	s.order = nil
	s.raw = nil
	s.byRaw = make(map[string]int)
	s.stale = false
	s.published = make(map[string]models.ContactRecord)
}

// Options returns the policies the store was built with.
func (s *Store) Options() Options {
	return s.opts
}

// Upsert records one qualifying block.
func (s *Store) Upsert(c extract.Candidate) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.opts.Merge == MergeReprocess {
		if i, ok := s.byRaw[c.Text]; ok {
			s.raw[i].count++
		} else {
			s.byRaw[c.Text] = len(s.raw)
			s.raw = append(s.raw, rawEntry{cand: c, count: 1})
		}
		s.stale = true
		return
	}

	for _, seen := range sightings(c, s.opts.Keys) {
		if existing, ok := s.records[seen.Key]; ok {
			mergeInto(existing, seen)
			continue
		}
		rec := seen
		s.records[seen.Key] = &rec
		s.order = append(s.order, seen.Key)
	}
}

// Len returns the number of distinct records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refresh()
	return len(s.order)
}

// Snapshot returns a copy of every record in first-sighting order.
func (s *Store) Snapshot() []models.ContactRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refresh()

	out := make([]models.ContactRecord, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, *s.records[key])
	}
	return out
}

// Changes returns the records that were inserted or modified since the
// previous call, in first-sighting order, and the keys of previously returned
// records that no longer exist. Keys only disappear under MergeReprocess, when
// a rebuild folds one record into another.
func (s *Store) Changes() (changed []models.ContactRecord, removed []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refresh()

	for _, key := range s.order {
		rec := *s.records[key]
		if prev, ok := s.published[key]; ok && prev == rec {
			continue
		}
		s.published[key] = rec
		changed = append(changed, rec)
	}
	for key := range s.published {
		if _, ok := s.records[key]; !ok {
			delete(s.published, key)
			removed = append(removed, key)
		}
	}
	slices.Sort(removed)
	return changed, removed
}

// Clear drops every record and observation.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
}

func (s *Store) refresh() {
	if !s.stale {
		return
	}
	s.records, s.order = rebuild(s.raw, s.opts.Keys)
	s.stale = false
}

// sightings expands a candidate into one record per dedup key.
func sightings(c extract.Candidate, keys KeyStrategy) []models.ContactRecord {
	base := models.ContactRecord{
		Name:  c.Name,
		About: c.About,
		Role:  c.Role,
	}

	if keys == KeyByPhone && len(c.Phones) > 0 {
		out := make([]models.ContactRecord, 0, len(c.Phones))
		seen := make(map[string]bool, len(c.Phones))
		for _, phone := range c.Phones {
			rec := base
			setPhone(&rec, phone)
			if seen[rec.NormalizedPhone] {
				continue
			}
			seen[rec.NormalizedPhone] = true
			rec.Key = rec.NormalizedPhone
			out = append(out, rec)
		}
		return out
	}

	rec := base
	if len(c.Phones) > 0 {
		setPhone(&rec, c.Phones[0])
	}
	rec.Key = c.Text
	return []models.ContactRecord{rec}
}

func setPhone(rec *models.ContactRecord, phone string) {
	rec.Phone = phone
	rec.NormalizedPhone = extract.NormalizePhone(phone)
	rec.DMLink = extract.GenerateWaLink(phone)
}

// mergeInto folds a later sighting into an existing record. Role only ever
// upgrades and populated fields are never replaced.
func mergeInto(dst *models.ContactRecord, seen models.ContactRecord) {
	dst.Role = dst.Role.Upgrade(seen.Role)
	if extract.IsPlaceholder(dst.Name) && !extract.IsPlaceholder(seen.Name) {
		dst.Name = seen.Name
	}
	if extract.IsPlaceholder(dst.About) && !extract.IsPlaceholder(seen.About) {
		dst.About = seen.About
	}
	if dst.Phone == "" && seen.Phone != "" {
		dst.Phone, dst.NormalizedPhone, dst.DMLink = seen.Phone, seen.NormalizedPhone, seen.DMLink
	}
}
