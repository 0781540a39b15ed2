package store

import (
	"go-contact-scraper/internal/extract"
	"go-contact-scraper/pkg/models"
)

// votes counts weighted values, remembering the order they were first seen.
type votes struct {
	counts map[string]int
	order  []string
}

func (v *votes) add(value string, weight int) {
	if extract.IsPlaceholder(value) {
		return
	}
	if v.counts == nil {
		v.counts = make(map[string]int)
	}
	if _, ok := v.counts[value]; !ok {
		v.order = append(v.order, value)
	}
	v.counts[value] += weight
}

// best returns the most frequent value; ties go to the earliest.
func (v *votes) best() string {
	winner, top := "", 0
	for _, value := range v.order {
		if n := v.counts[value]; n > top {
			winner, top = value, n
		}
	}
	return winner
}

type tally struct {
	rec    models.ContactRecord
	names  votes
	abouts votes
}

func (t *tally) add(seen models.ContactRecord, weight int) {
	t.rec.Role = t.rec.Role.Upgrade(seen.Role)
	if t.rec.Phone == "" && seen.Phone != "" {
		t.rec.Phone, t.rec.NormalizedPhone, t.rec.DMLink = seen.Phone, seen.NormalizedPhone, seen.DMLink
	}
	t.names.add(seen.Name, weight)
	t.abouts.add(seen.About, weight)
}

// rebuild recomputes every record from the retained observations.
//
// Phone-keyed sightings are tallied first. A phone-less block whose name
// matches exactly one phone-keyed record is then folded into it instead of
// becoming a record of its own, which removes the text-keyed duplicates left
// behind by ticks that saw a row before its number rendered.
func rebuild(raw []rawEntry, keys KeyStrategy) (map[string]*models.ContactRecord, []string) {
	tallies := make(map[string]*tally)
	var order []string

	open := func(seen models.ContactRecord) *tally {
		t, ok := tallies[seen.Key]
		if !ok {
			t = &tally{rec: models.ContactRecord{Key: seen.Key}}
			tallies[seen.Key] = t
			order = append(order, seen.Key)
		}
		return t
	}

	var textOnly []rawEntry
	for _, entry := range raw {
		if keys == KeyByPhone && len(entry.cand.Phones) > 0 {
			for _, seen := range sightings(entry.cand, keys) {
				open(seen).add(seen, entry.count)
			}
			continue
		}
		textOnly = append(textOnly, entry)
	}

	owners := make(map[string][]string)
	if keys == KeyByPhone {
		for _, key := range order {
			if name := tallies[key].names.best(); name != "" {
				owners[name] = append(owners[name], key)
			}
		}
	}

	for _, entry := range textOnly {
		seen := sightings(entry.cand, keys)[0]
		if keyed := owners[seen.Name]; seen.Name != "" && len(keyed) == 1 {
			tallies[keyed[0]].add(seen, entry.count)
			continue
		}
		open(seen).add(seen, entry.count)
	}

	records := make(map[string]*models.ContactRecord, len(tallies))
	ordered := make([]string, 0, len(order))
	for _, key := range firstSeenOrder(raw, order, keys) {
		t := tallies[key]
		rec := t.rec
		rec.Name = t.names.best()
		rec.About = t.abouts.best()
		records[key] = &rec
		ordered = append(ordered, key)
	}
	return records, ordered
}

// firstSeenOrder sorts keys by the index of the observation that first produced them.
func firstSeenOrder(raw []rawEntry, keys []string, strategy KeyStrategy) []string {
	wanted := make(map[string]bool, len(keys))
	for _, k := range keys {
		wanted[k] = true
	}

	ordered := make([]string, 0, len(keys))
	for _, entry := range raw {
		for _, seen := range sightings(entry.cand, strategy) {
			if wanted[seen.Key] {
				ordered = append(ordered, seen.Key)
				delete(wanted, seen.Key)
			}
		}
	}
	return ordered
}
