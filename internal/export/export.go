// Package export renders a record list as a downloadable CSV or JSON document.
package export

import (
	"bytes"
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"go-contact-scraper/pkg/models"
)

type Format string

const (
	CSV  Format = "csv"
	JSON Format = "json"
)

var ErrUnknownFormat = errors.New("unknown export format")

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case CSV, JSON:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// Field is one exported column.
type Field string

const (
	FieldName   Field = "name"
	FieldPhone  Field = "phone"
	FieldAbout  Field = "about"
	FieldRole   Field = "role"
	FieldDMLink Field = "dmLink"
)

// AllFields is the full column set in output order.
var AllFields = []Field{FieldName, FieldPhone, FieldAbout, FieldRole, FieldDMLink}

// ParseFields reads a comma-separated field list. Output order always follows
// AllFields regardless of the order given.
func ParseFields(s string) ([]Field, error) {
	if strings.TrimSpace(s) == "" {
		return AllFields, nil
	}
	want := make(map[Field]bool)
	for _, part := range strings.Split(s, ",") {
		f := Field(strings.TrimSpace(part))
		if !slices.Contains(AllFields, f) {
			return nil, fmt.Errorf("unknown export field %q", part)
		}
		want[f] = true
	}
	var fields []Field
	for _, f := range AllFields {
		if want[f] {
			fields = append(fields, f)
		}
	}
	return fields, nil
}

func (f Field) value(r models.ContactRecord) string {
	switch f {
	case FieldName:
		return r.Name
	case FieldPhone:
		return r.Phone
	case FieldAbout:
		return r.About
	case FieldRole:
		return r.Role.String()
	case FieldDMLink:
		return r.DMLink
	default:
		return ""
	}
}

// Document is a rendered export.
type Document struct {
	Content  string
	MimeType string
	Filename string
}

type Exporter struct {
	Fields []Field
	// Prefix starts every suggested filename.
	Prefix string
	Now    func() time.Time
}

func New(fields []Field) *Exporter {
	if len(fields) == 0 {
		fields = AllFields
	}
	return &Exporter{Fields: fields, Prefix: "contacts", Now: time.Now}
}

// Render sorts records and encodes them in format.
func (e *Exporter) Render(records []models.ContactRecord, format Format) (Document, error) {
	sorted := Sort(records)

	var (
		doc Document
		err error
	)
	switch format {
	case CSV:
		doc.Content = e.csv(sorted)
		doc.MimeType = "text/csv"
	case JSON:
		doc.Content, err = e.json(sorted)
		doc.MimeType = "application/json"
	default:
		return Document{}, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if err != nil {
		return Document{}, err
	}

	doc.Filename = fmt.Sprintf("%s_%d.%s", e.Prefix, e.Now().UnixMilli(), format)
	return doc, nil
}

// Sort returns a copy ordered admins first, then by name. Unnamed records
// follow named ones and ties keep their original order.
func Sort(records []models.ContactRecord) []models.ContactRecord {
	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, func(a, b models.ContactRecord) int {
		if c := cmp.Compare(b.Role, a.Role); c != 0 {
			return c
		}
		switch {
		case a.Name == "" && b.Name == "":
			return 0
		case a.Name == "":
			return 1
		case b.Name == "":
			return -1
		}
		return strings.Compare(a.Name, b.Name)
	})
	return sorted
}

// csv quotes every value, doubling embedded quotes and flattening newlines to
// a single space.
func (e *Exporter) csv(records []models.ContactRecord) string {
	var b strings.Builder
	for i, f := range e.Fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(string(f))
	}
	for _, r := range records {
		b.WriteByte('\n')
		for i, f := range e.Fields {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(quote(f.value(r)))
		}
	}
	return b.String()
}

var newlines = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

func quote(v string) string {
	v = newlines.Replace(v)
	return `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
}

func (e *Exporter) json(records []models.ContactRecord) (string, error) {
	// Objects are assembled by hand so keys keep the configured field order.
	var compact bytes.Buffer
	compact.WriteByte('[')
	for i, r := range records {
		if i > 0 {
			compact.WriteByte(',')
		}
		compact.WriteByte('{')
		for j, f := range e.Fields {
			if j > 0 {
				compact.WriteByte(',')
			}
			key, _ := json.Marshal(string(f))
			val, err := json.Marshal(f.value(r))
			if err != nil {
				return "", fmt.Errorf("encode %s: %w", f, err)
			}
			compact.Write(key)
			compact.WriteByte(':')
			compact.Write(val)
		}
		compact.WriteByte('}')
	}
	compact.WriteByte(']')

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, compact.Bytes(), "", "  "); err != nil {
		return "", fmt.Errorf("indent json: %w", err)
	}
	return pretty.String(), nil
}
