package upstream

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// ID accepts identifiers sent either as JSON strings or numbers.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("upstream: invalid id %s", string(b))
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// Float accepts decimals sent as JSON numbers or numeric strings.
type Float float64

func (f *Float) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil {
		return fmt.Errorf("upstream: invalid number %s", string(b))
	}
	*f = Float(v)
	return nil
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// ParseTime reads an upstream timestamp. Values without an offset are read in
// assume; the result is converted to out.
func ParseTime(raw string, assume, out *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if assume == nil {
		assume = time.UTC
	}
	if out == nil {
		out = time.UTC
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, raw, assume); err == nil {
			return t.In(out), nil
		}
	}
	return time.Time{}, fmt.Errorf("upstream: unrecognized timestamp %q", raw)
}

// FormatISO renders t in UTC with microsecond precision, e.g. 2024-04-19T23:59:59.999999Z.
func FormatISO(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000Z")
}
