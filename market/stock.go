package market

import (
	"fmt"
	"strings"
	"time"
)

// Stock is a watchlist entry: an exchange code plus its display name.
type Stock struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

func (s Stock) String() string {
	return fmt.Sprintf("%s %s", s.Code, s.Name)
}

// ValidCode reports whether code is a non-empty run of ASCII digits.
func ValidCode(code string) bool {
	if code == "" {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// CleanField strips the quotes, dots and blanks spreadsheet exports leave
// around codes and names.
func CleanField(s string) string {
	return strings.Trim(strings.TrimSpace(s), "\"'. ")
}

// DateFormat is the canonical key format for trading days.
const DateFormat = "2006-01-02"

var dateLayouts = []string{DateFormat, "2006/01/02", "2006/1/2", "2006-1-2", "20060102"}

// ParseDate accepts the day layouts found in watchlist and price files.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("bad date %q", s)
}

// Day truncates t to midnight UTC of its calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateKey formats t as a trading-day key.
func DateKey(t time.Time) string {
	return t.Format(DateFormat)
}
