package timeseries

import (
	"fmt"
	"time"
)

// MonthlyFrequency is the number of observations per seasonal cycle for
// monthly series.
const MonthlyFrequency = 12

// Period identifies one calendar month.
type Period struct {
	Year  int
	Month time.Month
}

// Canonical window of the sales dataset: January 2014 to December 2017.
var (
	CanonicalStart = Period{Year: 2014, Month: time.January}
	CanonicalEnd   = Period{Year: 2017, Month: time.December}
)

// PeriodOf returns the calendar month containing t.
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: t.Month()}
}

// ParsePeriod parses a "YYYY-MM" string.
func ParsePeriod(s string) (Period, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Period{}, fmt.Errorf("invalid period %q: %w", s, err)
	}
	return PeriodOf(t), nil
}

// Time returns the first day of the month at midnight UTC.
func (p Period) Time() time.Time {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)
}

// Add returns the period n months after p (n may be negative).
func (p Period) Add(n int) Period {
	idx := p.index() + n
	return Period{Year: idx / 12, Month: time.Month(idx%12 + 1)}
}

// Next returns the following month.
func (p Period) Next() Period {
	return p.Add(1)
}

// Before reports whether p precedes q.
func (p Period) Before(q Period) bool {
	return p.index() < q.index()
}

// MonthsUntil returns the signed number of months from p to q.
func (p Period) MonthsUntil(q Period) int {
	return q.index() - p.index()
}

// IsZero reports whether p is the zero period.
func (p Period) IsZero() bool {
	return p.Year == 0 && p.Month == 0
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// MarshalText implements encoding.TextMarshaler so periods can key JSON maps.
func (p Period) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Period) UnmarshalText(b []byte) error {
	parsed, err := ParsePeriod(string(b))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

func (p Period) index() int {
	return p.Year*12 + int(p.Month) - 1
}
