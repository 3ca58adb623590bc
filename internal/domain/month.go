package domain

import (
	"fmt"
	"time"
)

// MonthRef identifies one calendar month for a user's ledger.
type MonthRef struct {
	Month int // 1..12
	Year  int
}

// MonthRefOf returns the MonthRef containing t.
func MonthRefOf(t time.Time) MonthRef {
	return MonthRef{Month: int(t.Month()), Year: t.Year()}
}

// Valid reports whether the reference is a real calendar month.
func (m MonthRef) Valid() bool {
	return m.Month >= 1 && m.Month <= 12 && m.Year > 0
}

// Next returns the following month, wrapping the year boundary.
func (m MonthRef) Next() MonthRef {
	if m.Month == 12 {
		return MonthRef{Month: 1, Year: m.Year + 1}
	}
	return MonthRef{Month: m.Month + 1, Year: m.Year}
}

// Prev returns the preceding month, wrapping the year boundary.
func (m MonthRef) Prev() MonthRef {
	if m.Month == 1 {
		return MonthRef{Month: 12, Year: m.Year - 1}
	}
	return MonthRef{Month: m.Month - 1, Year: m.Year}
}

// AddMonths returns the month n steps forward (n may be negative).
func (m MonthRef) AddMonths(n int) MonthRef {
	idx := m.Year*12 + (m.Month - 1) + n
	return MonthRef{Month: idx%12 + 1, Year: idx / 12}
}

// Before reports whether m is strictly earlier than other.
func (m MonthRef) Before(other MonthRef) bool {
	if m.Year != other.Year {
		return m.Year < other.Year
	}
	return m.Month < other.Month
}

// After reports whether m is strictly later than other.
func (m MonthRef) After(other MonthRef) bool {
	return other.Before(m)
}

// MonthsUntil returns the signed number of months from m to other.
func (m MonthRef) MonthsUntil(other MonthRef) int {
	return (other.Year-m.Year)*12 + (other.Month - m.Month)
}

// Bounds returns the first instant of the month and the first instant of
// the next month, in UTC. Date-range queries use [start, end).
func (m MonthRef) Bounds() (start, end time.Time) {
	start = time.Date(m.Year, time.Month(m.Month), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

// Contains reports whether t falls inside the month.
func (m MonthRef) Contains(t time.Time) bool {
	return int(t.Month()) == m.Month && t.Year() == m.Year
}

func (m MonthRef) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, m.Month)
}
