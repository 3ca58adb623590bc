package domain

import (
	"testing"
	"time"
)

func TestMonthRefArithmetic(t *testing.T) {
	tests := []struct {
		name string
		ref  MonthRef
		n    int
		want MonthRef
	}{
		{"forward within year", MonthRef{3, 2025}, 2, MonthRef{5, 2025}},
		{"forward across year", MonthRef{11, 2025}, 3, MonthRef{2, 2026}},
		{"backward across year", MonthRef{1, 2025}, -1, MonthRef{12, 2024}},
		{"zero", MonthRef{6, 2025}, 0, MonthRef{6, 2025}},
		{"several years", MonthRef{7, 2020}, 30, MonthRef{1, 2023}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.ref.AddMonths(tc.n); got != tc.want {
				t.Errorf("%v.AddMonths(%d) = %v, want %v", tc.ref, tc.n, got, tc.want)
			}
		})
	}
}

func TestMonthRefNextPrev(t *testing.T) {
	dec := MonthRef{12, 2024}
	if got := dec.Next(); got != (MonthRef{1, 2025}) {
		t.Errorf("Next = %v", got)
	}
	jan := MonthRef{1, 2025}
	if got := jan.Prev(); got != (MonthRef{12, 2024}) {
		t.Errorf("Prev = %v", got)
	}
}

func TestMonthRefOrdering(t *testing.T) {
	a := MonthRef{12, 2024}
	b := MonthRef{1, 2025}
	if !a.Before(b) || b.Before(a) {
		t.Error("expected 2024-12 before 2025-01")
	}
	if !b.After(a) {
		t.Error("expected 2025-01 after 2024-12")
	}
	if a.MonthsUntil(b) != 1 {
		t.Errorf("MonthsUntil = %d, want 1", a.MonthsUntil(b))
	}
	if b.MonthsUntil(a) != -1 {
		t.Errorf("reverse MonthsUntil = %d, want -1", b.MonthsUntil(a))
	}
}

func TestMonthRefBounds(t *testing.T) {
	ref := MonthRef{2, 2024}
	start, end := ref.Bounds()

	if !start.Equal(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("start = %v", start)
	}
	if !end.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("end = %v", end)
	}

	if !ref.Contains(time.Date(2024, 2, 29, 23, 59, 0, 0, time.UTC)) {
		t.Error("leap day should be inside February 2024")
	}
	if ref.Contains(end) {
		t.Error("end bound is exclusive")
	}
}

func TestMonthRefValid(t *testing.T) {
	tests := []struct {
		ref  MonthRef
		want bool
	}{
		{MonthRef{1, 2025}, true},
		{MonthRef{12, 2025}, true},
		{MonthRef{0, 2025}, false},
		{MonthRef{13, 2025}, false},
		{MonthRef{6, 0}, false},
	}
	for _, tc := range tests {
		if got := tc.ref.Valid(); got != tc.want {
			t.Errorf("%v.Valid() = %v, want %v", tc.ref, got, tc.want)
		}
	}
}

func TestMonthRefString(t *testing.T) {
	if got := (MonthRef{3, 2025}).String(); got != "2025-03" {
		t.Errorf("String = %q", got)
	}
}
