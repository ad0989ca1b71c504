package core

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-08-12")
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if d.Time.Year() != 2025 || d.Time.Month() != time.August || d.Time.Day() != 12 {
		t.Fatalf("parsed wrong date: %v", d)
	}
	if d.String() != "2025-08-12" {
		t.Fatalf("String() = %q", d.String())
	}

	for _, bad := range []string{"", "12/08/2025", "2025-13-01", "not a date"} {
		if _, err := ParseDate(bad); !errors.Is(err, ErrInvalidDate) {
			t.Fatalf("ParseDate(%q): got %v, want ErrInvalidDate", bad, err)
		}
	}
}

func TestDateJSON(t *testing.T) {
	d := NewDate(2025, 8, 12)
	b, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `"2025-08-12"` {
		t.Fatalf("marshal = %s", b)
	}
	var back Date
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Equal(d.Time) {
		t.Fatalf("round trip changed date: %v", back)
	}

	var zero Date
	b, err = json.Marshal(zero)
	if err != nil {
		t.Fatalf("marshal zero: %v", err)
	}
	if string(b) != "null" {
		t.Fatalf("zero date marshal = %s", b)
	}
}

func TestParseMonth(t *testing.T) {
	m, err := ParseMonth("2025-08")
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if m.Year != 2025 || m.Month != time.August {
		t.Fatalf("parsed wrong month: %v", m)
	}
	if m.String() != "2025-08" {
		t.Fatalf("String() = %q", m.String())
	}
	if _, err := ParseMonth("08-2025"); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("got %v, want ErrInvalidDate", err)
	}
}

func TestMonthMath(t *testing.T) {
	cases := []struct {
		m    Month
		days int
	}{
		{Month{2024, time.February}, 29},
		{Month{2025, time.February}, 28},
		{Month{2025, time.August}, 31},
		{Month{2025, time.September}, 30},
	}
	for i, tc := range cases {
		if got := tc.m.Days(); got != tc.days {
			t.Fatalf("case %d: %v.Days() = %d, want %d", i, tc.m, got, tc.days)
		}
	}

	dec := Month{2025, time.December}
	if next := dec.Next(); next != (Month{2026, time.January}) {
		t.Fatalf("Next() over year boundary = %v", next)
	}
	jan := Month{2025, time.January}
	if prev := jan.Prev(); prev != (Month{2024, time.December}) {
		t.Fatalf("Prev() over year boundary = %v", prev)
	}
	if !jan.Before(dec) || dec.Before(jan) {
		t.Fatalf("Before() ordering wrong")
	}
}

func TestMonthContains(t *testing.T) {
	m := Month{2025, time.August}
	if !m.Contains(NewDate(2025, 8, 1)) || !m.Contains(NewDate(2025, 8, 31)) {
		t.Fatalf("expected month edges contained")
	}
	if m.Contains(NewDate(2025, 7, 31)) || m.Contains(NewDate(2025, 9, 1)) {
		t.Fatalf("expected neighbors excluded")
	}
	if m.Contains(Date{}) {
		t.Fatalf("zero date must not be contained")
	}
}

func TestMonthJSON(t *testing.T) {
	m := Month{2025, time.August}
	b, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `"2025-08"` {
		t.Fatalf("marshal = %s", b)
	}
	var back Month
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back != m {
		t.Fatalf("round trip changed month: %v", back)
	}
}
