package core

import (
	"encoding/json"
	"testing"
	"time"
)

func TestClampToMonthEnd(t *testing.T) {
	cases := []struct {
		year, month, day int
		want             Date
	}{
		{2025, 4, 31, NewDate(2025, 4, 30)},
		{2025, 2, 31, NewDate(2025, 2, 28)},
		{2024, 2, 30, NewDate(2024, 2, 29)},
		{2025, 1, 31, NewDate(2025, 1, 31)},
		{2025, 13, 31, NewDate(2026, 1, 31)},
		{2025, 0, 31, NewDate(2024, 12, 31)},
		{2025, 14, 30, NewDate(2026, 2, 28)},
	}
	for _, tc := range cases {
		got := ClampToMonthEnd(tc.year, tc.month, tc.day)
		if !got.Equal(tc.want) {
			t.Fatalf("ClampToMonthEnd(%d, %d, %d) = %s, want %s", tc.year, tc.month, tc.day, got, tc.want)
		}
	}
}

func TestDateAddMonths(t *testing.T) {
	start := NewDate(2025, 1, 31)
	want := []Date{
		NewDate(2025, 1, 31),
		NewDate(2025, 2, 28),
		NewDate(2025, 3, 31),
		NewDate(2025, 4, 30),
	}
	for i, w := range want {
		if got := start.AddMonths(i); !got.Equal(w) {
			t.Fatalf("AddMonths(%d) = %s, want %s", i, got, w)
		}
	}
	if got := NewDate(2025, 3, 31).AddMonths(-1); !got.Equal(NewDate(2025, 2, 28)) {
		t.Fatalf("AddMonths(-1) = %s", got)
	}
}

func TestDateOf(t *testing.T) {
	loc := time.FixedZone("BRT", -3*60*60)
	instant := time.Date(2025, 3, 1, 1, 30, 0, 0, time.UTC)
	if got := DateOf(instant, loc); !got.Equal(NewDate(2025, 2, 28)) {
		t.Fatalf("DateOf in BRT = %s, want 2025-02-28", got)
	}
	if got := DateOf(instant, nil); !got.Equal(NewDate(2025, 3, 1)) {
		t.Fatalf("DateOf in UTC = %s, want 2025-03-01", got)
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-10-15")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.String() != "2025-10-15" {
		t.Fatalf("round trip = %s", d)
	}
	if _, err := ParseDate("15/10/2025"); err == nil {
		t.Fatalf("expected error for wrong layout")
	}
	if err := (Date{}).Validate(); err == nil {
		t.Fatalf("expected zero date to be invalid")
	}
}

func TestMonthBounds(t *testing.T) {
	d := NewDate(2024, 2, 10)
	if !d.FirstOfMonth().Equal(NewDate(2024, 2, 1)) {
		t.Fatalf("FirstOfMonth = %s", d.FirstOfMonth())
	}
	if !d.LastOfMonth().Equal(NewDate(2024, 2, 29)) {
		t.Fatalf("LastOfMonth = %s", d.LastOfMonth())
	}
	if !MinDate(NewDate(2025, 5, 31), NewDate(2025, 5, 10)).Equal(NewDate(2025, 5, 10)) {
		t.Fatalf("MinDate picked the later date")
	}
}

func TestDateJSON(t *testing.T) {
	type wrapper struct {
		On  Date  `json:"on"`
		Due *Date `json:"due"`
	}
	b, err := json.Marshal(wrapper{On: NewDate(2025, 2, 28)})
	if err != nil {
		t.Fatal(err)
	}
	if got := string(b); got != `{"on":"2025-02-28","due":null}` {
		t.Fatalf("marshal = %s", got)
	}

	var w wrapper
	if err := json.Unmarshal([]byte(`{"on":"2024-02-29"}`), &w); err != nil {
		t.Fatal(err)
	}
	if !w.On.Equal(NewDate(2024, 2, 29)) {
		t.Errorf("unmarshal = %v", w.On)
	}
	if err := json.Unmarshal([]byte(`{"on":"2024-02-30"}`), &w); err == nil {
		t.Error("expected error for impossible date")
	}
}
