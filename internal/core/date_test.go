package core

import (
	"encoding/json"
	"testing"
	"time"
)

func TestPeriodPrevWrapsYear(t *testing.T) {
	p := Period{Year: 2024, Month: time.January}.Prev()
	if p.Year != 2023 || p.Month != time.December {
		t.Fatalf("got %v", p)
	}
	p = Period{Year: 2024, Month: time.March}.Prev()
	if p.Year != 2024 || p.Month != time.February {
		t.Fatalf("got %v", p)
	}
}

func TestPeriodBounds(t *testing.T) {
	p := Period{Year: 2024, Month: time.February}
	if p.Start().String() != "2024-02-01" || p.End().String() != "2024-02-29" {
		t.Fatalf("bounds = %s..%s", p.Start(), p.End())
	}
	if !p.Contains(NewDate(2024, 2, 29)) || p.Contains(NewDate(2024, 3, 1)) {
		t.Fatalf("Contains is wrong")
	}
	if p.String() != "2024-02" {
		t.Fatalf("String = %s", p)
	}
	if len(MonthsOf(2024)) != 12 {
		t.Fatalf("MonthsOf must return 12 periods")
	}
}

func TestParsePeriod(t *testing.T) {
	p, err := ParsePeriod("2025-11")
	if err != nil || p.Year != 2025 || p.Month != time.November {
		t.Fatalf("got %v %v", p, err)
	}
	if _, err := ParsePeriod("2025-13"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestDateJSON(t *testing.T) {
	type wrap struct {
		Date Date `json:"date"`
	}
	b, err := json.Marshal(wrap{Date: NewDate(2024, 1, 5)})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"date":"2024-01-05"}` {
		t.Fatalf("got %s", b)
	}
	var back wrap
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatal(err)
	}
	if !back.Date.Equal(NewDate(2024, 1, 5).Time) {
		t.Fatalf("round trip mismatch: %v", back.Date)
	}
	if err := json.Unmarshal([]byte(`{"date":"2024-02-31"}`), &back); err == nil {
		t.Fatalf("expected error for impossible date")
	}
}
