package core

import "testing"

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{" 2.50 ", 250, true},
		{"-1", 0, false},
		{"0", 0, false},
		{"abc", 0, false},
		{"1e3", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestMoneyFormatting(t *testing.T) {
	cases := map[int64]string{
		0:      "0.00",
		5:      "0.05",
		150000: "1500.00",
		-1234:  "-12.34",
	}
	for cents, want := range cases {
		if got := FormatCents(cents); got != want {
			t.Fatalf("FormatCents(%d) = %s, want %s", cents, got, want)
		}
	}
}

func TestMoneyJSON(t *testing.T) {
	b, err := Cents(1234).MarshalJSON()
	if err != nil || string(b) != "1234" {
		t.Fatalf("got %s %v", b, err)
	}
	var m Money
	if err := m.UnmarshalJSON([]byte("99")); err != nil || m.Cents != 99 {
		t.Fatalf("got %v %v", m, err)
	}
	if err := m.UnmarshalJSON([]byte(`"x"`)); err == nil {
		t.Fatalf("expected error")
	}
}
