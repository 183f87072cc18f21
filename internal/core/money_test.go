package core

import (
	"encoding/json"
	"testing"
)

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

func TestParseMoneyAcceptsZero(t *testing.T) {
	m, err := ParseMoney("0")
	if err != nil || !m.IsZero() {
		t.Fatalf("expected zero, got %v (err=%v)", m, err)
	}
	if _, err := ParseMoney("-0.5"); err == nil {
		t.Fatalf("expected error for negative amount")
	}
}

func TestMoneyString(t *testing.T) {
	cases := map[int64]string{
		0:     "0.00",
		5:     "0.05",
		1234:  "12.34",
		-1230: "-12.30",
	}
	for cents, want := range cases {
		if got := Cents(cents).String(); got != want {
			t.Fatalf("Cents(%d).String() = %q, want %q", cents, got, want)
		}
	}
}

func TestMoneyJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		A Money `json:"a"`
	}{A: Cents(-4250)})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"a":-42.50}` {
		t.Fatalf("unexpected json: %s", b)
	}

	for _, in := range []string{`12.5`, `"12.50"`, `12.499`} {
		var m Money
		if err := json.Unmarshal([]byte(in), &m); err != nil {
			t.Fatalf("unmarshal %s: %v", in, err)
		}
		if m.Cents != 1250 {
			t.Fatalf("unmarshal %s: got %d cents", in, m.Cents)
		}
	}

	var m Money
	if err := json.Unmarshal([]byte(`"twelve"`), &m); err == nil {
		t.Fatalf("expected error for non-numeric amount")
	}
}

func TestMinMax(t *testing.T) {
	if Min(Cents(10), Cents(50)) != Cents(10) {
		t.Fatalf("Min")
	}
	if Max(Cents(-10), Cents(0)) != Cents(0) {
		t.Fatalf("Max")
	}
}
