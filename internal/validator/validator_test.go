package validator

import (
	"errors"
	"strings"
	"testing"
)

type sample struct {
	Month string `validate:"omitempty,yearmonth"`
	Date  string `validate:"omitempty,isodate"`
	Text  string `validate:"omitempty,notblank"`
}

func TestCustomRules(t *testing.T) {
	cases := []struct {
		in    sample
		field string
	}{
		{sample{Month: "2024-12"}, ""},
		{sample{Month: "2024-13"}, "Month"},
		{sample{Month: "24-12"}, "Month"},
		{sample{Date: "2024-02-29"}, ""},
		{sample{Date: "2023-02-29"}, "Date"},
		{sample{Text: "   "}, "Text"},
		{sample{Text: " ok "}, ""},
	}
	for _, tc := range cases {
		err := Struct(tc.in)
		if tc.field == "" {
			if err != nil {
				t.Fatalf("%+v: unexpected error %v", tc.in, err)
			}
			continue
		}
		if err == nil || !strings.Contains(err.Error(), tc.field) {
			t.Fatalf("%+v: expected error on %s, got %v", tc.in, tc.field, err)
		}
	}
}

func TestStructWrapsSentinel(t *testing.T) {
	err := Struct(sample{Month: "nope"})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}
