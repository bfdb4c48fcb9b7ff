package sheet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/volatiletech/null/v8"
)

func TestCleanEnrollment(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "blank", in: "  ", want: ""},
		{name: "nan", in: "NaN", want: ""},
		{name: "float artifact", in: "230101001.0", want: "230101001"},
		{name: "scientific", in: "2.30101E+11", want: "230101000000"},
		{name: "text id kept", in: " EN-2023.0 ", want: "EN-2023.0"},
		{name: "plain", in: "230101001", want: "230101001"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CleanEnrollment(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, CleanEnrollment(got), "not idempotent")
		})
	}
}

func TestToMark(t *testing.T) {
	tests := []struct {
		in         string
		want       null.Float64
		wantAbsent bool
	}{
		{in: "AB", want: null.Float64From(0), wantAbsent: true},
		{in: " ab ", want: null.Float64From(0), wantAbsent: true},
		{in: ""},
		{in: "nan"},
		{in: "17.5", want: null.Float64From(17.5)},
		{in: "absent"},
		{in: "inf"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, absent := ToMark(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantAbsent, absent)
		})
	}
}

func TestPercentToFloat(t *testing.T) {
	tests := []struct {
		name string
		in   Cell
		want null.Float64
	}{
		{name: "fraction", in: Num(0.8567), want: null.Float64From(85.67)},
		{name: "fraction rounding", in: Num(0.123456), want: null.Float64From(12.35)},
		{name: "exact tie", in: Num(0.80125), want: null.Float64From(80.12)},
		{name: "binary value under a tie", in: Num(0.00015), want: null.Float64From(0.01)},
		{name: "half to even", in: Num(0.00125), want: null.Float64From(0.12)},
		{name: "full", in: Num(1), want: null.Float64From(100)},
		{name: "zero", in: Num(0), want: null.Float64From(0)},
		{name: "percent string", in: Str("85.5%"), want: null.Float64From(85.5)},
		{name: "number string", in: Str(" 72 "), want: null.Float64From(72)},
		{name: "header leak", in: Str("Overall Attendance")},
		{name: "blank", in: Str("")},
		{name: "garbage", in: Str("n/a")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PercentToFloat(tt.in))
		})
	}
}

func TestFormatPhone(t *testing.T) {
	tests := map[string]string{
		"9876543210":      "919876543210",
		"+91 98765-43210": "919876543210",
		"9876543210.0":    "919876543210",
		"919876543210":    "919876543210",
		"12345":           "12345",
		"nan":             "",
	}
	for in, want := range tests {
		if got := FormatPhone(in); got != want {
			t.Errorf("FormatPhone(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSafeValues(t *testing.T) {
	assert.Equal(t, null.IntFrom(12), SafeInt("12.0"))
	assert.False(t, SafeInt("twelve").Valid)
	assert.False(t, SafeInt("").Valid)

	assert.Equal(t, "abc", SafeText(" abcdef ", 3))
	assert.Equal(t, "", SafeText("nan", 3))

	assert.Equal(t, null.Float64From(42), ParseFloat("42"))
	assert.False(t, ParseFloat("-").Valid)
}

func TestTextKeys(t *testing.T) {
	assert.Equal(t, "name of student", Normalize("Name of\nStudent "))
	assert.Equal(t, "maths125", NormKey("Maths-1 (25)"))
	assert.Equal(t, "Mathematics-1", SubjectBaseName(" Mathematics-1 (25)"))
	assert.Equal(t, "Java", SubjectBaseName("Java"))
}
