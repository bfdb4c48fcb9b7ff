package sheet

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"
	"golang.org/x/text/unicode/norm"
)

// exactDigits is enough decimals to print a percentage-sized float64 exactly.
const exactDigits = 80

// AbsentMarker is written in mark cells for students who missed the test.
const AbsentMarker = "AB"

func isBlank(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || strings.EqualFold(s, "nan")
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// stripFloatZero drops the ".0" excel adds to integers read as floats ("123.0" -> "123").
func stripFloatZero(s string) string {
	if strings.HasSuffix(s, ".0") && isDigits(s[:len(s)-2]) {
		return s[:len(s)-2]
	}
	return s
}

func parseFloat(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// CleanText trims `v`, maps blank markers to "" and strips the float ".0" artifact.
func CleanText(v string) string {
	if isBlank(v) {
		return ""
	}
	return stripFloatZero(strings.TrimSpace(v))
}

// CleanEnrollment is CleanText plus scientific-notation repair ("1.23E+11" -> "123000000000").
func CleanEnrollment(v string) string {
	text := CleanText(v)
	if strings.Contains(strings.ToLower(text), "e+") {
		if f, ok := parseFloat(text); ok {
			text = strconv.FormatFloat(f, 'f', 0, 64)
		}
	}
	return text
}

// CleanNumber is an alias of CleanEnrollment used for phone numbers & roll numbers.
func CleanNumber(v string) string { return CleanEnrollment(v) }

// ToMark parses an exam mark. "AB" is an absent student scored 0; blanks & garbage are invalid.
func ToMark(v string) (mark null.Float64, absent bool) {
	text := strings.ToUpper(strings.TrimSpace(v))
	if text == "" || text == "NAN" {
		return null.Float64{}, false
	}
	if text == AbsentMarker {
		return null.Float64From(0), true
	}
	if f, ok := parseFloat(text); ok {
		return null.Float64From(f), false
	}
	return null.Float64{}, false
}

// roundHalfEven rounds the exact binary value of v, ties going to the even digit.
func roundHalfEven(v float64, places int32) float64 {
	d, err := decimal.NewFromString(strconv.FormatFloat(v, 'f', exactDigits, 64))
	if err != nil {
		return v
	}
	f, _ := d.RoundBank(places).Float64()
	return f
}

// PercentToFloat reads an attendance percentage.
// Numeric cells hold a 0-1 fraction and are scaled to 0-100 (2 decimals);
// text cells are already percentages ("85.5%" or "85.5"). Header text leaking into data is rejected.
func PercentToFloat(c Cell) null.Float64 {
	if c.Numeric {
		f, ok := parseFloat(c.Value)
		if !ok {
			return null.Float64{}
		}
		return null.Float64From(roundHalfEven(f*100, 2))
	}

	text := strings.TrimSpace(c.Value)
	if isBlank(text) || strings.Contains(strings.ToUpper(text), "ATTENDANCE") {
		return null.Float64{}
	}
	if f, ok := parseFloat(strings.ReplaceAll(text, "%", "")); ok {
		return null.Float64From(f)
	}
	return null.Float64{}
}

// ParseFloat parses a plain numeric cell ("-" and blanks are invalid).
func ParseFloat(v string) null.Float64 {
	text := strings.TrimSpace(v)
	if isBlank(text) || text == "-" {
		return null.Float64{}
	}
	if f, ok := parseFloat(text); ok {
		return null.Float64From(f)
	}
	return null.Float64{}
}

func SafeInt(v string) null.Int {
	text := CleanNumber(v)
	if text == "" {
		return null.Int{}
	}
	i, err := strconv.Atoi(text)
	if err != nil {
		return null.Int{}
	}
	return null.IntFrom(i)
}

// SafeText trims `v` and cuts it to maxLen runes.
func SafeText(v string, maxLen int) string {
	text := strings.TrimSpace(v)
	if isBlank(text) {
		return ""
	}
	r := []rune(text)
	if len(r) > maxLen {
		return string(r[:maxLen])
	}
	return text
}

// FormatPhone converts any phone format into the WhatsApp one: 9876543210 -> 919876543210.
func FormatPhone(v string) string {
	num := CleanNumber(v)
	num = strings.NewReplacer(" ", "", "-", "", "+", "", "(", "", ")", "", ".", "").Replace(num)

	if strings.HasPrefix(num, "91") && len(num) > 10 {
		num = num[len(num)-10:]
	}
	if len(num) == 10 {
		num = "91" + num
	}
	return num
}

// Normalize folds header text for keyword matching: NFKC, lower case, newlines as spaces.
func Normalize(v string) string {
	if isBlank(v) {
		return ""
	}
	text := norm.NFKC.String(v)
	text = strings.ToLower(strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(text))
	return strings.TrimSpace(text)
}

// NormKey keeps the lower-cased letters and digits of `v` only ("Maths-1 (25)" -> "maths125").
func NormKey(v string) string {
	text := strings.ToLower(norm.NFKC.String(v))
	b := strings.Builder{}
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SubjectBaseName drops the bracketed suffix of a subject name ("Mathematics-1 (25)" -> "Mathematics-1").
func SubjectBaseName(v string) string {
	text := strings.TrimSpace(v)
	if i := strings.Index(text, "("); i >= 0 {
		text = strings.TrimSpace(text[:i])
	}
	return text
}
