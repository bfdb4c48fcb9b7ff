package result

import (
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"
)

// Test names
const (
	T1       = "T1"
	T2       = "T2"
	T3       = "T3"
	T4       = "T4"
	Remedial = "REMEDIAL"
)

// Tests lists the test names in exam order.
var Tests = []string{T1, T2, T3, T4, Remedial}

// Fail thresholds
const (
	TestPassMark     = 9.0  // T1, T2 & T3 are out of 25
	SEEPassMark      = 18.0 // T4 (SEE) is out of 50
	RemedialPassMark = 35.0

	T12PassTotal  = 18.0
	T123PassTotal = 27.0
	FinalPassMark = 35.0
)

// Marks are the values read for one student row. Total is the sheet's cumulative column, when any.
type Marks struct {
	Current null.Float64
	T1      null.Float64
	T2      null.Float64
	T3      null.Float64
	T4      null.Float64
	Total   null.Float64
	Absent  bool
}

// rule computes a test's cumulative total and decides whether a student failed it.
type rule struct {
	currentMin float64
	// totalMin is only checked when > 0; both conditions must hold for a fail.
	totalMin float64
	reason   string
	total    func(m Marks) null.Float64
}

func sum(values ...null.Float64) null.Float64 {
	total := decimal.Zero
	for _, v := range values {
		if !v.Valid {
			return null.Float64{}
		}
		total = total.Add(decimal.NewFromFloat(v.Float64))
	}
	f, _ := total.Float64()
	return null.Float64From(f)
}

func sheetTotalOr(m Marks, values ...null.Float64) null.Float64 {
	if m.Total.Valid {
		return m.Total
	}
	return sum(values...)
}

func half(v null.Float64) null.Float64 {
	if !v.Valid {
		return v
	}
	f, _ := decimal.NewFromFloat(v.Float64).Div(decimal.NewFromInt(2)).Float64()
	return null.Float64From(f)
}

var rules = map[string]rule{
	T1: {
		currentMin: TestPassMark,
		reason:     "Less than 9 marks in T1",
		total:      func(m Marks) null.Float64 { return m.Current },
	},
	T2: {
		currentMin: TestPassMark,
		totalMin:   T12PassTotal,
		reason:     "Less than 9 marks in T2 & less than 18 in (T1+T2)",
		total:      func(m Marks) null.Float64 { return sheetTotalOr(m, m.T1, m.Current) },
	},
	T3: {
		currentMin: TestPassMark,
		totalMin:   T123PassTotal,
		reason:     "Less than 9 marks in T3 & less than 27 in (T1+T2+T3)",
		total:      func(m Marks) null.Float64 { return sheetTotalOr(m, m.T1, m.T2, m.Current) },
	},
	T4: {
		currentMin: SEEPassMark,
		totalMin:   FinalPassMark,
		reason:     "Less than 18 marks in SEE & less than 35 in (T1+T2+T3+SEE)",
		total: func(m Marks) null.Float64 {
			if total := sum(m.T1, m.T2, m.T3, half(m.Current)); total.Valid {
				return total
			}
			return m.Total
		},
	},
	Remedial: {
		currentMin: RemedialPassMark,
		reason:     "Less than 35 marks in REMEDIAL",
		total:      func(m Marks) null.Float64 { return m.Current },
	},
}

func ValidTest(test string) bool {
	_, ok := rules[test]
	return ok
}

// RuleText describes the fail rule of a test.
func RuleText(test string) string {
	return rules[test].reason
}

// Evaluate computes the cumulative total of a test and applies its fail rule.
// A missing current mark never fails; a fail reason is only returned along a fail.
func Evaluate(test string, m Marks) (total null.Float64, fail bool, reason string) {
	r, ok := rules[test]
	if !ok {
		return m.Total, false, ""
	}
	total = r.total(m)
	if !m.Current.Valid {
		return total, false, ""
	}

	fail = m.Current.Float64 < r.currentMin
	if r.totalMin > 0 {
		fail = fail && total.Valid && total.Float64 < r.totalMin
	}
	if fail {
		reason = r.reason
	}
	return total, fail, reason
}
