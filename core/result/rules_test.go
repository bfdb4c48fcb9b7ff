package result

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/volatiletech/null/v8"
)

func mark(f float64) null.Float64 {
	return null.Float64From(f)
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name       string
		test       string
		marks      Marks
		wantTotal  null.Float64
		wantFail   bool
		wantReason string
	}{
		{
			name:       "T1 under 9",
			test:       T1,
			marks:      Marks{Current: mark(8)},
			wantTotal:  mark(8),
			wantFail:   true,
			wantReason: "Less than 9 marks in T1",
		},
		{
			name:      "T1 at 9",
			test:      T1,
			marks:     Marks{Current: mark(9)},
			wantTotal: mark(9),
		},
		{
			name:  "missing mark never fails",
			test:  T1,
			marks: Marks{},
		},
		{
			name:       "absent scores 0",
			test:       T1,
			marks:      Marks{Current: mark(0), Absent: true},
			wantTotal:  mark(0),
			wantFail:   true,
			wantReason: "Less than 9 marks in T1",
		},
		{
			name:       "T2 low on both",
			test:       T2,
			marks:      Marks{Current: mark(5), T1: mark(8)},
			wantTotal:  mark(13),
			wantFail:   true,
			wantReason: "Less than 9 marks in T2 & less than 18 in (T1+T2)",
		},
		{
			name:      "T2 saved by T1",
			test:      T2,
			marks:     Marks{Current: mark(5), T1: mark(15)},
			wantTotal: mark(20),
		},
		{
			name:       "T2 sheet total wins",
			test:       T2,
			marks:      Marks{Current: mark(5), T1: mark(15), Total: mark(17)},
			wantTotal:  mark(17),
			wantFail:   true,
			wantReason: "Less than 9 marks in T2 & less than 18 in (T1+T2)",
		},
		{
			name:  "T2 without total",
			test:  T2,
			marks: Marks{Current: mark(5)},
		},
		{
			name:       "T3 cumulative",
			test:       T3,
			marks:      Marks{Current: mark(8), T1: mark(8), T2: mark(9)},
			wantTotal:  mark(25),
			wantFail:   true,
			wantReason: "Less than 9 marks in T3 & less than 27 in (T1+T2+T3)",
		},
		{
			name:      "T4 formula total",
			test:      T4,
			marks:     Marks{Current: mark(50), T1: mark(20), T2: mark(20), T3: mark(20), Total: mark(40)},
			wantTotal: mark(85),
		},
		{
			name:      "T4 low SEE saved by tests",
			test:      T4,
			marks:     Marks{Current: mark(10), T1: mark(20), T2: mark(20), T3: mark(20)},
			wantTotal: mark(65),
		},
		{
			name:       "T4 falls back on sheet total",
			test:       T4,
			marks:      Marks{Current: mark(10), Total: mark(30)},
			wantTotal:  mark(30),
			wantFail:   true,
			wantReason: "Less than 18 marks in SEE & less than 35 in (T1+T2+T3+SEE)",
		},
		{
			name:       "remedial",
			test:       Remedial,
			marks:      Marks{Current: mark(34.5)},
			wantTotal:  mark(34.5),
			wantFail:   true,
			wantReason: "Less than 35 marks in REMEDIAL",
		},
		{
			name:      "unknown test",
			test:      "T9",
			marks:     Marks{Current: mark(1), Total: mark(1)},
			wantTotal: mark(1),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			total, fail, reason := Evaluate(tc.test, tc.marks)
			assert.Equal(t, tc.wantTotal, total)
			assert.Equal(t, tc.wantFail, fail)
			assert.Equal(t, tc.wantReason, reason)
		})
	}
}

func TestValidTest(t *testing.T) {
	for _, test := range Tests {
		assert.True(t, ValidTest(test), test)
	}
	assert.False(t, ValidTest("t1"))
	assert.False(t, ValidTest(AllExams))
}
