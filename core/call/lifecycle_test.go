package call

import (
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLifecycle_Record(t *testing.T) {
	t1 := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	t3 := t2.Add(time.Hour)

	t.Run("auto not received after second attempt", func(t *testing.T) {
		var l Lifecycle
		l.Record(Update{}, t1, AutoNotReceived)
		assert.Equal(t, t1, l.Attempt1Time.Time)
		assert.False(t, l.Done())

		l.Record(Update{}, t2, AutoNotReceived)
		assert.Equal(t, t2, l.Attempt2Time.Time)
		assert.True(t, l.NotReceived())
	})

	t.Run("explicit not received", func(t *testing.T) {
		var l Lifecycle
		l.Record(Update{}, t1, ExplicitNotReceived)
		l.Record(Update{}, t2, ExplicitNotReceived)
		assert.False(t, l.Done())

		l.Record(Update{Status: StatusNotReceived}, t3, ExplicitNotReceived)
		assert.True(t, l.NotReceived())
		assert.Equal(t, t2, l.Attempt2Time.Time, "no third attempt slot")
	})

	t.Run("received", func(t *testing.T) {
		var l Lifecycle
		l.Record(Update{Status: StatusReceived, TalkedWith: TalkedMother, Duration: "3m", Reason: "sick"}, t1, AutoNotReceived)
		assert.True(t, l.Received())
		assert.Equal(t, TalkedMother, l.TalkedWith.String)
		assert.Equal(t, "3m", l.Duration)
		assert.Equal(t, "sick", l.ParentReason)
		assert.False(t, l.Attempt2Time.Valid)
	})
}

func TestUpdate_Validate(t *testing.T) {
	validate := validator.New()

	u := Update{Status: " Received ", TalkedWith: "FATHER"}
	require.NoError(t, u.Validate(validate))
	assert.Equal(t, StatusReceived, u.Status)

	u = Update{Status: "maybe"}
	assert.Error(t, u.Validate(validate))

	u = Update{TalkedWith: "neighbour"}
	assert.Error(t, u.Validate(validate))
}

func TestTally(t *testing.T) {
	var received, notReceived, pending Lifecycle
	received.Record(Update{Status: StatusReceived}, time.Now(), AutoNotReceived)
	notReceived.Record(Update{Status: StatusNotReceived}, time.Now(), ExplicitNotReceived)
	notReceived.MessageSent = true

	s := Tally([]Lifecycle{received, notReceived, pending})
	assert.Equal(t, Stats{Total: 3, Done: 2, Received: 1, NotReceived: 1, MessageSent: 1}, s)
	assert.Equal(t, 1, s.Pending())
	assert.Equal(t, 5, TotalCalls([]MentorStat{{Mentor: "A", Total: 2}, {Mentor: "B", Total: 3}}))
}
