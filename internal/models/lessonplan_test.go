package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeekdayIndex(t *testing.T) {
	assert.Equal(t, 0, WeekdayIndex("Monday"))
	assert.Equal(t, 0, WeekdayIndex(" monday "))
	assert.Equal(t, 4, WeekdayIndex("FRIDAY"))
	assert.Equal(t, 6, WeekdayIndex("Sunday"))
	assert.Equal(t, -1, WeekdayIndex("Blursday"))
	assert.Equal(t, -1, WeekdayIndex(""))
}

func TestNormalizeLessonPlanWeekDedupesDates(t *testing.T) {
	week := NormalizeLessonPlanWeek(map[string]interface{}{
		"week":  float64(1),
		"month": "September",
		"days": []interface{}{
			map[string]interface{}{"date": "2025-09-01", "dayName": "Monday", "topic": "first"},
			map[string]interface{}{"date": "2025-09-01", "dayName": "Monday", "topic": "duplicate"},
			map[string]interface{}{"date": "2025-09-03", "day": "Wednesday"},
			map[string]interface{}{"date": "2025-09-05"},
		},
	})
	require.Len(t, week.Days, 2)
	// First occurrence wins for a repeated calendar date.
	assert.Equal(t, "first", week.Days[0].Topic)
	// The short "day" field backfills the day name.
	assert.Equal(t, "Wednesday", week.Days[1].DayName)
}

func TestDecodeLessonPlanWeeks(t *testing.T) {
	raw := json.RawMessage(`{
		"weeks": {
			"-Na1": {"weekNumber": "1", "days": [{"dayName": "Monday"}]},
			"-Nb2": {"week": 2, "days": [{"dayName": "Tuesday"}]}
		}
	}`)
	weeks := DecodeLessonPlanWeeks(raw)
	require.Len(t, weeks, 2)
	assert.Equal(t, 1, weeks[0].Week)
	assert.Equal(t, 2, weeks[1].Week)
}

func TestDecodeLessonPlanWeeksTolerance(t *testing.T) {
	assert.Nil(t, DecodeLessonPlanWeeks(nil))
	assert.Nil(t, DecodeLessonPlanWeeks(json.RawMessage(`null`)))
	assert.Nil(t, DecodeLessonPlanWeeks(json.RawMessage(`"oops"`)))
	assert.Empty(t, DecodeLessonPlanWeeks(json.RawMessage(`{"weeks": {}}`)))
}

func TestSubmissionKeyShape(t *testing.T) {
	assert.Equal(t, "t1:4_A_Maths:3:Friday", SubmissionKey("t1", "4_A_Maths", 3, "Friday"))
}
