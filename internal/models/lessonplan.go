package models

import (
	"encoding/json"
	"strconv"
	"strings"
)

// DayStatus is the derived state of one lesson-plan day. It is never stored;
// derivation from the submission set must stay pure.
type DayStatus string

const (
	DayStatusPending   DayStatus = "pending"
	DayStatusSubmitted DayStatus = "submitted"
	DayStatusMissed    DayStatus = "missed"
)

// DayPlan is a single planned teaching day inside a lesson-plan week.
type DayPlan struct {
	Date       string `json:"date"`
	DayName    string `json:"day_name"`
	Topic      string `json:"topic"`
	Method     string `json:"method,omitempty"`
	Aids       string `json:"aids,omitempty"`
	Assessment string `json:"assessment,omitempty"`
}

// LessonPlanWeek groups the day plans of one academic week.
type LessonPlanWeek struct {
	Week  int       `json:"week"`
	Month string    `json:"month,omitempty"`
	Topic string    `json:"topic,omitempty"`
	Days  []DayPlan `json:"days"`
}

// WeekPointer is the advisory "current week" cursor persisted per
// (user, course, academic year). It is a cache, not a source of truth.
type WeekPointer struct {
	PointerIndex int `json:"pointer_index"`
	LastISOWeek  int `json:"last_iso_week"`
}

// DayStatusRow pairs a day plan with its derived status.
type DayStatusRow struct {
	DayPlan
	Status DayStatus `json:"status"`
}

// WeekStatus summarises one week's derived day statuses.
type WeekStatus struct {
	Week      int            `json:"week"`
	Month     string         `json:"month,omitempty"`
	Topic     string         `json:"topic,omitempty"`
	Days      []DayStatusRow `json:"days"`
	Submitted int            `json:"submitted"`
	Missed    int            `json:"missed"`
	Pending   int            `json:"pending"`
}

// MonthStatus rolls week counts up per calendar month.
type MonthStatus struct {
	Month     string `json:"month"`
	Submitted int    `json:"submitted"`
	Missed    int    `json:"missed"`
	Pending   int    `json:"pending"`
}

var weekdayIndexes = map[string]int{
	"monday":    0,
	"tuesday":   1,
	"wednesday": 2,
	"thursday":  3,
	"friday":    4,
	"saturday":  5,
	"sunday":    6,
}

// WeekdayIndex maps a day name to its Monday-based index, -1 when unknown.
func WeekdayIndex(dayName string) int {
	if idx, ok := weekdayIndexes[strings.ToLower(strings.TrimSpace(dayName))]; ok {
		return idx
	}
	return -1
}

// NormalizeLessonPlanWeek builds a LessonPlanWeek from a raw mirror record.
// At most one day plan per calendar date is kept (first occurrence wins).
func NormalizeLessonPlanWeek(rec map[string]interface{}) LessonPlanWeek {
	week := LessonPlanWeek{
		Week:  pickInt(rec, "week", "weekNumber"),
		Month: pickString(rec, "month"),
		Topic: pickString(rec, "topic", "title"),
	}
	seenDates := make(map[string]struct{})
	for _, day := range collectionValues(rec["days"]) {
		plan := DayPlan{
			Date:       pickString(day, "date"),
			DayName:    pickString(day, "dayName", "day"),
			Topic:      pickString(day, "topic", "title"),
			Method:     pickString(day, "method"),
			Aids:       pickString(day, "aids", "teachingAids"),
			Assessment: pickString(day, "assessment"),
		}
		if plan.DayName == "" {
			continue
		}
		if plan.Date != "" {
			if _, dup := seenDates[plan.Date]; dup {
				continue
			}
			seenDates[plan.Date] = struct{}{}
		}
		week.Days = append(week.Days, plan)
	}
	return week
}

// DecodeLessonPlanWeeks parses one LessonPlans record (keyed by
// teacherKey and course id) into its ordered list of weeks.
func DecodeLessonPlanWeeks(raw json.RawMessage) []LessonPlanWeek {
	if len(raw) == 0 {
		return nil
	}
	var rec map[string]interface{}
	if err := json.Unmarshal(raw, &rec); err != nil || rec == nil {
		return nil
	}
	records := collectionValues(rec["weeks"])
	weeks := make([]LessonPlanWeek, 0, len(records))
	for _, wr := range records {
		weeks = append(weeks, NormalizeLessonPlanWeek(wr))
	}
	return weeks
}

func pickInt(rec map[string]interface{}, keys ...string) int {
	for _, key := range keys {
		switch v := rec[key].(type) {
		case float64:
			return int(v)
		case string:
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				return n
			}
		}
	}
	return 0
}
