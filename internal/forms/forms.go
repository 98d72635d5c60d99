// Package forms builds declarative form specifications for the two modal
// intents the bot supports: the weekly office plan and a time-off request.
// It also owns the day-slot field naming scheme shared with the submission
// reconciler, so the renderer and the parser cannot drift apart.
package forms

import "fmt"

// Week selectors carried as opaque form metadata.
const (
	WeekCurrent = "current"
	WeekNext    = "next"
)

// Callback identifiers routing a view submission to its reconciler.
const (
	CallbackWeeklyPlan = "weekly_plan"
	CallbackTimeOff    = "time_off"
)

// Location codes offered for every weekday.
const (
	LocationHome    = "home"
	LocationLondon  = "london"
	LocationPrague  = "prague"
	LocationTravel  = "travel"
	LocationTimeOff = "timeoff"
)

// Time-off field keys and their option codes.
const (
	FieldDate      = "date"
	FieldLeaveType = "leave_type"
	FieldDuration  = "duration"

	LeaveHoliday = "holiday"
	LeaveSick    = "sick"
	LeaveOther   = "other"

	DurationFull   = "full"
	DurationHalfAM = "half_am"
	DurationHalfPM = "half_pm"
)

// NumDaySlots is the number of weekday fields on the weekly plan form,
// Monday through Friday.
const NumDaySlots = 5

// FieldType distinguishes how a field is rendered and how its submitted
// value is extracted.
type FieldType string

const (
	FieldTypeSelect FieldType = "select"
	FieldTypeDate   FieldType = "date"
)

// Option is one choice in a single-choice field: a machine code plus a
// human label.
type Option struct {
	Code  string
	Label string
}

// Field is one required input on a form.
type Field struct {
	Key     string
	Label   string
	Type    FieldType
	Options []Option // nil for date fields
}

// FormSpec is a platform-agnostic form description. Metadata is opaque to
// the platform and is delivered back unchanged with the submission.
type FormSpec struct {
	CallbackID  string
	Title       string
	SubmitLabel string
	Metadata    string
	Fields      []Field
}

var dayLabels = [NumDaySlots]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}

// LocationCatalog is the fixed option list offered for every weekday.
var LocationCatalog = []Option{
	{Code: LocationHome, Label: "Home"},
	{Code: LocationLondon, Label: "London Office"},
	{Code: LocationPrague, Label: "Prague Office"},
	{Code: LocationTravel, Label: "Traveling"},
	{Code: LocationTimeOff, Label: "Time Off"},
}

// DaySlotKey returns the field key for weekday i (0 = Monday).
func DaySlotKey(i int) string {
	return fmt.Sprintf("day_%d", i)
}

// IsDaySlot reports whether key follows the day-slot naming scheme.
// Keys outside the scheme are ignored by the reconciler, which keeps the
// submission format forward-compatible with additional fields.
func IsDaySlot(key string) bool {
	for i := 0; i < NumDaySlots; i++ {
		if key == DaySlotKey(i) {
			return true
		}
	}
	return false
}

// NormalizeWeek coerces unrecognized week selectors to WeekCurrent. The
// reconciler only ever sees "current" or "next".
func NormalizeWeek(week string) string {
	if week == WeekNext {
		return WeekNext
	}
	return WeekCurrent
}

// BuildWeeklyPlanForm returns the weekly plan form for the given week
// selector: five required single-choice fields, one per weekday, all
// offering the same location catalog. The normalized week selector rides
// along as metadata.
func BuildWeeklyPlanForm(week string) FormSpec {
	week = NormalizeWeek(week)

	title := "Office plan (this week)"
	if week == WeekNext {
		title = "Office plan (next week)"
	}

	fields := make([]Field, NumDaySlots)
	for i := 0; i < NumDaySlots; i++ {
		fields[i] = Field{
			Key:     DaySlotKey(i),
			Label:   dayLabels[i],
			Type:    FieldTypeSelect,
			Options: LocationCatalog,
		}
	}

	return FormSpec{
		CallbackID:  CallbackWeeklyPlan,
		Title:       title,
		SubmitLabel: "Save",
		Metadata:    week,
		Fields:      fields,
	}
}

// BuildTimeOffForm returns the time-off request form: a date, a leave
// type, and a duration.
func BuildTimeOffForm() FormSpec {
	return FormSpec{
		CallbackID:  CallbackTimeOff,
		Title:       "Request time off",
		SubmitLabel: "Request",
		Fields: []Field{
			{Key: FieldDate, Label: "Date", Type: FieldTypeDate},
			{
				Key:   FieldLeaveType,
				Label: "Leave type",
				Type:  FieldTypeSelect,
				Options: []Option{
					{Code: LeaveHoliday, Label: "Holiday"},
					{Code: LeaveSick, Label: "Sick leave"},
					{Code: LeaveOther, Label: "Other"},
				},
			},
			{
				Key:   FieldDuration,
				Label: "Duration",
				Type:  FieldTypeSelect,
				Options: []Option{
					{Code: DurationFull, Label: "Full day"},
					{Code: DurationHalfAM, Label: "Half day (morning)"},
					{Code: DurationHalfPM, Label: "Half day (afternoon)"},
				},
			},
		},
	}
}
