package model

import "time"

// DefaultCapacityHours is used for cells whose capacity is left unset.
const DefaultCapacityHours = 8.0

// Cell is a shared production resource with one daily throughput limit.
type Cell struct {
	ID                  string  `json:"id" yaml:"id"`
	Name                string  `json:"name,omitempty" yaml:"name,omitempty"`
	CapacityHoursPerDay float64 `json:"capacity_hours_per_day" yaml:"capacity_hours_per_day"`
}

// WithDefaults returns the cell with an unset capacity replaced by
// DefaultCapacityHours. Negative capacities are left untouched so they can be
// reported as configuration errors.
func (c Cell) WithDefaults() Cell {
	if c.CapacityHoursPerDay == 0 {
		c.CapacityHoursPerDay = DefaultCapacityHours
	}
	return c
}

// DayType classifies a calendar override.
type DayType string

const (
	DayWorking DayType = "working"
	DayHoliday DayType = "holiday"
	DayClosure DayType = "closure"
	DayHalf    DayType = "half_day"
)

// Valid reports whether t is a known day type.
func (t DayType) Valid() bool {
	switch t {
	case DayWorking, DayHoliday, DayClosure, DayHalf:
		return true
	}
	return false
}

// Closed reports whether the day type removes the date from the working calendar.
func (t DayType) Closed() bool { return t == DayHoliday || t == DayClosure }

// DefaultMultiplier returns the capacity multiplier applied when an override
// does not carry one explicitly.
func (t DayType) DefaultMultiplier() float64 {
	switch t {
	case DayHoliday, DayClosure:
		return 0
	case DayHalf:
		return 0.5
	default:
		return 1
	}
}

// CalendarDay overrides the default working pattern for one date.
type CalendarDay struct {
	Date               Date       `json:"date" yaml:"date"`
	DayType            DayType    `json:"day_type" yaml:"day_type"`
	CapacityMultiplier *float64   `json:"capacity_multiplier,omitempty" yaml:"capacity_multiplier,omitempty"`
	OpeningTime        *TimeOfDay `json:"opening_time,omitempty" yaml:"opening_time,omitempty"`
	ClosingTime        *TimeOfDay `json:"closing_time,omitempty" yaml:"closing_time,omitempty"`
	Name               string     `json:"name,omitempty" yaml:"name,omitempty"`
}

// Multiplier returns the explicit multiplier or the default for the day type.
func (c CalendarDay) Multiplier() float64 {
	if c.CapacityMultiplier != nil {
		return *c.CapacityMultiplier
	}
	return c.DayType.DefaultMultiplier()
}

// Weekdays is a bitmask over weekdays, Monday=1 through Sunday=64.
type Weekdays uint8

const (
	Monday Weekdays = 1 << iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday

	MondayToFriday = Monday | Tuesday | Wednesday | Thursday | Friday
	AllWeekdays    = MondayToFriday | Saturday | Sunday
)

// WeekdayBit returns the mask bit for a time.Weekday.
func WeekdayBit(d time.Weekday) Weekdays {
	if d == time.Sunday {
		return Sunday
	}
	return Weekdays(1) << (int(d) - 1)
}

// Has reports whether the weekday bit is set.
func (w Weekdays) Has(d time.Weekday) bool { return w&WeekdayBit(d) != 0 }

// Valid reports whether the mask selects at least one day and no unknown bits.
func (w Weekdays) Valid() bool { return w != 0 && w&^AllWeekdays == 0 }

// WorkingDaysConfig is the tenant's default working pattern.
type WorkingDaysConfig struct {
	Mask           Weekdays  `json:"mask" yaml:"mask"`
	DefaultOpening TimeOfDay `json:"default_opening_time" yaml:"default_opening_time"`
	DefaultClosing TimeOfDay `json:"default_closing_time" yaml:"default_closing_time"`
}

// DefaultWorkingDays is Monday to Friday, 08:00 to 17:00.
func DefaultWorkingDays() WorkingDaysConfig {
	return WorkingDaysConfig{
		Mask:           MondayToFriday,
		DefaultOpening: 8 * 60,
		DefaultClosing: 17 * 60,
	}
}
