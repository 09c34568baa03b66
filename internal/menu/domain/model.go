package domain

import (
	"time"

	"gorm.io/datatypes"
)

type MealSlot string

const (
	MealSlotBreakfast MealSlot = "breakfast"
	MealSlotDinner    MealSlot = "dinner"
)

func (s MealSlot) Valid() bool {
	return s == MealSlotBreakfast || s == MealSlotDinner
}

type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
)

func (s Status) Valid() bool {
	return s == StatusDraft || s == StatusPublished
}

// DateLayout is the calendar date format used on the wire.
const DateLayout = "2006-01-02"

// Menu is one meal of one day in one city. MenuDate is always UTC midnight.
type Menu struct {
	ID          int64                       `gorm:"primaryKey"`
	City        string                      `gorm:"size:255;not null;uniqueIndex:ux_menus_city_date_slot,priority:1"`
	MenuDate    time.Time                   `gorm:"type:date;not null;uniqueIndex:ux_menus_city_date_slot,priority:2"`
	MealSlot    MealSlot                    `gorm:"size:16;not null;uniqueIndex:ux_menus_city_date_slot,priority:3"`
	Dishes      datatypes.JSONSlice[string] `gorm:"not null"`
	Calories    int                         `gorm:"not null"`
	Status      Status                      `gorm:"size:16;not null;index:ix_menus_status"`
	PublishedAt *time.Time
	AuthorID    string    `gorm:"type:text"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

func (Menu) TableName() string { return "menus" }

// MonthRange returns the half-open [first day, first day of next month) range in UTC.
func MonthRange(year int, month time.Month) (time.Time, time.Time) {
	from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 1, 0)
}

// CalendarDate returns the UTC midnight for (year, month, day), false when the day does not exist.
func CalendarDate(year int, month time.Month, day int) (time.Time, bool) {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || t.Month() != month || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(value string) (time.Time, bool) {
	t, err := time.ParseInLocation(DateLayout, value, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
