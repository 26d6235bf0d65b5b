// Package grid models a matrix as a dates-by-time-slots grid of colored cells:
// slot generation, index mapping, the local edit overlay, save reconciliation,
// and statistics.
package grid

import (
	"time"

	"github.com/ryanbastic/go-chronos/internal/model"
)

// Layout is the addressable shape of one matrix config. Rows are dates and
// columns are time slots.
type Layout struct {
	Config    model.MatrixConfig
	Dates     []time.Time
	TimeSlots []string
}

// NewLayout expands a config into its dates and time slots. Malformed configs
// yield an empty layout rather than an error.
func NewLayout(cfg model.MatrixConfig) Layout {
	return Layout{
		Config:    cfg,
		Dates:     GenerateDates(cfg.StartDate, cfg.EndDate),
		TimeSlots: GenerateTimeSlots(cfg.StartTime, cfg.EndTime, cfg.Interval),
	}
}

// GenerateDates returns one UTC midnight per calendar day from start to end
// inclusive, ascending.
func GenerateDates(start, end string) []time.Time {
	from, err := model.ParseDate(start)
	if err != nil {
		return nil
	}
	to, err := model.ParseDate(end)
	if err != nil || from.After(to) {
		return nil
	}
	dates := make([]time.Time, 0, model.DaysBetween(from, to)+1)
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	return dates
}

// GenerateTimeSlots returns the HH:mm start of every full interval between
// start (inclusive) and end. A trailing partial interval is dropped.
func GenerateTimeSlots(start, end string, interval int) []string {
	if interval <= 0 {
		return nil
	}
	from, err := model.ParseClock(start)
	if err != nil {
		return nil
	}
	to, err := model.ParseClock(end)
	if err != nil || from >= to {
		return nil
	}
	slots := make([]string, 0, (to-from)/interval)
	for m := from; m+interval <= to; m += interval {
		slots = append(slots, model.FormatClock(m))
	}
	return slots
}

// TotalCells derives the cell count of a config without materializing slots.
func TotalCells(cfg model.MatrixConfig) int {
	if cfg.Interval <= 0 {
		return 0
	}
	from, err := model.ParseDate(cfg.StartDate)
	if err != nil {
		return 0
	}
	to, err := model.ParseDate(cfg.EndDate)
	if err != nil || from.After(to) {
		return 0
	}
	start, err := model.ParseClock(cfg.StartTime)
	if err != nil {
		return 0
	}
	end, err := model.ParseClock(cfg.EndTime)
	if err != nil || start >= end {
		return 0
	}
	return (model.DaysBetween(from, to) + 1) * ((end - start) / cfg.Interval)
}

// NumColumns is the number of time slots per date row.
func (l Layout) NumColumns() int { return len(l.TimeSlots) }

// NumRows is the number of dates.
func (l Layout) NumRows() int { return len(l.Dates) }

// TotalCells is the size of the index space.
func (l Layout) TotalCells() int { return len(l.Dates) * len(l.TimeSlots) }

// Contains reports whether index addresses a cell of this layout.
func (l Layout) Contains(index int) bool {
	return index >= 0 && index < l.TotalCells()
}

// Index maps a (date row, slot column) pair to a flat cell index.
func (l Layout) Index(row, col int) (int, bool) {
	if row < 0 || row >= l.NumRows() || col < 0 || col >= l.NumColumns() {
		return 0, false
	}
	return ToIndex(row, col, l.NumColumns()), true
}

// Coordinate maps a flat cell index back to its date and slot label.
func (l Layout) Coordinate(index int) (time.Time, string, bool) {
	if !l.Contains(index) {
		return time.Time{}, "", false
	}
	row, col := FromIndex(index, l.NumColumns())
	return l.Dates[row], l.TimeSlots[col], true
}

// SlotEnd is the display label for the end of a slot column.
func (l Layout) SlotEnd(col int) string {
	if col < 0 || col >= l.NumColumns() {
		return ""
	}
	start, err := model.ParseClock(l.TimeSlots[col])
	if err != nil {
		return ""
	}
	return model.FormatClock(start + l.Config.Interval)
}
