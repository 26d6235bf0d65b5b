package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// DateLayout is the wire format of matrix dates.
	DateLayout = "2006-01-02"
	// ClockLayout is the wire format of matrix times of day.
	ClockLayout = "15:04"

	// MaxMatrixDays bounds the date range of a matrix.
	MaxMatrixDays = 366
	// MaxIntervalMinutes bounds the slot width.
	MaxIntervalMinutes = 720
)

// MatrixConfig describes the temporal shape of a matrix. It is immutable once
// the matrix exists and is comparable, so it can key caches.
type MatrixConfig struct {
	MatrixID  uuid.UUID `json:"matrixId"`
	StartDate string    `json:"startDate"`
	EndDate   string    `json:"endDate"`
	StartTime string    `json:"startTime"`
	EndTime   string    `json:"endTime"`
	Interval  int       `json:"interval"`
}

// Matrix is a user-owned grid of dates by time slots.
type Matrix struct {
	ID        uuid.UUID    `json:"id"`
	OwnerID   uuid.UUID    `json:"-"`
	Name      string       `json:"name"`
	Config    MatrixConfig `json:"config"`
	CreatedAt time.Time    `json:"createdAt"`
}

// NewMatrix is the creation request for a matrix.
type NewMatrix struct {
	Name      string `json:"name"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Interval  int    `json:"interval"`
}

// Config returns the temporal shape of the request.
func (n NewMatrix) Config() MatrixConfig {
	return MatrixConfig{
		StartDate: n.StartDate,
		EndDate:   n.EndDate,
		StartTime: n.StartTime,
		EndTime:   n.EndTime,
		Interval:  n.Interval,
	}
}

// ValidationError lists every problem found in a request, keyed by field.
type ValidationError struct {
	Fields map[string]string
}

var fieldOrder = []string{"name", "startDate", "endDate", "startTime", "endTime", "interval"}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.FieldNames() {
		parts = append(parts, f+": "+e.Fields[f])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// FieldNames lists the invalid fields in request order.
func (e *ValidationError) FieldNames() []string {
	names := make([]string, 0, len(e.Fields))
	for _, f := range fieldOrder {
		if _, ok := e.Fields[f]; ok {
			names = append(names, f)
		}
	}
	return names
}

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

// Normalized trims the name and rewrites dates and times in canonical form.
// Unparseable values are left as they are for Validate to report.
func (n NewMatrix) Normalized() NewMatrix {
	n.Name = strings.TrimSpace(n.Name)
	if d, err := ParseDate(n.StartDate); err == nil {
		n.StartDate = d.Format(DateLayout)
	}
	if d, err := ParseDate(n.EndDate); err == nil {
		n.EndDate = d.Format(DateLayout)
	}
	if m, err := ParseClock(n.StartTime); err == nil {
		n.StartTime = FormatClock(m)
	}
	if m, err := ParseClock(n.EndTime); err == nil {
		n.EndTime = FormatClock(m)
	}
	return n
}

// Validate checks a creation request. It returns a *ValidationError.
func (n NewMatrix) Validate() error {
	var verr ValidationError
	if strings.TrimSpace(n.Name) == "" {
		verr.add("name", "must not be empty")
	}
	if err := n.Config().Validate(); err != nil {
		var cfgErr *ValidationError
		if errors.As(err, &cfgErr) {
			for f, msg := range cfgErr.Fields {
				verr.add(f, msg)
			}
		}
	}
	if len(verr.Fields) > 0 {
		return &verr
	}
	return nil
}

// Validate checks the invariants of a matrix shape. It returns a *ValidationError.
func (c MatrixConfig) Validate() error {
	var verr ValidationError

	start, startErr := ParseDate(c.StartDate)
	if startErr != nil {
		verr.add("startDate", "must be a YYYY-MM-DD date")
	}
	end, endErr := ParseDate(c.EndDate)
	if endErr != nil {
		verr.add("endDate", "must be a YYYY-MM-DD date")
	}
	if startErr == nil && endErr == nil {
		switch days := DaysBetween(start, end); {
		case days < 0:
			verr.add("endDate", "cannot be before start date")
		case days+1 > MaxMatrixDays:
			verr.add("endDate", fmt.Sprintf("range cannot exceed %d days", MaxMatrixDays))
		}
	}

	from, fromErr := ParseClock(c.StartTime)
	if fromErr != nil {
		verr.add("startTime", "must be an HH:mm time")
	}
	to, toErr := ParseClock(c.EndTime)
	if toErr != nil {
		verr.add("endTime", "must be an HH:mm time")
	}
	if fromErr == nil && toErr == nil && from >= to {
		verr.add("endTime", "must be after start time")
	}

	switch {
	case c.Interval < 1 || c.Interval > MaxIntervalMinutes:
		verr.add("interval", fmt.Sprintf("must be between 1 and %d minutes", MaxIntervalMinutes))
	case fromErr == nil && toErr == nil && from < to && to-from < c.Interval:
		verr.add("interval", "must fit at least once between start and end time")
	}

	if len(verr.Fields) > 0 {
		return &verr
	}
	return nil
}

// ParseDate parses a YYYY-MM-DD date at UTC midnight.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, strings.TrimSpace(s))
}

// ParseClock parses an HH:mm time of day into minutes after midnight.
func ParseClock(s string) (int, error) {
	t, err := time.Parse(ClockLayout, strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

// FormatClock renders minutes after midnight as HH:mm, wrapping past midnight.
func FormatClock(minutes int) string {
	minutes = ((minutes % 1440) + 1440) % 1440
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// DaysBetween returns the number of calendar days from start to end.
func DaysBetween(start, end time.Time) int {
	return int(end.Sub(start).Hours() / 24)
}
