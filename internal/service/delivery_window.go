package service

import (
	"errors"
	"fmt"
	"time"
)

// MinimumLeadTime is the shortest allowed gap between placing an order and
// the close of its delivery window. Fresh stock is prepared to order, so
// same-hour deliveries cannot be honored.
const MinimumLeadTime = 4 * time.Hour

const deliveryDateLayout = "2006-01-02"

type deliveryWindow struct {
	startHour int
	endHour   int
}

// The three fixed delivery windows offered at checkout.
var deliveryWindows = map[string]deliveryWindow{
	"08:00-12:00": {startHour: 8, endHour: 12},
	"12:00-16:00": {startHour: 12, endHour: 16},
	"16:00-20:00": {startHour: 16, endHour: 20},
}

var (
	ErrInvalidSlot = errors.New("unrecognized delivery slot")
	ErrInvalidDate = errors.New("invalid delivery date")
	ErrPastDate    = errors.New("delivery date is in the past")
)

// LeadTimeError reports a requested window that closes before the earliest
// instant we can deliver. Minimum is surfaced to the client so it can suggest
// the next workable slot.
type LeadTimeError struct {
	Minimum time.Time
}

func (e LeadTimeError) Error() string {
	return fmt.Sprintf("delivery window closes before the earliest delivery time %s", e.Minimum.Format(time.RFC3339))
}

// ValidateDeliveryWindow checks a requested delivery date and slot against
// the lead-time rule. Both the past-date check and the lead-time check always
// run; a same-day late slot must not slip through on the date check alone.
// On success it returns the minimum allowed delivery instant for display.
func ValidateDeliveryWindow(now time.Time, date, slot string) (time.Time, error) {
	window, ok := deliveryWindows[slot]
	if !ok {
		return time.Time{}, ErrInvalidSlot
	}

	day, err := time.ParseInLocation(deliveryDateLayout, date, now.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q is not a YYYY-MM-DD date", ErrInvalidDate, date)
	}

	minimum := now.Add(MinimumLeadTime)

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if day.Before(today) {
		return time.Time{}, ErrPastDate
	}

	// The order is deliverable as long as the window is still open at the
	// cutoff, i.e. the window's closing instant is not before it.
	windowClose := time.Date(day.Year(), day.Month(), day.Day(), window.endHour, 0, 0, 0, now.Location())
	if windowClose.Before(minimum) {
		return time.Time{}, LeadTimeError{Minimum: minimum}
	}

	return minimum, nil
}

// DeliverySlots lists the recognized slot labels, for client display.
func DeliverySlots() []string {
	return []string{"08:00-12:00", "12:00-16:00", "16:00-20:00"}
}
