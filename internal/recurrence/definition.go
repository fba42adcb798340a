package recurrence

import (
	"time"

	"github.com/Dan9191/payoff-planner/internal/apperrors"
	"github.com/Dan9191/payoff-planner/internal/money"
)

// Cadence is how often a definition repeats.
type Cadence string

const (
	Weekly   Cadence = "weekly"
	Biweekly Cadence = "biweekly"
	Monthly  Cadence = "monthly"
	Yearly   Cadence = "yearly"
	Once     Cadence = "once"
)

// Kind classifies a cash event. Same-day events run in kind order.
type Kind string

const (
	Income       Kind = "income"
	Bill         Kind = "bill"
	Subscription Kind = "subscription"
	DebtMin      Kind = "debt_min"
)

// Precedence orders kinds on the same date: income, bill, subscription, debt minimum.
func (k Kind) Precedence() int {
	switch k {
	case Income:
		return 0
	case Bill:
		return 1
	case Subscription:
		return 2
	case DebtMin:
		return 3
	default:
		return 4
	}
}

// Definition is a recurring income stream, bill, subscription or debt minimum.
// Anchor is optional for every cadence except Once.
type Definition struct {
	ID         string        `json:"id" validate:"required"`
	Name       string        `json:"name"`
	Kind       Kind          `json:"kind" validate:"required,oneof=income bill subscription debt_min"`
	Amount     money.Cents   `json:"amount_cents" validate:"gte=0"`
	Cadence    Cadence       `json:"cadence" validate:"required,oneof=weekly biweekly monthly yearly once"`
	Interval   int           `json:"interval,omitempty" validate:"gte=0"`
	DayOfMonth int           `json:"day_of_month,omitempty" validate:"gte=0,lte=31"`
	Weekday    *time.Weekday `json:"weekday,omitempty"`
	Anchor     time.Time     `json:"anchor,omitempty"`
	Essential  bool          `json:"essential,omitempty"`
	Cancelable bool          `json:"cancelable,omitempty"`
}

// Event is one dated occurrence of a definition.
type Event struct {
	ID         string      `json:"id"`
	Date       time.Time   `json:"date"`
	Amount     money.Cents `json:"amount_cents"`
	Name       string      `json:"name"`
	Kind       Kind        `json:"kind"`
	Essential  bool        `json:"essential,omitempty"`
	Cancelable bool        `json:"cancelable,omitempty"`
}

// Validate rejects definitions that cannot be expanded.
func (d Definition) Validate() error {
	if d.ID == "" {
		return apperrors.Invalid("id", "definition id is required")
	}
	if d.Amount < 0 {
		return apperrors.Invalid("amount", "definition %s has negative amount %d", d.ID, d.Amount)
	}
	switch d.Kind {
	case Income, Bill, Subscription, DebtMin:
	default:
		return apperrors.Invalid("kind", "definition %s has unknown kind %q", d.ID, d.Kind)
	}
	switch d.Cadence {
	case Weekly, Biweekly, Monthly, Yearly:
	case Once:
		if d.Anchor.IsZero() {
			return apperrors.Invalid("anchor", "one-off definition %s needs a date", d.ID)
		}
	default:
		return apperrors.Invalid("cadence", "definition %s has unknown cadence %q", d.ID, d.Cadence)
	}
	if d.DayOfMonth < 0 || d.DayOfMonth > 31 {
		return apperrors.Invalid("day_of_month", "definition %s day %d outside 1..31", d.ID, d.DayOfMonth)
	}
	if d.Interval < 0 {
		return apperrors.Invalid("interval", "definition %s has negative interval", d.ID)
	}
	if d.Weekday != nil && (*d.Weekday < time.Sunday || *d.Weekday > time.Saturday) {
		return apperrors.Invalid("weekday", "definition %s has invalid weekday %d", d.ID, *d.Weekday)
	}
	// weekly phase comes from the anchor when both are set, so they must agree
	if d.Weekday != nil && !d.Anchor.IsZero() && (d.Cadence == Weekly || d.Cadence == Biweekly) &&
		Day(d.Anchor).Weekday() != *d.Weekday {
		return apperrors.Invalid("weekday", "definition %s weekday %s disagrees with anchor %s",
			d.ID, *d.Weekday, Day(d.Anchor).Format(time.DateOnly))
	}
	return nil
}

func (d Definition) event(date time.Time) Event {
	return Event{
		ID:         d.ID,
		Date:       date,
		Amount:     d.Amount,
		Name:       d.Name,
		Kind:       d.Kind,
		Essential:  d.Essential,
		Cancelable: d.Cancelable,
	}
}
