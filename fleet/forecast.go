package fleet

import (
	"sort"
	"time"
)

// DefaultServiceInterval applies until a machine has two services on record.
const DefaultServiceInterval = 180 * 24 * time.Hour

const day = 24 * time.Hour

// MaintenanceForecast predicts the next service from past maintenance.
type MaintenanceForecast struct {
	MachineryID     string
	Services        int
	LastService     time.Time // zero when there is no service on record
	AverageInterval time.Duration
	NextDue         time.Time
	DaysUntilDue    int // negative when overdue
	Overdue         bool
}

// Forecast projects the next maintenance date for m. With two or more
// services the average gap between them is used; otherwise
// DefaultServiceInterval is added to the last service, or to the purchase
// date (creation date as a last resort) when there is none.
func Forecast(m Machinery, records []SubRecord, asOf time.Time) MaintenanceForecast {
	var dates []time.Time
	for _, r := range records {
		if r.Kind == KindMaintenance && r.MachineryID == m.ID {
			dates = append(dates, truncateDay(r.Date))
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	f := MaintenanceForecast{
		MachineryID:     m.ID,
		Services:        len(dates),
		AverageInterval: DefaultServiceInterval,
	}

	base := m.PurchaseDate
	if base.IsZero() {
		base = m.CreatedAt
	}
	if base.IsZero() {
		base = asOf
	}

	if n := len(dates); n > 0 {
		f.LastService = dates[n-1]
		base = f.LastService
		if n > 1 {
			avg := dates[n-1].Sub(dates[0]) / time.Duration(n-1)
			if avg >= day {
				f.AverageInterval = avg.Round(day)
			}
		}
	}

	f.NextDue = truncateDay(base).Add(f.AverageInterval)
	today := truncateDay(asOf)
	f.DaysUntilDue = int(f.NextDue.Sub(today) / day)
	f.Overdue = f.NextDue.Before(today)
	return f
}

// Expiry is a sub-record whose validity ends within the reminder window.
type Expiry struct {
	Record   SubRecord
	DaysLeft int // negative when already expired
}

// Expiring returns insurance, inspection and tax records that expire on or
// before asOf+window, already-lapsed ones included, soonest first.
func Expiring(records []SubRecord, asOf time.Time, window time.Duration) []Expiry {
	today := truncateDay(asOf)
	limit := today.Add(window)

	var out []Expiry
	for _, r := range records {
		if !r.Kind.HasExpiry() || r.ExpiresAt == nil {
			continue
		}
		exp := truncateDay(*r.ExpiresAt)
		if exp.After(limit) {
			continue
		}
		out = append(out, Expiry{Record: r, DaysLeft: int(exp.Sub(today) / day)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DaysLeft < out[j].DaysLeft })
	return out
}

func truncateDay(t time.Time) time.Time {
	y, mo, d := t.Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
}
