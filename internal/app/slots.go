package app

import (
	"context"
	"time"

	"availability-service/internal/rule"
)

// Slot DTO
type Slot struct {
	StartUTC time.Time `json:"start_utc"`
	EndUTC   time.Time `json:"end_utc"`
}

// defaultSlotLengthMins is used for rules stored without a slot length.
const defaultSlotLengthMins = 30

// GenerateAvailableSlots expands a user's enabled rule strings into bookable
// slots in UTC between from/to inclusive, then removes slots that already
// have a confirmed booking. A malformed date or time clause in a stored rule
// surfaces as a rule.ParseError.
func (a *App) GenerateAvailableSlots(ctx context.Context, userID string, fromUTC, toUTC time.Time) ([]Slot, error) {
	rules, err := a.ListAvailabilityRules(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(rules) == 0 {
		return nil, nil
	}

	candidateSlots, err := ExpandRuleSlots(rules, fromUTC, toUTC)
	if err != nil {
		return nil, err
	}

	// remove slots that have confirmed bookings
	bookings, err := a.ListBookingsInRange(ctx, userID, fromUTC.Add(-1*time.Hour), toUTC.Add(1*time.Hour))
	if err != nil {
		return nil, err
	}
	bookedMap := map[int64]struct{}{}
	for _, b := range bookings {
		bookedMap[b.StartAtUTC.Unix()] = struct{}{}
	}

	var available []Slot
	for _, s := range candidateSlots {
		if _, ok := bookedMap[s.StartUTC.Unix()]; !ok {
			available = append(available, s)
		}
	}
	return available, nil
}

// ExpandRuleSlots walks each day between fromUTC and toUTC and steps
// candidate slot starts through it, keeping slots whose start and end
// instants both satisfy the rule string. Slots from different rules are
// deduplicated by start instant.
func ExpandRuleSlots(rules []AvailabilityRule, fromUTC, toUTC time.Time) ([]Slot, error) {
	var slots []Slot
	seen := map[int64]struct{}{}

	startDate := fromUTC.Truncate(24 * time.Hour)
	endDate := toUTC.Truncate(24 * time.Hour)

	for day := startDate; !day.After(endDate); day = day.Add(24 * time.Hour) {
		nextDay := day.Add(24 * time.Hour)
		for _, r := range rules {
			if !r.Enabled {
				continue
			}
			slotLen := time.Duration(r.SlotLengthMins) * time.Minute
			if slotLen <= 0 {
				slotLen = defaultSlotLengthMins * time.Minute
			}
			for s := day; s.Before(nextDay); s = s.Add(slotLen) {
				startUTC := s
				endUTC := s.Add(slotLen)
				if !endUTC.After(fromUTC) || !startUTC.Before(toUTC) {
					continue
				}
				if _, dup := seen[startUTC.Unix()]; dup {
					continue
				}
				ok, err := rule.IsAvailable(startUTC, r.Rule)
				if err != nil {
					return nil, err
				}
				if !ok {
					continue
				}
				// the whole slot must be inside the window, so the
				// inclusive end instant has to match as well
				ok, err = rule.IsAvailable(endUTC, r.Rule)
				if err != nil {
					return nil, err
				}
				if !ok {
					continue
				}
				seen[startUTC.Unix()] = struct{}{}
				slots = append(slots, Slot{StartUTC: startUTC, EndUTC: endUTC})
			}
		}
	}
	return slots, nil
}
