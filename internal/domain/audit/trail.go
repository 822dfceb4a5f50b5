package audit

import (
	"encoding/json"
	"sort"
	"strings"
)

// TrailEntry is the trail viewer's projection of one audit entry: the raw
// JSONB values are flattened into display strings and the revert affordance
// is precomputed.
type TrailEntry struct {
	*AuditLogEntry
	OldDisplay string `json:"old_display,omitempty"`
	NewDisplay string `json:"new_display,omitempty"`
	CanRevert  bool   `json:"can_revert"`
}

// TrailDay groups one local calendar day of activity.
type TrailDay struct {
	Date    string       `json:"date"` // 2006-01-02
	Entries []TrailEntry `json:"entries"`
}

// BuildTrail groups entries by the local calendar day of their timestamp.
// Days are ordered newest first, and entries within a day newest first.
func BuildTrail(entries []*AuditLogEntry) []TrailDay {
	byDay := map[string][]TrailEntry{}
	for _, e := range entries {
		day := e.CreatedAt.Local().Format("2006-01-02")
		byDay[day] = append(byDay[day], TrailEntry{
			AuditLogEntry: e,
			OldDisplay:    stringifyValue(e.OldValue),
			NewDisplay:    stringifyValue(e.NewValue),
			CanRevert:     e.RevertEligible(),
		})
	}

	days := make([]string, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(days)))

	trail := make([]TrailDay, 0, len(days))
	for _, day := range days {
		dayEntries := byDay[day]
		sort.Slice(dayEntries, func(i, j int) bool {
			return dayEntries[i].CreatedAt.After(dayEntries[j].CreatedAt)
		})
		trail = append(trail, TrailDay{Date: day, Entries: dayEntries})
	}
	return trail
}

// stringifyValue renders a stored JSONB value as a flat human-readable
// string. Objects become "key: value" pairs in key order; scalars are
// rendered as themselves.
func stringifyValue(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var obj map[string]interface{}
	if err := json.Unmarshal(raw, &obj); err == nil {
		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var parts []string
		for _, k := range keys {
			v := obj[k]
			if v == nil {
				continue
			}
			parts = append(parts, k+": "+flatten(v))
		}
		return strings.Join(parts, ", ")
	}

	var scalar interface{}
	if err := json.Unmarshal(raw, &scalar); err == nil {
		return flatten(scalar)
	}
	return string(raw)
}

func flatten(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	default:
		raw, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(raw)
	}
}
