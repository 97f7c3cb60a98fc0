package storage

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// TimeFormat is the fixed-width layout of CreatedOn values, so that string
// order equals time order
const TimeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// FormatTime renders t in TimeFormat (UTC)
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeFormat)
}

// ParseTime accepts TimeFormat as well as plain RFC3339 values
func ParseTime(v interface{}) (time.Time, bool) {
	switch val := v.(type) {
	case time.Time:
		return val, true
	case string:
		if t, err := time.Parse(time.RFC3339Nano, val); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Matches reports whether the record satisfies every condition
func Matches(rec Record, where []Condition) bool {
	for _, cond := range where {
		if !matchCondition(rec, cond) {
			return false
		}
	}
	return true
}

func matchCondition(rec Record, cond Condition) bool {
	value, exists := rec[cond.FieldName]
	if !exists && cond.FieldName == FieldIsDeleted {
		value = false
	}
	switch cond.Operator {
	case OperatorExactMatch, "":
		for _, want := range cond.Values {
			if sameValue(value, want) {
				return true
			}
		}
		return false
	default:
		// Unsupported operators never match
		return false
	}
}

func sameValue(a, b interface{}) bool {
	return fmt.Sprint(a) == fmt.Sprint(b)
}

// Project copies the selected fields of rec. An empty selection copies all
// fields except IsDeleted. Id is always included.
func Project(rec Record, fields []string) Record {
	out := make(Record, len(fields)+1)
	if len(fields) == 0 {
		for k, v := range rec {
			if k == FieldIsDeleted {
				continue
			}
			out[k] = v
		}
		return out
	}
	out[FieldID] = rec[FieldID]
	for _, f := range fields {
		if v, ok := rec[f]; ok {
			out[f] = v
		}
	}
	return out
}

// SortRecords orders records in place by the given clauses
func SortRecords(records []Record, orderBy []OrderBy) {
	if len(orderBy) == 0 {
		return
	}
	sort.SliceStable(records, func(i, j int) bool {
		for _, ob := range orderBy {
			c := compareValues(records[i][ob.Field], records[j][ob.Field])
			if c == 0 {
				continue
			}
			if strings.EqualFold(ob.Direction, DirectionDesc) {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

func compareValues(a, b interface{}) int {
	if ta, ok := ParseTime(a); ok {
		if tb, ok := ParseTime(b); ok {
			return ta.Compare(tb)
		}
	}
	if fa, ok := a.(float64); ok {
		if fb, ok := b.(float64); ok {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			}
			return 0
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

// cloneRecord copies the top level of a record
func cloneRecord(rec Record) Record {
	out := make(Record, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out
}
