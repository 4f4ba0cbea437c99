package models

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat"
)

type RatingEntryKind int

const (
	// RatingEntryInvalid covers null, non-numeric and non-finite entries.
	RatingEntryInvalid RatingEntryKind = iota
	// RatingEntryScore is a bare number, e.g. 4.
	RatingEntryScore
	// RatingEntryRecord is an object carrying a rating field, e.g. {"rating": 4}.
	RatingEntryRecord
)

// RatingEntry is one event of a rating log. The log has held both bare scores
// and objects over time, so the raw JSON is kept and written back verbatim.
type RatingEntry struct {
	kind  RatingEntryKind
	score float64
	raw   json.RawMessage
}

// ScoreEntry builds the bare numeric form used for new ratings.
func ScoreEntry(score float64) RatingEntry {
	return RatingEntry{
		kind:  RatingEntryScore,
		score: score,
		raw:   json.RawMessage(strconv.FormatFloat(score, 'f', -1, 64)),
	}
}

func (e RatingEntry) Kind() RatingEntryKind {
	return e.kind
}

// Score returns the numeric value and whether the entry counts at all.
func (e RatingEntry) Score() (float64, bool) {
	if e.kind == RatingEntryInvalid {
		return 0, false
	}
	return e.score, true
}

func (e RatingEntry) MarshalJSON() ([]byte, error) {
	if len(e.raw) == 0 {
		return []byte("null"), nil
	}
	return e.raw, nil
}

func (e *RatingEntry) UnmarshalJSON(data []byte) error {
	e.raw = append(json.RawMessage(nil), data...)
	e.kind, e.score = RatingEntryInvalid, 0

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var rec struct {
			Rating json.RawMessage `json:"rating"`
		}
		if err := json.Unmarshal(trimmed, &rec); err != nil {
			return nil
		}
		if v, ok := scalarScore(rec.Rating); ok {
			e.kind, e.score = RatingEntryRecord, v
		}
		return nil
	}
	if v, ok := scalarScore(trimmed); ok {
		e.kind, e.score = RatingEntryScore, v
	}
	return nil
}

// scalarScore accepts JSON numbers and numeric strings; anything else,
// including NaN and infinities, does not count.
func scalarScore(data json.RawMessage) (float64, bool) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return 0, false
	}
	var v float64
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return 0, false
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		v = f
	default:
		if err := json.Unmarshal(data, &v); err != nil {
			return 0, false
		}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// RatingLog maps a normalized owner email to its rating events.
type RatingLog map[string][]RatingEntry

type RatingAggregate struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
	Sum     float64 `json:"sum"`
	Stars   string  `json:"stars"`
}

// AggregateRatings skips entries that do not count. Average is rounded to one
// decimal place and is 0 when there is nothing to average.
func AggregateRatings(entries []RatingEntry) RatingAggregate {
	scores := make([]float64, 0, len(entries))
	var sum float64
	for _, e := range entries {
		if v, ok := e.Score(); ok {
			scores = append(scores, v)
			sum += v
		}
	}
	if len(scores) == 0 {
		return RatingAggregate{}
	}
	avg := math.Round(stat.Mean(scores, nil)*10) / 10
	return RatingAggregate{
		Average: avg,
		Count:   len(scores),
		Sum:     sum,
		Stars:   Stars(avg),
	}
}

// Stars renders an average as five filled/empty stars.
func Stars(avg float64) string {
	r := int(math.Round(avg))
	var b strings.Builder
	for i := 1; i <= 5; i++ {
		if i <= r {
			b.WriteString("★")
		} else {
			b.WriteString("☆")
		}
	}
	return b.String()
}
