package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRatingEntryShapes(t *testing.T) {
	tests := []struct {
		raw   string
		kind  RatingEntryKind
		score float64
	}{
		{`4`, RatingEntryScore, 4},
		{`3.5`, RatingEntryScore, 3.5},
		{`"2"`, RatingEntryScore, 2},
		{`" 5 "`, RatingEntryScore, 5},
		{`{"rating": 5}`, RatingEntryRecord, 5},
		{`{"rating": "4", "by": "guest"}`, RatingEntryRecord, 4},
		{`null`, RatingEntryInvalid, 0},
		{`""`, RatingEntryInvalid, 0},
		{`"five"`, RatingEntryInvalid, 0},
		{`true`, RatingEntryInvalid, 0},
		{`[4]`, RatingEntryInvalid, 0},
		{`{}`, RatingEntryInvalid, 0},
		{`{"rating": null}`, RatingEntryInvalid, 0},
		{`"NaN"`, RatingEntryInvalid, 0},
		{`"Inf"`, RatingEntryInvalid, 0},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			var e RatingEntry
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &e))
			assert.Equal(t, tt.kind, e.Kind())
			score, ok := e.Score()
			assert.Equal(t, tt.kind != RatingEntryInvalid, ok)
			assert.Equal(t, tt.score, score)

			out, err := json.Marshal(e)
			require.NoError(t, err)
			assert.JSONEq(t, tt.raw, string(out))
		})
	}
}

func TestAggregateRatings(t *testing.T) {
	var entries []RatingEntry
	require.NoError(t, json.Unmarshal([]byte(`[4, {"rating": 5}, null, 3]`), &entries))

	assert.Equal(t, RatingAggregate{Average: 4, Count: 3, Sum: 12, Stars: "★★★★☆"}, AggregateRatings(entries))
	assert.Equal(t, RatingAggregate{}, AggregateRatings(nil))

	thirds := []RatingEntry{ScoreEntry(4), ScoreEntry(4), ScoreEntry(5)}
	assert.Equal(t, 4.3, AggregateRatings(thirds).Average)
}

func TestStars(t *testing.T) {
	tests := []struct {
		avg  float64
		want string
	}{
		{0, "☆☆☆☆☆"},
		{1.4, "★☆☆☆☆"},
		{2.5, "★★★☆☆"},
		{5, "★★★★★"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Stars(tt.avg), "avg %v", tt.avg)
	}
}

func TestScoreEntryMarshalsBare(t *testing.T) {
	out, err := json.Marshal(RatingLog{"a@x.com": {ScoreEntry(4.5), ScoreEntry(3)}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a@x.com":[4.5,3]}`, string(out))
	assert.Equal(t, "null", string(must(json.Marshal(RatingEntry{}))))
}

func must(b []byte, err error) []byte {
	if err != nil {
		panic(err)
	}
	return b
}
