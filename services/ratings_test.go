package services

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tailorfinder/storage"
)

func TestRecordRating(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "a@x.com", "p1")

	agg, err := f.svc.RecordRating(ctx, "A@x.com", 5)
	require.NoError(t, err)
	assert.Equal(t, 1, agg.Count)

	agg, err = f.svc.RecordRating(ctx, "a@x.com", 4)
	require.NoError(t, err)
	assert.Equal(t, 2, agg.Count)
	assert.Equal(t, 4.5, agg.Average)
	assert.Equal(t, agg, f.svc.Aggregate(ctx, " a@x.com"))

	raw, ok, err := f.store.Get(ctx, "tailorOwnerRatings_v1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"a@x.com":[5,4]}`, raw)
}

func TestRecordRatingRejects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "a@x.com", "p1")

	for _, score := range []float64{0, 5.5, -1, math.NaN(), math.Inf(1)} {
		_, err := f.svc.RecordRating(ctx, "a@x.com", score)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr, "score %v", score)
		assert.True(t, verr.Has("rating"))
	}

	_, err := f.svc.RecordRating(ctx, "ghost@x.com", 3)
	assert.ErrorIs(t, err, ErrOwnerNotFound)
	assert.Zero(t, f.svc.Aggregate(ctx, "a@x.com").Count)
}

func TestAggregateMixedEntries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Apply(ctx, storage.Put("tailorOwnerRatings_v1",
		`{"a@x.com":[4,{"rating":5},null,3]}`)))

	agg := f.svc.Aggregate(ctx, "a@x.com")
	assert.Equal(t, 3, agg.Count)
	assert.Equal(t, 4.0, agg.Average)
	assert.Equal(t, 12.0, agg.Sum)
	assert.Equal(t, "★★★★☆", agg.Stars)
}

func TestAggregateOrderIndependent(t *testing.T) {
	logs := []string{
		`{"a@x.com":[1,"2",{"rating":4},5]}`,
		`{"a@x.com":[5,{"rating":4},"2",1]}`,
		`{"a@x.com":[{"rating":4},1,5,"2"]}`,
	}
	var results []float64
	for _, log := range logs {
		f := newFixture(t)
		ctx := context.Background()
		require.NoError(t, f.store.Apply(ctx, storage.Put("tailorOwnerRatings_v1", log)))
		agg := f.svc.Aggregate(ctx, "a@x.com")
		assert.Equal(t, 4, agg.Count)
		results = append(results, agg.Average)
	}
	for _, avg := range results {
		assert.Equal(t, 3.0, avg)
	}
}
