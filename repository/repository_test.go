package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tailorfinder/models"
	"tailorfinder/storage"
)

func newRepo(t *testing.T) (*Repository, *storage.MemoryStore, *logtest.Hook) {
	t.Helper()
	logger, hook := logtest.NewNullLogger()
	store := storage.NewMemoryStore()
	return New(store, logger), store, hook
}

func TestLoadMissingIsEmpty(t *testing.T) {
	ctx := context.Background()
	repo, _, hook := newRepo(t)

	assert.Empty(t, repo.Owners(ctx))
	assert.Empty(t, repo.Orders(ctx))
	assert.Empty(t, repo.Designs(ctx))
	assert.NotNil(t, repo.Ratings(ctx))
	assert.Empty(t, hook.AllEntries())
}

func TestLoadCorruptIsEmptyAndLogged(t *testing.T) {
	ctx := context.Background()
	repo, store, hook := newRepo(t)
	require.NoError(t, store.Apply(ctx,
		storage.Put(OwnersKey, "{not json"),
		storage.Put(OrdersKey, `[{"id":"a","qty":"many"}]`),
	))

	assert.Empty(t, repo.Owners(ctx))
	assert.Empty(t, repo.Orders(ctx), "a partially decoded collection must not leak out")
	require.Len(t, hook.AllEntries(), 2)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, OrdersKey, hook.LastEntry().Data["key"])
}

func TestSaveAfterCorruptionRecovers(t *testing.T) {
	ctx := context.Background()
	repo, store, _ := newRepo(t)
	require.NoError(t, store.Apply(ctx, storage.Put(DesignsKey, "garbage")))

	designs := append(repo.Designs(ctx), models.Design{ID: "d1", OwnerEmail: "a@x.com", Type: models.DesignTypeImage})
	require.NoError(t, repo.SaveDesigns(ctx, designs))

	got := repo.Designs(ctx)
	require.Len(t, got, 1)
	assert.Equal(t, "d1", got[0].ID)
}

func TestSaveNilWritesEmptyArray(t *testing.T) {
	ctx := context.Background()
	repo, store, _ := newRepo(t)
	require.NoError(t, repo.SaveOrders(ctx, nil))

	raw, ok, err := store.Get(ctx, OrdersKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "[]", raw)
}

func TestSaveUsesOriginalFieldNames(t *testing.T) {
	ctx := context.Background()
	repo, store, _ := newRepo(t)
	require.NoError(t, repo.SaveOrders(ctx, []models.Order{{
		ID: "o1", CustomerName: "Ravi", GarmentType: "kurta", Quantity: 2,
		DeliveryDate: "2026-11-01", Status: models.OrderStatusPending, OwnerEmail: "a@x.com",
	}}))

	raw, _, err := store.Get(ctx, OrdersKey)
	require.NoError(t, err)
	assert.Contains(t, raw, `"dress":"kurta"`)
	assert.Contains(t, raw, `"qty":2`)
	assert.Contains(t, raw, `"delivery":"2026-11-01"`)
	assert.Contains(t, raw, `"owner":"a@x.com"`)
}

func TestRatingsKeepEntryShapes(t *testing.T) {
	ctx := context.Background()
	repo, store, _ := newRepo(t)
	require.NoError(t, store.Apply(ctx, storage.Put(RatingsKey, `{"a@x.com":[4,{"rating":5,"by":"c"},null,3]}`)))

	ratings := repo.Ratings(ctx)
	require.Len(t, ratings["a@x.com"], 4)
	require.NoError(t, repo.SaveRatings(ctx, ratings))

	raw, _, err := store.Get(ctx, RatingsKey)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a@x.com":[4,{"rating":5,"by":"c"},null,3]}`, raw)
}

func TestCommitEncodeFailureWritesNothing(t *testing.T) {
	ctx := context.Background()
	repo, store, _ := newRepo(t)

	bad := Change{err: errors.New("boom")}
	err := repo.Commit(ctx, OwnersChange([]models.Owner{{Email: "a@x.com"}}), bad)
	require.Error(t, err)
	assert.Equal(t, 0, store.Len())
}

type brokenStore struct {
	*storage.MemoryStore
}

func (brokenStore) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("connection reset")
}

func TestLoadStoreErrorIsEmptyAndLogged(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	repo := New(brokenStore{storage.NewMemoryStore()}, logger)

	assert.Empty(t, repo.Owners(context.Background()))
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}

func TestForUpdateReturnsStoreError(t *testing.T) {
	ctx := context.Background()
	logger, _ := logtest.NewNullLogger()
	repo := New(brokenStore{storage.NewMemoryStore()}, logger)

	_, err := repo.OwnersForUpdate(ctx)
	assert.ErrorContains(t, err, "connection reset")
	_, err = repo.OrdersForUpdate(ctx)
	assert.Error(t, err)
	_, err = repo.DesignsForUpdate(ctx)
	assert.Error(t, err)
	_, err = repo.RatingsForUpdate(ctx)
	assert.Error(t, err)
}

func TestForUpdateTreatsCorruptAsEmpty(t *testing.T) {
	ctx := context.Background()
	repo, store, hook := newRepo(t)
	require.NoError(t, store.Apply(ctx, storage.Put(OwnersKey, "{not json")))

	owners, err := repo.OwnersForUpdate(ctx)
	require.NoError(t, err)
	assert.Empty(t, owners)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)

	ratings, err := repo.RatingsForUpdate(ctx)
	require.NoError(t, err)
	assert.NotNil(t, ratings)
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	repo, store, _ := newRepo(t)
	require.NoError(t, repo.Commit(ctx,
		OwnersChange([]models.Owner{{Email: "a@x.com"}}),
		OrdersChange([]models.Order{{ID: "o1"}}),
		RatingsChange(models.RatingLog{"a@x.com": {models.ScoreEntry(4)}}),
	))
	require.NoError(t, repo.Clear(ctx))
	assert.Equal(t, 0, store.Len())
}
