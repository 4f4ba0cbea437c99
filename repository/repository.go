// Package repository loads and saves the four stored collections. Loads never
// fail: a missing record is an empty collection and a corrupt one is logged
// and treated as empty. Saves replace the whole collection.
package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"tailorfinder/models"
	"tailorfinder/storage"
)

const (
	OwnersKey  = "tailorUsers_v1"
	OrdersKey  = "tailorOrders_v1"
	DesignsKey = "tailorDesigns_v1"
	RatingsKey = "tailorOwnerRatings_v1"
)

// Change is a pending full replacement of one collection.
type Change struct {
	mutation storage.Mutation
	err      error
}

type Repository struct {
	store storage.Store
	log   logrus.FieldLogger
}

func New(store storage.Store, log logrus.FieldLogger) *Repository {
	return &Repository{store: store, log: log}
}

func (r *Repository) Owners(ctx context.Context) []models.Owner {
	return load[[]models.Owner](ctx, r, OwnersKey)
}

func (r *Repository) Orders(ctx context.Context) []models.Order {
	return load[[]models.Order](ctx, r, OrdersKey)
}

func (r *Repository) Designs(ctx context.Context) []models.Design {
	return load[[]models.Design](ctx, r, DesignsKey)
}

func (r *Repository) Ratings(ctx context.Context) models.RatingLog {
	ratings := load[models.RatingLog](ctx, r, RatingsKey)
	if ratings == nil {
		return models.RatingLog{}
	}
	return ratings
}

// OwnersForUpdate, OrdersForUpdate, DesignsForUpdate and RatingsForUpdate
// fail when the store cannot be read.
func (r *Repository) OwnersForUpdate(ctx context.Context) ([]models.Owner, error) {
	return loadStrict[[]models.Owner](ctx, r, OwnersKey)
}

func (r *Repository) OrdersForUpdate(ctx context.Context) ([]models.Order, error) {
	return loadStrict[[]models.Order](ctx, r, OrdersKey)
}

func (r *Repository) DesignsForUpdate(ctx context.Context) ([]models.Design, error) {
	return loadStrict[[]models.Design](ctx, r, DesignsKey)
}

func (r *Repository) RatingsForUpdate(ctx context.Context) (models.RatingLog, error) {
	ratings, err := loadStrict[models.RatingLog](ctx, r, RatingsKey)
	if err != nil {
		return nil, err
	}
	if ratings == nil {
		return models.RatingLog{}, nil
	}
	return ratings, nil
}

func (r *Repository) SaveOwners(ctx context.Context, owners []models.Owner) error {
	return r.Commit(ctx, OwnersChange(owners))
}

func (r *Repository) SaveOrders(ctx context.Context, orders []models.Order) error {
	return r.Commit(ctx, OrdersChange(orders))
}

func (r *Repository) SaveDesigns(ctx context.Context, designs []models.Design) error {
	return r.Commit(ctx, DesignsChange(designs))
}

func (r *Repository) SaveRatings(ctx context.Context, ratings models.RatingLog) error {
	return r.Commit(ctx, RatingsChange(ratings))
}

// Commit applies every change in one store mutation. Nothing is written if
// any change failed to encode.
func (r *Repository) Commit(ctx context.Context, changes ...Change) error {
	mutations := make([]storage.Mutation, 0, len(changes))
	for _, c := range changes {
		if c.err != nil {
			return c.err
		}
		mutations = append(mutations, c.mutation)
	}
	return r.store.Apply(ctx, mutations...)
}

// Clear removes every collection.
func (r *Repository) Clear(ctx context.Context) error {
	return r.store.Apply(ctx,
		storage.Delete(OwnersKey),
		storage.Delete(OrdersKey),
		storage.Delete(DesignsKey),
		storage.Delete(RatingsKey),
	)
}

func OwnersChange(owners []models.Owner) Change {
	if owners == nil {
		owners = []models.Owner{}
	}
	return change(OwnersKey, owners)
}

func OrdersChange(orders []models.Order) Change {
	if orders == nil {
		orders = []models.Order{}
	}
	return change(OrdersKey, orders)
}

func DesignsChange(designs []models.Design) Change {
	if designs == nil {
		designs = []models.Design{}
	}
	return change(DesignsKey, designs)
}

func RatingsChange(ratings models.RatingLog) Change {
	if ratings == nil {
		ratings = models.RatingLog{}
	}
	return change(RatingsKey, ratings)
}

func change(key string, v interface{}) Change {
	raw, err := json.Marshal(v)
	if err != nil {
		return Change{err: fmt.Errorf("failed to encode %s: %w", key, err)}
	}
	return Change{mutation: storage.Put(key, string(raw))}
}

// load returns the zero value when the record is missing or unreadable, never
// a partially decoded one. Store errors are logged and swallowed; only pure
// reads should use it.
func load[T any](ctx context.Context, r *Repository, key string) T {
	v, err := loadStrict[T](ctx, r, key)
	if err != nil {
		r.log.WithError(err).WithField("key", key).Error("storage read failed, using empty collection")
		var zero T
		return zero
	}
	return v
}

// loadStrict is load for read-modify-write paths: a store error is returned
// so the caller never saves over data it could not read. Corrupt JSON is
// still treated as empty.
func loadStrict[T any](ctx context.Context, r *Repository, key string) (T, error) {
	var zero T
	raw, ok, err := r.store.Get(ctx, key)
	if err != nil {
		return zero, fmt.Errorf("failed to read %s: %w", key, err)
	}
	if !ok || raw == "" {
		return zero, nil
	}
	var v T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		r.log.WithError(err).WithField("key", key).Warn("corrupt collection, using empty collection")
		return zero, nil
	}
	return v, nil
}
