// Package storage holds the durable key-value stores the collections live in.
package storage

import (
	"context"
)

// Store is a string key-value store. Apply must be atomic: either every
// mutation lands or none does.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Apply(ctx context.Context, mutations ...Mutation) error
	Close() error
}

type Mutation struct {
	Key    string
	Value  string
	Delete bool
}

func Put(key, value string) Mutation {
	return Mutation{Key: key, Value: value}
}

func Delete(key string) Mutation {
	return Mutation{Key: key, Delete: true}
}
