package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tailorfinder/session"
	"tailorfinder/storage"
)

var errConnReset = errors.New("connection reset")

// flakyStore fails reads while down is set.
type flakyStore struct {
	*storage.MemoryStore
	down bool
}

func (s *flakyStore) Get(ctx context.Context, key string) (string, bool, error) {
	if s.down {
		return "", false, errConnReset
	}
	return s.MemoryStore.Get(ctx, key)
}

func TestWritesAbortWhenStoreReadFails(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		write func(f *fixture, sess session.Session) error
	}{
		{"register", func(f *fixture, _ session.Session) error {
			_, err := f.svc.Register(ctx, RegisterInput{
				Name: "D", Email: "d@x.com", Phone: "9876543210", Place: "Goa", Password: "p4",
			})
			return err
		}},
		{"place order", func(f *fixture, _ session.Session) error {
			_, err := f.svc.PlaceOrder(ctx, validOrder("a@x.com"))
			return err
		}},
		{"set order status", func(f *fixture, sess session.Session) error {
			_, err := f.svc.SetOrderStatus(ctx, sess, "ord-1", true)
			return err
		}},
		{"clear orders", func(f *fixture, sess session.Session) error {
			_, err := f.svc.ClearOrders(ctx, sess)
			return err
		}},
		{"upload design", func(f *fixture, sess session.Session) error {
			_, err := f.svc.UploadDesigns(ctx, sess, []UploadFile{pngFile("b.png")})
			return err
		}},
		{"delete design", func(f *fixture, sess session.Session) error {
			_, err := f.svc.DeleteDesign(ctx, sess, "dsg-1")
			return err
		}},
		{"record rating", func(f *fixture, _ session.Session) error {
			_, err := f.svc.RecordRating(ctx, "a@x.com", 4)
			return err
		}},
		{"delete account", func(f *fixture, sess session.Session) error {
			return f.svc.DeleteAccount(ctx, sess)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, store := newFlakyFixture(t)
			f.register(t, "a@x.com", "p1")
			f.register(t, "b@x.com", "p2")
			f.register(t, "c@x.com", "p3")
			sess := f.login(t, "a@x.com", "p1")
			_, err := f.svc.PlaceOrder(ctx, validOrder("a@x.com"))
			require.NoError(t, err)
			_, err = f.svc.UploadDesigns(ctx, sess, []UploadFile{pngFile("a.png")})
			require.NoError(t, err)
			_, err = f.svc.RecordRating(ctx, "a@x.com", 5)
			require.NoError(t, err)

			store.down = true
			err = tt.write(f, sess)
			store.down = false

			require.ErrorIs(t, err, errConnReset)
			assert.Len(t, f.svc.ListOwners(ctx), 3)
			assert.Len(t, f.svc.ListOrdersForOwner(ctx, "a@x.com"), 1)
			assert.Len(t, f.svc.ListDesignsForOwner(ctx, "a@x.com"), 1)
			assert.Equal(t, 1, f.svc.Aggregate(ctx, "a@x.com").Count)
		})
	}
}

func newFlakyFixture(t *testing.T) (*fixture, *flakyStore) {
	t.Helper()
	store := &flakyStore{MemoryStore: storage.NewMemoryStore()}
	f := newFixtureOver(t, store)
	f.store = store.MemoryStore
	return f, store
}
