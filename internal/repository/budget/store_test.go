package budget

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kailas-cloud/researchrag/internal/db"
)

type mockStore struct {
	getFn    func(ctx context.Context, key string) ([]byte, error)
	incrFn   func(ctx context.Context, key string, val int64) error
	expireFn func(ctx context.Context, key string, ttl time.Duration, nx bool) error
}

func (m *mockStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockStore) IncrBy(ctx context.Context, key string, val int64) error {
	if m.incrFn != nil {
		return m.incrFn(ctx, key, val)
	}
	return nil
}

func (m *mockStore) Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error {
	if m.expireFn != nil {
		return m.expireFn(ctx, key, ttl, nx)
	}
	return nil
}

func TestIncrBy_DailyTTL(t *testing.T) {
	var gotTTL time.Duration
	var gotNX bool
	ms := &mockStore{
		expireFn: func(_ context.Context, _ string, ttl time.Duration, nx bool) error {
			gotTTL, gotNX = ttl, nx
			return nil
		},
	}
	s := New(ms, time.Hour, 2*time.Hour)

	if err := s.IncrBy(context.Background(), "rr:budget:openai:daily:2026-01-02", 10); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotTTL != time.Hour || !gotNX {
		t.Errorf("expected 1h NX expiry, got %v nx=%v", gotTTL, gotNX)
	}
}

func TestIncrBy_MonthlyTTL(t *testing.T) {
	var gotTTL time.Duration
	ms := &mockStore{
		expireFn: func(_ context.Context, _ string, ttl time.Duration, _ bool) error {
			gotTTL = ttl
			return nil
		},
	}
	s := New(ms, 0, 0)
	if err := s.IncrBy(context.Background(), "rr:budget:openai:monthly:2026-01", 10); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotTTL != DefaultMonthlyTTL {
		t.Errorf("expected default monthly ttl, got %v", gotTTL)
	}
}

func TestIncrBy_Error(t *testing.T) {
	ms := &mockStore{incrFn: func(_ context.Context, _ string, _ int64) error { return errors.New("down") }}
	s := New(ms, 0, 0)
	if err := s.IncrBy(context.Background(), "k", 1); err == nil {
		t.Fatal("expected error")
	}
}

func TestGet(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		err     error
		want    int64
		wantErr bool
	}{
		{name: "value", data: []byte("42"), want: 42},
		{name: "missing", err: db.ErrKeyNotFound, want: 0},
		{name: "garbage", data: []byte("x"), wantErr: true},
		{name: "store error", err: errors.New("down"), wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ms := &mockStore{getFn: func(_ context.Context, _ string) ([]byte, error) { return tc.data, tc.err }}
			got, err := New(ms, 0, 0).Get(context.Background(), "k")
			if (err != nil) != tc.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tc.wantErr)
			}
			if got != tc.want {
				t.Errorf("got %d, want %d", got, tc.want)
			}
		})
	}
}
