package repository

import (
	"context"
	"testing"
	"time"
)

func TestStoreClockSQLite(t *testing.T) {
	clock := NewStoreClock(openRepositoryTestDB(t, "store_clock"))
	before := time.Now().UTC().Add(-time.Minute)
	now, err := clock.Now(context.Background())
	if err != nil {
		t.Fatalf("store clock failed: %v", err)
	}
	if now.Before(before) || now.After(time.Now().UTC().Add(time.Minute)) {
		t.Fatalf("store time out of range: %v", now)
	}
	if now.Location() != time.UTC {
		t.Fatalf("expected utc location, got %v", now.Location())
	}
}

func TestStoreClockNilDB(t *testing.T) {
	var clock *StoreClock
	if _, err := clock.Now(context.Background()); err == nil {
		t.Fatalf("expected error for nil clock")
	}
}

func TestClockFunc(t *testing.T) {
	fixed := time.Date(2026, 10, 19, 8, 0, 0, 0, time.FixedZone("x", 3600))
	got, err := ClockFunc(func() time.Time { return fixed }).Now(context.Background())
	if err != nil {
		t.Fatalf("clock func failed: %v", err)
	}
	if !got.Equal(fixed) || got.Location() != time.UTC {
		t.Fatalf("unexpected clock value %v", got)
	}
}

func TestPageOffset(t *testing.T) {
	cases := []struct{ page, size, want int }{
		{0, 10, 0},
		{1, 10, 0},
		{3, 10, 20},
	}
	for _, c := range cases {
		if got := pageOffset(c.page, c.size); got != c.want {
			t.Fatalf("pageOffset(%d,%d)=%d want %d", c.page, c.size, got, c.want)
		}
	}
}
