package repo

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/freshplate/go-loyalty-backend/internal/domain"
)

func TestAppendAndGetEntry(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	ref := "order-77"
	e, err := AppendEntry(ctx, db, "acct-1", 150, domain.KindEarn, domain.CategoryOrder, "weekly box", &ref)
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if e.ID == "" {
		t.Fatalf("entry must get a UUID id")
	}

	got, err := GetEntry(ctx, db, e.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Delta != 150 || got.Kind != domain.KindEarn || got.Category != domain.CategoryOrder {
		t.Fatalf("round-trip mismatch: %+v", got)
	}
	if got.ReferenceID == nil || *got.ReferenceID != "order-77" {
		t.Fatalf("reference id lost: %+v", got.ReferenceID)
	}

	if _, err := GetEntry(ctx, db, "no-such-id"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestListEntriesPage_OrderAndBounds(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := AppendEntry(ctx, db, "acct-1", int64(10+i), domain.KindEarn, domain.CategoryOrder, fmt.Sprintf("e%d", i), nil); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	// Another account's rows must not leak in.
	if _, err := AppendEntry(ctx, db, "acct-2", 999, domain.KindEarn, domain.CategoryOrder, "other", nil); err != nil {
		t.Fatalf("append: %v", err)
	}

	total, err := CountEntries(ctx, db, "acct-1")
	if err != nil || total != 5 {
		t.Fatalf("count = %d, %v; want 5", total, err)
	}

	page, err := ListEntriesPage(ctx, db, "acct-1", 0, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("page size = %d, want 2", len(page))
	}
	rest, err := ListEntriesPage(ctx, db, "acct-1", 2, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rest) != 3 {
		t.Fatalf("rest size = %d, want 3", len(rest))
	}

	// Most recent first; ties (same CreatedAt precision) break on ID DESC, so
	// only assert the ordering key is non-increasing.
	all := append(page, rest...)
	for i := 1; i < len(all); i++ {
		if all[i].CreatedAt.After(all[i-1].CreatedAt) {
			t.Fatalf("ledger page not in descending time order")
		}
	}
}

func TestCountEarnByCategory(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	add := func(kind, cat string, delta int64) {
		t.Helper()
		if _, err := AppendEntry(ctx, db, "acct-1", delta, kind, cat, "x", nil); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	add(domain.KindEarn, domain.CategoryOrder, 10)
	add(domain.KindEarn, domain.CategoryOrder, 10)
	add(domain.KindEarn, domain.CategoryReferral, 10)
	add(domain.KindRedeem, domain.CategoryRedemption, -10)

	n, err := CountEarnByCategory(ctx, db, "acct-1", domain.CategoryOrder)
	if err != nil || n != 2 {
		t.Fatalf("order earns = %d, %v; want 2", n, err)
	}
	n, err = CountEarnByCategory(ctx, db, "acct-1", domain.CategoryRedemption)
	if err != nil || n != 0 {
		t.Fatalf("redeem rows must not count as earns: %d, %v", n, err)
	}
}

func TestSumDeltas(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	current, total, err := SumDeltas(ctx, db, "acct-1")
	if err != nil || current != 0 || total != 0 {
		t.Fatalf("empty ledger sums = %d/%d, %v", current, total, err)
	}

	if _, err := AppendEntry(ctx, db, "acct-1", 300, domain.KindEarn, domain.CategoryOrder, "earn", nil); err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := AppendEntry(ctx, db, "acct-1", -120, domain.KindRedeem, domain.CategoryRedemption, "redeem", nil); err != nil {
		t.Fatalf("append: %v", err)
	}

	current, total, err = SumDeltas(ctx, db, "acct-1")
	if err != nil {
		t.Fatalf("sum: %v", err)
	}
	if current != 180 {
		t.Fatalf("current = %d, want 180", current)
	}
	if total != 300 {
		t.Fatalf("total counts earns only: %d, want 300", total)
	}
}

func TestLedgerStats(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	count, latest, err := LedgerStats(ctx, db, "acct-1")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if count != 0 || latest != nil {
		t.Fatalf("empty ledger stats = %d, %v", count, latest)
	}

	for i := 0; i < 3; i++ {
		if _, err := AppendEntry(ctx, db, "acct-1", 10, domain.KindEarn, domain.CategoryOrder, "x", nil); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	count, latest, err = LedgerStats(ctx, db, "acct-1")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if count != 3 {
		t.Fatalf("count = %d, want 3", count)
	}
	if latest == nil || latest.IsZero() {
		t.Fatalf("latest timestamp missing")
	}
}
