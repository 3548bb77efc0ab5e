package orderbook

import (
	"math/rand"
	"testing"
)

func TestRBTreeInsertFindDelete(t *testing.T) {
	tree := NewRBTree()
	pl1 := tree.UpsertLevel(100)
	if pl1 == nil {
		t.Fatal("UpsertLevel failed")
	}
	if pl2 := tree.FindLevel(100); pl2 != pl1 {
		t.Error("FindLevel did not return same PriceLevel")
	}

	tree.UpsertLevel(200)
	if tree.MinLevel().Price != 100 {
		t.Error("expected min=100")
	}
	if tree.MaxLevel().Price != 200 {
		t.Error("expected max=200")
	}

	if !tree.DeleteLevel(100) {
		t.Error("DeleteLevel failed")
	}
	if tree.FindLevel(100) != nil {
		t.Error("expected level 100 to be gone")
	}
}

func TestDeleteNonExistentLevel(t *testing.T) {
	tree := NewRBTree()
	if tree.DeleteLevel(123) {
		t.Error("expected false when deleting non-existent level")
	}
}

func TestEmptyTreeMinMax(t *testing.T) {
	tree := NewRBTree()
	if tree.MinLevel() != nil || tree.MaxLevel() != nil {
		t.Error("expected nil for min/max on empty tree")
	}
}

func TestUpsertDuplicateLevel(t *testing.T) {
	tree := NewRBTree()
	pl1 := tree.UpsertLevel(150)
	pl2 := tree.UpsertLevel(150)
	if pl1 != pl2 {
		t.Error("duplicate upsert should return the existing level")
	}
	if tree.Size() != 1 {
		t.Errorf("expected size 1, got %d", tree.Size())
	}
}

func TestForEachOrdering(t *testing.T) {
	tree := NewRBTree()
	for _, p := range []int64{300, 100, 500, 200, 400} {
		tree.UpsertLevel(p)
	}

	var asc []int64
	tree.ForEachAscending(func(pl *PriceLevel) bool {
		asc = append(asc, pl.Price)
		return true
	})
	want := []int64{100, 200, 300, 400, 500}
	for i := range want {
		if asc[i] != want[i] {
			t.Fatalf("ascending[%d] = %d, want %d", i, asc[i], want[i])
		}
	}

	var desc []int64
	tree.ForEachDescending(func(pl *PriceLevel) bool {
		desc = append(desc, pl.Price)
		return true
	})
	for i := range want {
		if desc[i] != want[len(want)-1-i] {
			t.Fatalf("descending[%d] = %d, want %d", i, desc[i], want[len(want)-1-i])
		}
	}
}

func TestForEachEarlyStop(t *testing.T) {
	tree := NewRBTree()
	for p := int64(1); p <= 10; p++ {
		tree.UpsertLevel(p)
	}
	seen := 0
	tree.ForEachAscending(func(pl *PriceLevel) bool {
		seen++
		return seen < 3
	})
	if seen != 3 {
		t.Errorf("expected walk to stop after 3 levels, saw %d", seen)
	}
}

func TestRandomInsertDelete(t *testing.T) {
	tree := NewRBTree()
	rng := rand.New(rand.NewSource(7))

	prices := rng.Perm(1000)
	for _, p := range prices {
		tree.UpsertLevel(int64(p) + 1)
	}
	if tree.Size() != 1000 {
		t.Fatalf("expected 1000 levels, got %d", tree.Size())
	}

	// Delete a random half, then verify ordering of the survivors.
	deleted := make(map[int64]bool)
	for _, p := range prices[:500] {
		price := int64(p) + 1
		if !tree.DeleteLevel(price) {
			t.Fatalf("delete %d failed", price)
		}
		deleted[price] = true
	}

	last := int64(0)
	count := 0
	tree.ForEachAscending(func(pl *PriceLevel) bool {
		if deleted[pl.Price] {
			t.Fatalf("deleted price %d still present", pl.Price)
		}
		if pl.Price <= last {
			t.Fatalf("out-of-order walk: %d after %d", pl.Price, last)
		}
		last = pl.Price
		count++
		return true
	})
	if count != 500 {
		t.Fatalf("expected 500 surviving levels, got %d", count)
	}
}
