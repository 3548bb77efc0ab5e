package memory

import "testing"

type resettableItem struct {
	n     int
	reset bool
}

func (r *resettableItem) Reset() {
	r.n = 0
	r.reset = true
}

func TestPoolReusesObjects(t *testing.T) {
	p := NewPool(func() *resettableItem { return &resettableItem{} })
	v := p.Get()
	if v == nil {
		t.Fatal("Get returned nil")
	}
	v.n = 7
	p.Put(v)

	if !v.reset {
		t.Error("Put should reset resettable objects")
	}
	if got := p.Get(); got.n != 0 {
		t.Errorf("recycled object not cleared: n=%d", got.n)
	}
}

type plainItem struct{ n int }

func TestPoolWithoutReset(t *testing.T) {
	p := NewPool(func() *plainItem { return &plainItem{} })
	v := p.Get()
	v.n = 3
	p.Put(v) // must not panic for non-Resettable types
	_ = p.Get()
}
