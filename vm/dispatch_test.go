package vm

import (
	"sync"
	"testing"
)

func TestSelectorInterning(t *testing.T) {
	a := Sel("interning:test:")
	b := Sel("interning:test:")
	if a != b {
		t.Fatal("equal names must intern to the same selector")
	}
	if a.Name() != "interning:test:" || a.NumArgs() != 2 {
		t.Errorf("Name = %q NumArgs = %d", a.Name(), a.NumArgs())
	}
	if _, ok := LookupSelector("never interned selector"); ok {
		t.Error("LookupSelector should not intern")
	}
	if NoSelector.String() != "<invalid selector>" {
		t.Errorf("NoSelector.String() = %q", NoSelector.String())
	}
}

func TestVTableCompareAndSwap(t *testing.T) {
	c := NewClass("Swap", nil)
	sel := Sel("value")
	m1 := NewMethod0("value", "", func(any) (any, error) { return 1, nil })
	m2 := NewMethod0("value", "", func(any) (any, error) { return 2, nil })

	if !c.VTable.CompareAndSwapMethod(sel, nil, m1) {
		t.Fatal("CAS from empty should succeed")
	}
	if c.VTable.CompareAndSwapMethod(sel, nil, m2) {
		t.Error("CAS with stale old must fail")
	}
	if !c.VTable.CompareAndSwapMethod(sel, m1, m2) {
		t.Error("CAS with current old should succeed")
	}
	if c.VTable.LookupLocal(sel) != m2 {
		t.Error("table should hold m2")
	}
	if !c.VTable.CompareAndSwapMethod(sel, m2, nil) || c.HasMethod(sel) {
		t.Error("CAS to nil should remove the entry")
	}
}

func TestVTableMutationBumpsEpoch(t *testing.T) {
	c := NewClass("Epoch", nil)
	before := DispatchEpoch()
	c.AddMethod0("tick", "", func(any) (any, error) { return nil, nil })
	if DispatchEpoch() <= before {
		t.Error("adding a method should advance the dispatch epoch")
	}
	before = DispatchEpoch()
	c.VTable.RemoveMethod(Sel("tick"))
	if DispatchEpoch() <= before {
		t.Error("removing a method should advance the dispatch epoch")
	}
}

func TestVTableConcurrentReadsDuringWrites(t *testing.T) {
	c := NewClass("Busy", nil)
	sel := Sel("busy")
	c.AddMethod0("busy", "", func(any) (any, error) { return 0, nil })
	obj := c.New()

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				if _, err := obj.Send(sel); err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}
	for i := 0; i < 200; i++ {
		n := i
		c.AddMethod0("busy", "", func(any) (any, error) { return n, nil })
		c.AddMethod0("unrelated"+string(rune('a'+i%26)), "", func(any) (any, error) { return nil, nil })
	}
	close(stop)
	wg.Wait()

	if got, _ := obj.Send(sel); got != 199 {
		t.Errorf("final value = %v, want 199", got)
	}
}

func TestLocalMethods(t *testing.T) {
	c := NewClass("Local", nil)
	c.AddMethod0("a", "", func(any) (any, error) { return nil, nil })
	local := c.VTable.LocalMethods()
	if len(local) != 2 { // a + dealloc
		t.Errorf("LocalMethods len = %d, want 2", len(local))
	}
	if _, ok := local[Sel("a")]; !ok {
		t.Error("LocalMethods should include a")
	}
}
