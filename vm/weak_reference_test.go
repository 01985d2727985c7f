package vm

import (
	"runtime"
	"testing"
)

func TestWeakReferenceGet(t *testing.T) {
	obj := NewClass("Weak", nil).New()
	wr := NewWeakReference(obj)
	if wr.Get() != obj || !wr.IsAlive() {
		t.Fatal("reference to a live object should resolve")
	}
	runtime.KeepAlive(obj)
}

func TestWeakReferenceDeadAfterDispose(t *testing.T) {
	obj := NewClass("WeakDisposed", nil).New()
	wr := NewWeakReference(obj)
	if err := obj.Dispose(); err != nil {
		t.Fatal(err)
	}
	if wr.IsAlive() {
		t.Error("reference to a destroyed object should be dead")
	}
}

func TestWeakReferenceReferentAfterDispose(t *testing.T) {
	obj := NewClass("WeakReferent", nil).New()
	wr := NewWeakReference(obj)
	if err := obj.Dispose(); err != nil {
		t.Fatal(err)
	}
	if wr.Referent() != obj {
		t.Error("a destroyed object is still reachable through Referent")
	}
	wr.Clear()
	if wr.Referent() != nil {
		t.Error("a cleared reference has no referent")
	}
}

func TestWeakReferenceClear(t *testing.T) {
	obj := NewClass("WeakCleared", nil).New()
	wr := NewWeakReference(obj)
	var finalized *Object
	wr.SetFinalizer(func(o *Object) { finalized = o })

	if old := wr.Clear(); old != obj {
		t.Errorf("Clear returned %v", old)
	}
	if finalized != obj {
		t.Error("finalizer should receive the old target")
	}
	if wr.Get() != nil {
		t.Error("cleared reference should be dead")
	}
	if wr.Clear() != nil {
		t.Error("second Clear should return nil")
	}
	runtime.KeepAlive(obj)
}

func TestWeakReferenceDoesNotRetain(t *testing.T) {
	wr := func() *WeakReference {
		return NewWeakReference(NewClass("WeakCollected", nil).New())
	}()
	for i := 0; i < 5 && wr.IsAlive(); i++ {
		runtime.GC()
	}
	if wr.IsAlive() {
		t.Error("weak reference kept its target alive")
	}
}
