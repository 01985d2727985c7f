package vm

import (
	"errors"
	"testing"
)

func constMethod(v any) Method {
	return NewMethod0("value", "", func(any) (any, error) { return v, nil })
}

func TestCallSiteMonomorphic(t *testing.T) {
	c := NewClass("Mono", nil)
	c.AddMethod("value", constMethod(1))
	site := NewCallSite(Sel("value"))
	obj := c.New()

	if site.State() != CacheEmpty {
		t.Error("new site should be empty")
	}
	for i := 0; i < 3; i++ {
		if got, err := site.Send(obj); err != nil || got != 1 {
			t.Fatalf("Send = %v, %v", got, err)
		}
	}
	if site.State() != CacheMonomorphic {
		t.Errorf("state = %v, want monomorphic", site.State())
	}
	if rate := site.HitRate(); rate < 60 {
		t.Errorf("hit rate = %.1f, want two of three hits", rate)
	}
}

func TestCallSitePolymorphicToMegamorphic(t *testing.T) {
	root := NewClass("Poly", nil)
	root.AddMethod("value", constMethod(0))
	site := NewCallSite(Sel("value"))

	var objs []*Object
	for i := 0; i <= MaxPICEntries; i++ {
		objs = append(objs, NewClass("PolySub", root).New())
	}
	for _, obj := range objs[:2] {
		site.Send(obj)
	}
	if site.State() != CachePolymorphic {
		t.Errorf("state = %v, want polymorphic", site.State())
	}
	for _, obj := range objs {
		site.Send(obj)
	}
	if site.State() != CacheMegamorphic {
		t.Errorf("state = %v, want megamorphic", site.State())
	}
	if got, _ := site.Send(objs[0]); got != 0 {
		t.Error("megamorphic sites still dispatch")
	}
}

func TestCallSiteInvalidatedByTableMutation(t *testing.T) {
	c := NewClass("Invalidated", nil)
	c.AddMethod("value", constMethod("old"))
	site := NewCallSite(Sel("value"))
	obj := c.New()

	site.Send(obj)
	c.AddMethod("value", constMethod("new"))
	if got, _ := site.Send(obj); got != "new" {
		t.Errorf("stale cache entry used, got %v", got)
	}

	c.VTable.RemoveMethod(Sel("value"))
	if _, err := site.Send(obj); !errors.Is(err, ErrDoesNotUnderstand) {
		t.Errorf("expected does-not-understand after removal, got %v", err)
	}
}

func TestCallSiteFollowsClassSubstitution(t *testing.T) {
	c := NewClass("Swapped", nil)
	c.AddMethod("value", constMethod("base"))
	sub := AllocateSubclass(c, "Swapped_Sub", "test")
	sub.AddMethod("value", constMethod("sub"))
	site := NewCallSite(Sel("value"))
	obj := c.New()

	site.Send(obj)
	obj.SetClass(sub)
	if got, _ := site.Send(obj); got != "sub" {
		t.Errorf("got %v after class substitution", got)
	}
}

func TestCallSiteReset(t *testing.T) {
	c := NewClass("Resettable", nil)
	c.AddMethod("value", constMethod(1))
	site := NewCallSite(Sel("value"))
	site.Send(c.New())
	site.Reset()
	if site.State() != CacheEmpty || site.HitRate() != 0 {
		t.Error("Reset should clear state and statistics")
	}
}
