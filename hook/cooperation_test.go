package hook

import (
	"testing"

	"github.com/chazu/interpose/vm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCounter(t *testing.T) (*vm.Class, vm.Selector) {
	t.Helper()
	c := vm.NewClassWithInstVars("Counter", vm.NewClass("Object", nil), []string{"value"})
	set := c.AddMethod1("setValue:", "v24@0:8q16", func(self any, v any) (any, error) {
		self.(*vm.Object).Set("value", v)
		return nil, nil
	})
	return c, set
}

func TestHookOnObservedObject(t *testing.T) {
	c, set := newCounter(t)
	obj := c.New()
	var events []string

	obs, err := vm.Observe(obj, "value", func(_ *vm.Object, _ string, old, new any) {
		events = append(events, "observed")
	})
	require.NoError(t, err)
	observed := obj.Class()
	require.Equal(t, vm.ObservedTag, observed.Tag())

	tok, err := Before(obj, set, func(self *vm.Object, v int) { events = append(events, "hooked") })
	require.NoError(t, err)
	assert.Same(t, observed, obj.Class().Superclass, "the hook subclass nests above the observed one")
	assert.Equal(t, c, obj.DeclaredClass())

	send(t, obj, set, 7)
	assert.Equal(t, []string{"hooked", "observed"}, events)
	v, _ := obj.Get("value")
	assert.Equal(t, 7, v)

	tok.Cancel()
	assert.Same(t, observed, obj.Class())
	obs.Cancel()
	assert.Equal(t, c, obj.Class())
}

func TestObserveHookedObject(t *testing.T) {
	c, set := newCounter(t)
	obj := c.New()
	var events []string

	tok, err := Before(obj, set, func() { events = append(events, "hooked") })
	require.NoError(t, err)
	hooked := obj.Class()

	obs, err := vm.Observe(obj, "value", func(_ *vm.Object, _ string, old, new any) {
		events = append(events, "observed")
	})
	require.NoError(t, err)
	assert.Same(t, hooked, obj.Class().Superclass)

	send(t, obj, set, 1)
	assert.Equal(t, []string{"hooked", "observed"}, events)

	// The hook goes first; its subclass stays in the chain beneath the
	// observed class and falls through.
	tok.Cancel()
	events = nil
	send(t, obj, set, 2)
	assert.Equal(t, []string{"observed"}, events)

	obs.Cancel()
	events = nil
	send(t, obj, set, 3)
	assert.Empty(t, events)
	v, _ := obj.Get("value")
	assert.Equal(t, 3, v)
	assert.Equal(t, c, obj.DeclaredClass())

	again, err := Before(obj, set, func() { events = append(events, "again") })
	require.NoError(t, err)
	assert.Same(t, hooked, obj.Class(), "an existing hook subclass in the chain is reused")
	send(t, obj, set, 4)
	assert.Equal(t, []string{"again"}, events)
	again.Cancel()
}

func TestClassHookBeneathObservation(t *testing.T) {
	c, set := newCounter(t)
	obj := c.New()
	var changes []any

	obs, err := vm.Observe(obj, "value", func(_ *vm.Object, _ string, old, new any) {
		changes = append(changes, new)
	})
	require.NoError(t, err)
	defer obs.Cancel()

	tok, err := Instead(c, set, func(original func(int), self *vm.Object, v int) {
		original(v * 10)
	})
	require.NoError(t, err)
	defer tok.Cancel()

	send(t, obj, set, 4)
	assert.Equal(t, []any{40}, changes)
}
