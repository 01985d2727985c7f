package hook

import (
	"testing"

	"github.com/chazu/interpose/vm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newResource returns a class whose dealloc records itself and then
// forwards to the root implementation.
func newResource(t *testing.T, events *[]string) *vm.Class {
	t.Helper()
	root := vm.NewClass("Object", nil)
	c := vm.NewClass("Resource", root)
	c.AddMethod0("dealloc", "v16@0:8", func(self any) (any, error) {
		*events = append(*events, "dealloc")
		return c.SendSuper(self.(*vm.Object), vm.SelDealloc)
	})
	return c
}

func TestDestructionBeforeAndAfter(t *testing.T) {
	var events []string
	c := newResource(t, &events)
	obj := c.New()

	before, err := HookDestructionBefore(obj, func() {
		events = append(events, "before")
	})
	require.NoError(t, err)
	after, err := HookDestructionAfter(obj, func(self *vm.Object) {
		assert.True(t, self.IsDestroyed(), "after hooks run once the object is finalized")
		events = append(events, "after")
	})
	require.NoError(t, err)
	assert.Equal(t, KindDestruction, before.Hook().Kind())

	require.NoError(t, obj.Dispose())
	assert.Equal(t, []string{"before", "dealloc", "after"}, events)

	assert.False(t, before.IsActive())
	assert.False(t, after.IsActive())
	assert.False(t, IsHooked(obj, vm.SelDealloc))
	assert.Equal(t, c, obj.Class())
}

func TestDestructionInsteadForwards(t *testing.T) {
	var events []string
	c := newResource(t, &events)
	obj := c.New()

	_, err := HookDestructionInstead(obj, func(original func(), self *vm.Object) {
		events = append(events, "instead")
		original()
		events = append(events, "forwarded")
	})
	require.NoError(t, err)

	require.NoError(t, obj.Dispose())
	assert.Equal(t, []string{"instead", "dealloc", "forwarded"}, events)
	assert.True(t, obj.IsDestroyed())
}

func TestDestructionInsteadWithoutForwarding(t *testing.T) {
	var events []string
	c := newResource(t, &events)
	obj := c.New()

	tok, err := HookDestructionInstead(obj, func(inv *Invocation) (any, error) {
		events = append(events, "swallowed")
		return nil, nil
	})
	require.NoError(t, err)

	require.NoError(t, obj.Dispose())
	assert.Equal(t, []string{"swallowed"}, events)
	assert.False(t, obj.IsDestroyed(), "the object is not finalized when the original is skipped")
	assert.True(t, obj.IsDeallocating())
	assert.True(t, tok.IsActive())

	tok.Cancel()
	obj.Finalize()
	assert.True(t, obj.IsDestroyed())
}

func TestDestructionHooksOnClass(t *testing.T) {
	var events []string
	c := newResource(t, &events)
	disposed := 0
	tok, err := HookDestructionAfter(c, func(self *vm.Object) { disposed++ })
	require.NoError(t, err)

	require.NoError(t, c.New().Dispose())
	require.NoError(t, c.New().Dispose())
	assert.Equal(t, 2, disposed)
	assert.True(t, tok.IsActive(), "class hooks outlive the objects they saw")

	tok.Cancel()
	require.NoError(t, c.New().Dispose())
	assert.Equal(t, 2, disposed)
	assert.Equal(t, []string{"dealloc", "dealloc", "dealloc"}, events)
}

func TestDestructionOnInheritedDealloc(t *testing.T) {
	c := vm.NewClass("Plain", vm.NewClass("Object", nil))
	obj := c.New()
	ran := false
	_, err := HookDestructionBefore(obj, func(*Invocation) { ran = true })
	require.NoError(t, err)

	require.NoError(t, obj.Dispose())
	assert.True(t, ran)
	assert.True(t, obj.IsDestroyed())
	assert.Equal(t, c, obj.Class())
}

func TestDestructionOnClassSideIsInvalid(t *testing.T) {
	var events []string
	c := newResource(t, &events)
	_, err := HookDestructionBefore(ClassItself(c), func() {})
	assert.ErrorIs(t, err, ErrInvalidOwner)
}

func TestDisposeRevertsObjectHooks(t *testing.T) {
	calc, sum := newCalculator(t)
	obj := calc.New()
	tok, err := Instead(obj, sum, doubling)
	require.NoError(t, err)
	require.Equal(t, HookedTag, obj.Class().Tag())

	require.NoError(t, obj.Dispose())
	assert.False(t, tok.IsActive())
	assert.False(t, IsHooked(obj, sum))
	assert.Equal(t, calc, obj.Class())

	tok.Cancel()
	_, err = obj.Send(sum, 1, 2)
	assert.ErrorIs(t, err, vm.ErrObjectDestroyed)
}

func TestDisposeWithMixedHooks(t *testing.T) {
	var events []string
	c := newResource(t, &events)
	ping := c.AddMethod0("ping", "v16@0:8", func(any) (any, error) { return nil, nil })
	obj := c.New()

	p, err := Before(obj, ping, func() { events = append(events, "ping") })
	require.NoError(t, err)
	d, err := HookDestructionAfter(obj, func() {
		assert.False(t, p.IsActive(), "method hooks are reverted while dealloc runs")
		events = append(events, "gone")
	})
	require.NoError(t, err)

	send(t, obj, ping)
	require.NoError(t, obj.Dispose())
	assert.Equal(t, []string{"ping", "dealloc", "gone"}, events)
	assert.False(t, d.IsActive())
	assert.Empty(t, TakeSnapshot().For(d.Hook().target.String()))
}
