package hook

import (
	"sync/atomic"
	"testing"

	"github.com/chazu/interpose/vm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/sync/errgroup"
)

func TestConcurrentApplyRevertAndCalls(t *testing.T) {
	calc, sum := newCalculator(t)
	original := calc.VTable.LookupLocal(sum)

	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	objects := make([]*vm.Object, 8)
	for i := range objects {
		objects[i] = calc.New()
	}

	var stop atomic.Bool
	var calls atomic.Int64
	var g errgroup.Group

	for i := 0; i < 4; i++ {
		g.Go(func() error {
			for j := 0; j < 100; j++ {
				tok, err := Instead(calc, sum, doubling)
				if err != nil {
					return err
				}
				tok.Cancel()
			}
			return nil
		})
	}
	for _, obj := range objects {
		g.Go(func() error {
			for j := 0; j < 100; j++ {
				tok, err := After(obj, sum, func(inv *Invocation) { inv.Result = inv.Result.(int) + 1 })
				if err != nil {
					return err
				}
				tok.Cancel()
			}
			return nil
		})
	}

	var readers errgroup.Group
	for _, obj := range objects {
		readers.Go(func() error {
			for !stop.Load() {
				got, err := obj.Send(sum, 1, 2)
				if err != nil {
					return err
				}
				// 3 doubled once per active class hook, plus one when the
				// object hook is active.
				if !plausibleSum(got.(int)) {
					t.Errorf("unexpected result %v", got)
				}
				calls.Add(1)
			}
			return nil
		})
	}

	require.NoError(t, g.Wait())
	stop.Store(true)
	require.NoError(t, readers.Wait())

	assert.Positive(t, calls.Load())
	assert.Same(t, original, calc.VTable.LookupLocal(sum), "the class table is restored")
	for _, obj := range objects {
		assert.Equal(t, calc, obj.Class())
		assert.False(t, IsHooked(obj, sum))
		assert.Equal(t, 3, send(t, obj, sum, 1, 2))
	}
	assert.False(t, IsHooked(calc, sum))
}

func plausibleSum(v int) bool {
	if v%3 == 1 {
		v--
	}
	for v > 3 && v%2 == 0 {
		v /= 2
	}
	return v == 3
}

func TestConcurrentObjectHooksShareSubclass(t *testing.T) {
	calc, sum := newCalculator(t)
	objects := make([]*vm.Object, 16)
	tokens := make([]*Token, len(objects))
	for i := range objects {
		objects[i] = calc.New()
	}

	var g errgroup.Group
	for i, obj := range objects {
		g.Go(func() error {
			tok, err := Instead(obj, sum, func(original func(a, b int) int, self *vm.Object, a, b int) int {
				return original(a, b) + i
			})
			tokens[i] = tok
			return err
		})
	}
	require.NoError(t, g.Wait())

	hooked := objects[0].Class()
	for i, obj := range objects {
		assert.Same(t, hooked, obj.Class())
		assert.Equal(t, 3+i, send(t, obj, sum, 1, 2))
	}

	var cancels errgroup.Group
	for _, tok := range tokens {
		cancels.Go(func() error {
			tok.Cancel()
			return nil
		})
	}
	require.NoError(t, cancels.Wait())
	for _, obj := range objects {
		assert.Equal(t, calc, obj.Class())
	}
	assert.Nil(t, hooked.VTable.LookupLocal(sum), "the last release removes the dispatcher")
}

func TestConcurrentHooksAndObservation(t *testing.T) {
	c, set := newCounter(t)
	objects := make([]*vm.Object, 8)
	for i := range objects {
		objects[i] = c.New()
	}

	var g errgroup.Group
	for i, obj := range objects {
		g.Go(func() error {
			var seen atomic.Int64
			for j := 0; j < 20; j++ {
				var err error
				var tok *Token
				var obs *vm.Observation
				// Alternate which mechanism substitutes the class first.
				if (i+j)%2 == 0 {
					if tok, err = Before(obj, set, func() { seen.Add(1) }); err != nil {
						return err
					}
					if obs, err = vm.Observe(obj, "value", func(*vm.Object, string, any, any) { seen.Add(1) }); err != nil {
						return err
					}
				} else {
					if obs, err = vm.Observe(obj, "value", func(*vm.Object, string, any, any) { seen.Add(1) }); err != nil {
						return err
					}
					if tok, err = Before(obj, set, func() { seen.Add(1) }); err != nil {
						return err
					}
				}
				if _, err := obj.Send(set, j); err != nil {
					return err
				}
				if (i+j)%3 == 0 {
					obs.Cancel()
					tok.Cancel()
				} else {
					tok.Cancel()
					obs.Cancel()
				}
			}
			if seen.Load() != 40 {
				t.Errorf("object %d: %d notifications, want 40", i, seen.Load())
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	for _, obj := range objects {
		assert.Equal(t, c, obj.DeclaredClass())
		assert.False(t, IsHooked(obj, set))
		send(t, obj, set, 99)
		v, _ := obj.Get("value")
		assert.Equal(t, 99, v)
	}
}
