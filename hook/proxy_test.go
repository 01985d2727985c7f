package hook

import (
	"testing"

	"github.com/chazu/interpose/vm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProxyForwardsEveryMessage(t *testing.T) {
	calc, sum := newCalculator(t)
	target := calc.New()
	var seen []string
	p, err := NewProxy(target, func(inv *Invocation) {
		seen = append(seen, inv.Selector.Name())
	})
	require.NoError(t, err)

	assert.Equal(t, 7, send(t, p, sum, 3, 4))
	assert.Equal(t, []string{"sum:with:"}, seen)
	assert.Same(t, target, ProxyTarget(p))
	assert.Nil(t, ProxyTarget(target))

	_, err = p.Send(vm.Sel("unknownToTarget"))
	assert.ErrorIs(t, err, vm.ErrDoesNotUnderstand)
}

func TestProxyHandlerRewritesAndAnswers(t *testing.T) {
	calc, sum := newCalculator(t)
	p, err := NewProxy(calc.New(), func(inv *Invocation) {
		switch inv.Args[0] {
		case 0:
			inv.Return(-1, nil)
		case 1:
			inv.Args[1] = 100
		case 2:
			inv.Invoke()
			inv.Result = inv.Result.(int) * 2
		}
	})
	require.NoError(t, err)

	assert.Equal(t, -1, send(t, p, sum, 0, 5), "answered without forwarding")
	assert.Equal(t, 101, send(t, p, sum, 1, 5), "forwarded with rewritten arguments")
	assert.Equal(t, 14, send(t, p, sum, 2, 5), "forwarded once, result changed")
	assert.Equal(t, 8, send(t, p, sum, 3, 5))
}

func TestProxyWithoutHandlerSeesTargetHooks(t *testing.T) {
	calc, sum := newCalculator(t)
	target := calc.New()
	p, err := NewProxy(target, nil)
	require.NoError(t, err)

	tok, err := Instead(target, sum, doubling)
	require.NoError(t, err)
	assert.Equal(t, 6, send(t, p, sum, 1, 2))
	tok.Cancel()
	assert.Equal(t, 3, send(t, p, sum, 1, 2))
}

func TestProxyMessagesCanBeHooked(t *testing.T) {
	calc, sum := newCalculator(t)
	p, err := NewProxy(calc.New(), nil)
	require.NoError(t, err)

	var forwarded []vm.Selector
	tok, err := Before(p, vm.SelDoesNotUnderstand, func(self *vm.Object, m *vm.Message) {
		forwarded = append(forwarded, m.Selector)
	})
	require.NoError(t, err)
	defer tok.Cancel()

	assert.Equal(t, 3, send(t, p, sum, 1, 2))
	assert.Equal(t, []vm.Selector{sum}, forwarded)
}

func TestNewProxyErrors(t *testing.T) {
	_, err := NewProxy(nil, nil)
	assert.ErrorIs(t, err, ErrInvalidOwner)

	calc, _ := newCalculator(t)
	obj := calc.New()
	require.NoError(t, obj.Dispose())
	_, err = NewProxy(obj, nil)
	assert.ErrorIs(t, err, vm.ErrObjectDestroyed)
}
