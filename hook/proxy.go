package hook

import (
	"fmt"
	"sync"

	"github.com/chazu/interpose/vm"
)

// InvocationHandler sees every message a proxy forwards.
type InvocationHandler func(inv *Invocation)

type proxyState struct {
	target  *vm.Object
	handler InvocationHandler
}

type proxyKey struct{}

// proxyClass implements nothing but the root methods and
// doesNotUnderstand:, so every other send reaches the handler.
var proxyClass = sync.OnceValue(func() *vm.Class {
	c := vm.NewClass("ObjectProxy", nil)
	c.AddMethod1(vm.SelDoesNotUnderstand.Name(), "@24@0:8@16", forwardMessage)
	return c
})

// NewProxy returns an object that forwards every message to target.
//
// handler, if not nil, is called first with an Invocation whose original
// sends the message to target. It may change Args, call Invoke, or answer
// with Return; when it does neither the message is forwarded once it
// returns. The proxy holds target strongly.
func NewProxy(target *vm.Object, handler InvocationHandler) (*vm.Object, error) {
	if target == nil {
		return nil, fmt.Errorf("%w: proxy target is nil", ErrInvalidOwner)
	}
	if target.IsDestroyed() {
		return nil, fmt.Errorf("proxy for %s: %w", target, vm.ErrObjectDestroyed)
	}
	p := proxyClass().New()
	p.SetAssociated(proxyKey{}, &proxyState{target: target, handler: handler})
	log.Debugf("%s proxies %s", p, target)
	return p, nil
}

// ProxyTarget returns the object p forwards to, or nil when p is not a
// proxy.
func ProxyTarget(p *vm.Object) *vm.Object {
	if st, ok := p.Associated(proxyKey{}).(*proxyState); ok {
		return st.target
	}
	return nil
}

func forwardMessage(self any, m any) (any, error) {
	p, _ := self.(*vm.Object)
	msg, _ := m.(*vm.Message)
	if p == nil || msg == nil {
		return nil, &vm.DoesNotUnderstandError{Receiver: receiverName(self), Selector: vm.SelDoesNotUnderstand}
	}
	st, ok := p.Associated(proxyKey{}).(*proxyState)
	if !ok {
		return nil, &vm.DoesNotUnderstandError{Receiver: p.ClassName(), Selector: msg.Selector}
	}

	sel := msg.Selector
	inv := &Invocation{
		Receiver: p,
		Selector: sel,
		Args:     msg.Args,
		original: wrapOriginal(func(args []any) (any, error) { return st.target.Send(sel, args...) }),
	}
	if st.handler != nil {
		st.handler(inv)
	}
	if !inv.done {
		inv.Invoke()
	}
	return inv.Result, inv.Err
}
