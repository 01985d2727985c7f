package vm

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/chazu/interpose/signature"
)

// ObservedTag marks classes synthesized by Observe.
const ObservedTag = "observed"

// ObserverFunc is called after an observed setter has run.
type ObserverFunc func(obj *Object, key string, old, new any)

// Observation is one registered change observer. Cancel it to stop
// notifications.
type Observation struct {
	obj       *Object
	key       string
	fn        ObserverFunc
	cancelled atomic.Bool
}

// Key returns the observed key.
func (o *Observation) Key() string { return o.key }

// observerSet is the per-object observer list kept in the object's
// associations.
type observerSet struct {
	mu    sync.Mutex
	byKey map[string][]*Observation
}

type observersKey struct{}

var (
	observationMu   sync.Mutex
	observedClasses = map[*Class]*Class{}
)

// Observe reports every change made through the setter for key on obj.
//
// The object is moved to a synthesized <Class>_Observed subclass whose
// setter calls the inherited implementation and then notifies. If another
// mechanism has already substituted the object's class, the observed class
// is layered on top of whatever class the object currently has; an object
// that already carries an observed class anywhere in its synthesized chain
// reuses it.
func Observe(obj *Object, key string, fn ObserverFunc) (*Observation, error) {
	if obj.IsDestroyed() {
		return nil, fmt.Errorf("observe %q: %w", key, ErrObjectDestroyed)
	}
	sel := Sel(signature.SetterFor(key))
	if !obj.RespondsTo(sel) {
		return nil, &DoesNotUnderstandError{Receiver: obj.ClassName(), Selector: sel}
	}

	observationMu.Lock()
	defer observationMu.Unlock()

	var sub *Class
	for {
		cur := obj.Class()
		if existing := cur.SynthesizedWithTag(ObservedTag); existing != nil {
			sub = existing
			break
		}
		sub = observedSubclassLocked(cur)
		if obj.CompareAndSwapClass(cur, sub) {
			vmLog.Debugf("object %s now observed through %s", obj, sub)
			break
		}
	}
	if !sub.VTable.HasMethod(sel) {
		sub.VTable.AddMethod(sel, observingSetter(sub, key, sel))
	}

	o := &Observation{obj: obj, key: key, fn: fn}
	set := obj.LoadOrStoreAssociated(observersKey{}, func() any {
		return &observerSet{byKey: map[string][]*Observation{}}
	}).(*observerSet)
	set.mu.Lock()
	set.byKey[key] = append(set.byKey[key], o)
	set.mu.Unlock()
	return o, nil
}

// Cancel removes the observation. When the object has no observers left
// and its class is still exactly the observed subclass, the object goes
// back to that subclass's parent.
func (o *Observation) Cancel() {
	if !o.cancelled.CompareAndSwap(false, true) {
		return
	}
	set, _ := o.obj.Associated(observersKey{}).(*observerSet)
	if set == nil {
		return
	}
	set.mu.Lock()
	list := set.byKey[o.key]
	for i, other := range list {
		if other == o {
			set.byKey[o.key] = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if len(set.byKey[o.key]) == 0 {
		delete(set.byKey, o.key)
	}
	empty := len(set.byKey) == 0
	set.mu.Unlock()
	if !empty {
		return
	}

	observationMu.Lock()
	defer observationMu.Unlock()
	cur := o.obj.Class()
	if cur.Tag() == ObservedTag && o.obj.CompareAndSwapClass(cur, cur.Superclass) {
		vmLog.Debugf("object %s no longer observed", o.obj)
	}
}

func observedSubclassLocked(cur *Class) *Class {
	if sub, ok := observedClasses[cur]; ok {
		return sub
	}
	sub := AllocateSubclass(cur, cur.Name+"_Observed", ObservedTag)
	observedClasses[cur] = sub
	return sub
}

func observingSetter(sub *Class, key string, sel Selector) Method {
	types := ""
	if inherited := sub.Superclass.VTable.Lookup(sel); inherited != nil {
		types = MethodTypes(inherited)
	}
	return NewMethod1(sel.Name(), types, func(self any, value any) (any, error) {
		obj, ok := self.(*Object)
		if !ok {
			return nil, &DoesNotUnderstandError{Receiver: fmt.Sprint(self), Selector: sel}
		}
		old, _ := obj.Get(key)
		result, err := sub.SendSuper(obj, sel, value)
		if err != nil {
			return result, err
		}
		value, _ = obj.Get(key)
		notifyObservers(obj, key, old, value)
		return result, nil
	})
}

func notifyObservers(obj *Object, key string, old, value any) {
	set, _ := obj.Associated(observersKey{}).(*observerSet)
	if set == nil {
		return
	}
	set.mu.Lock()
	list := append([]*Observation(nil), set.byKey[key]...)
	set.mu.Unlock()
	for _, o := range list {
		if !o.cancelled.Load() {
			o.fn(obj, key, old, value)
		}
	}
}
