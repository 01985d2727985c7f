package vm

import (
	"strings"

	"github.com/chazu/interpose/signature"
)

// ValueForKey reads key through its getter when the object responds to
// one, otherwise from the instance variable. It never panics; ok is false
// when there is neither or the getter fails.
func (obj *Object) ValueForKey(key string) (value any, ok bool) {
	if key == "" || obj == nil || obj.IsDestroyed() {
		return nil, false
	}
	if getter, ok := LookupSelector(key); ok && getter.NumArgs() == 0 && obj.RespondsTo(getter) {
		v, err := obj.Send(getter)
		if err != nil {
			vmLog.Debugf("%s #%s: %v", obj, getter, err)
			return nil, false
		}
		return v, true
	}
	return obj.Get(key)
}

// SetValueForKey writes key through its setter when the object responds to
// one, so observers and hooks see the change, otherwise into the instance
// variable. It reports whether the value was stored.
func (obj *Object) SetValueForKey(key string, value any) bool {
	if key == "" || obj == nil || obj.IsDestroyed() {
		return false
	}
	if setter, ok := LookupSelector(signature.SetterFor(key)); ok && obj.RespondsTo(setter) {
		if _, err := obj.Send(setter, value); err != nil {
			vmLog.Debugf("%s #%s: %v", obj, setter, err)
			return false
		}
		return true
	}
	return obj.Set(key, value)
}

// ValueForKeyPath follows a dot-separated path of keys. Every step but the
// last must yield an *Object; a missing key or any other value ends the
// walk with ok false.
func (obj *Object) ValueForKeyPath(path string) (value any, ok bool) {
	owner, key, ok := obj.walkKeyPath(path)
	if !ok {
		return nil, false
	}
	return owner.ValueForKey(key)
}

// SetValueForKeyPath sets the last key of a dot-separated path on the
// object the rest of the path leads to. It reports whether the value was
// stored.
func (obj *Object) SetValueForKeyPath(path string, value any) bool {
	owner, key, ok := obj.walkKeyPath(path)
	if !ok {
		return false
	}
	return owner.SetValueForKey(key, value)
}

// walkKeyPath resolves all but the last key of path.
func (obj *Object) walkKeyPath(path string) (*Object, string, bool) {
	keys := strings.Split(path, ".")
	cur := obj
	for _, key := range keys[:len(keys)-1] {
		v, ok := cur.ValueForKey(key)
		if !ok {
			return nil, "", false
		}
		next, isObj := v.(*Object)
		if !isObj || next == nil {
			return nil, "", false
		}
		cur = next
	}
	return cur, keys[len(keys)-1], cur != nil
}
