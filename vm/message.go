package vm

// SelDoesNotUnderstand is sent with a *Message when a send finds no method.
// Classes that implement it take over the failed send; the result it
// returns is the result of the original send.
var SelDoesNotUnderstand = Sel("doesNotUnderstand:")

// Message is a send that found no method.
type Message struct {
	Selector Selector
	Args     []any
}

// notUnderstood hands a failed send to the receiver's doesNotUnderstand:,
// or reports it when the class chain has none.
func (obj *Object) notUnderstood(sel Selector, args []any) (any, error) {
	if sel != SelDoesNotUnderstand {
		if m := obj.Class().VTable.Lookup(SelDoesNotUnderstand); m != nil {
			return m.Invoke(obj, []any{&Message{Selector: sel, Args: args}})
		}
	}
	return nil, &DoesNotUnderstandError{Receiver: obj.ClassName(), Selector: sel}
}
