package hook

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/fxamacker/cbor/v2"
)

// HookRecord describes one active hook.
type HookRecord struct {
	ID          string `cbor:"1,keyasint"`
	Owner       string `cbor:"2,keyasint"`
	Scope       string `cbor:"3,keyasint"`
	Selector    string `cbor:"4,keyasint"`
	Mode        string `cbor:"5,keyasint"`
	Kind        string `cbor:"6,keyasint"`
	Synthesized bool   `cbor:"7,keyasint,omitempty"`
}

// Snapshot lists every active hook in the process.
type Snapshot struct {
	Hooks []HookRecord `cbor:"1,keyasint"`
}

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("hook: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// TakeSnapshot records every active hook, ordered by owner and selector and
// by registration order within a selector.
func TakeSnapshot() *Snapshot {
	s := &Snapshot{}
	queue.do(func() {
		for _, r := range classRegistries {
			s.Hooks = append(s.Hooks, r.recordsLocked()...)
		}
		for r := range objectRegistries {
			s.Hooks = append(s.Hooks, r.recordsLocked()...)
		}
	})
	slices.SortStableFunc(s.Hooks, func(a, b HookRecord) int {
		return cmp.Or(
			cmp.Compare(a.Owner, b.Owner),
			cmp.Compare(a.Scope, b.Scope),
			cmp.Compare(a.Selector, b.Selector),
		)
	})
	return s
}

func (r *registry) recordsLocked() []HookRecord {
	var out []HookRecord
	for _, h := range r.activeLocked(nil) {
		out = append(out, HookRecord{
			ID:          h.id.String(),
			Owner:       r.target.String(),
			Scope:       r.target.scope.String(),
			Selector:    h.sel.Name(),
			Mode:        h.mode.String(),
			Kind:        h.kind.String(),
			Synthesized: r.synthesized[h.sel],
		})
	}
	return out
}

// For returns the records for one owner.
func (s *Snapshot) For(owner string) []HookRecord {
	var out []HookRecord
	for _, rec := range s.Hooks {
		if rec.Owner == owner {
			out = append(out, rec)
		}
	}
	return out
}

// MarshalSnapshot serializes a Snapshot to canonical CBOR bytes.
func MarshalSnapshot(s *Snapshot) ([]byte, error) {
	return cborEncMode.Marshal(s)
}

// UnmarshalSnapshot deserializes a Snapshot from CBOR bytes.
func UnmarshalSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := cbor.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("hook: unmarshal snapshot: %w", err)
	}
	return &s, nil
}
