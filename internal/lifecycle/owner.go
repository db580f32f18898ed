package lifecycle

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/giantswarm/sidecarshell/internal/sentinel"
)

// ErrAlreadyHolding is returned by Hold when the owner is not Uninitialized.
const ErrAlreadyHolding = sentinel.Error("lifecycle owner already holds or has released a handle")

// ErrNilHandle is returned by Hold when given a nil handle.
const ErrNilHandle = sentinel.Error("handle must not be nil")

// Killer is anything that can be terminated. *process.Process implements it.
type Killer interface {
	Kill() error
}

// State is the owner's position in Uninitialized → Holding → Terminated.
type State int

const (
	Uninitialized State = iota
	Holding
	Terminated
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Holding:
		return "holding"
	case Terminated:
		return "terminated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Owner holds at most one handle. The zero value is ready to use.
type Owner[H Killer] struct {
	mu     sync.Mutex
	handle H
	has    bool
	state  State
}

// Hold stores h. It may only be called once, before Terminate.
func (o *Owner[H]) Hold(h H) error {
	if isNil(h) {
		return ErrNilHandle
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != Uninitialized {
		return fmt.Errorf("hold in state %s: %w", o.state, ErrAlreadyHolding)
	}
	o.handle = h
	o.has = true
	o.state = Holding
	return nil
}

// Take empties the slot and returns what it held. ok is false if the slot
// was already empty. After Take the owner is Terminated.
func (o *Owner[H]) Take() (h H, ok bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	h, ok = o.handle, o.has
	var zero H
	o.handle = zero
	o.has = false
	o.state = Terminated
	return h, ok
}

// Terminate takes the handle and kills it. Only the first caller to find a
// handle kills it and gets killed=true; every later or concurrent caller is
// a no-op. The kill runs outside the lock so a slow stop does not block
// readers of State.
func (o *Owner[H]) Terminate() (killed bool, err error) {
	h, ok := o.Take()
	if !ok {
		return false, nil
	}
	return true, h.Kill()
}

// State returns the current lifecycle state.
func (o *Owner[H]) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Peek returns the held handle without taking it.
func (o *Owner[H]) Peek() (H, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.handle, o.has
}

// isNil reports whether h is a nil interface or a typed nil pointer.
func isNil[H Killer](h H) bool {
	var k Killer = h
	if k == nil {
		return true
	}
	v := reflect.ValueOf(k)
	return v.Kind() == reflect.Pointer && v.IsNil()
}
