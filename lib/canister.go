package lib

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// CanisterCaller calls methods of other components. reply receives the
// decoded result.
type CanisterCaller interface {
	Call(ctx context.Context, canister Principal, method string, args []interface{}, reply interface{}) error
}

// Handler serves one exposed method.
type Handler func(ctx context.Context, args []interface{}) (interface{}, error)

// Registrar accepts the methods a component exposes to others.
type Registrar interface {
	Register(canister Principal, method string, h Handler)
}

// LocalCanisters routes calls between components running in one process.
// Results travel as JSON so callers may decode them into their own types.
type LocalCanisters struct {
	lock     sync.RWMutex
	handlers map[string]map[string]Handler
}

func NewLocalCanisters() *LocalCanisters {
	return &LocalCanisters{handlers: make(map[string]map[string]Handler)}
}

func (l *LocalCanisters) Register(canister Principal, method string, h Handler) {
	l.lock.Lock()
	defer l.lock.Unlock()
	key := canister.String()
	if l.handlers[key] == nil {
		l.handlers[key] = make(map[string]Handler)
	}
	l.handlers[key][method] = h
}

func (l *LocalCanisters) Call(ctx context.Context, canister Principal, method string, args []interface{}, reply interface{}) error {
	l.lock.RLock()
	h, ok := l.handlers[canister.String()][method]
	l.lock.RUnlock()
	if !ok {
		return fmt.Errorf("canister %s has no method %s", canister, method)
	}

	result, err := h(ctx, args)
	if err != nil {
		return fmt.Errorf("error calling %s on %s: %w", method, canister, err)
	}
	if reply == nil {
		return nil
	}
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("error encoding result of %s: %w", method, err)
	}
	if err := json.Unmarshal(data, reply); err != nil {
		return fmt.Errorf("error decoding result of %s: %w", method, err)
	}
	return nil
}

// DecodeArg converts a call argument into dst, which may be of a different
// type with the same JSON shape.
func DecodeArg(arg interface{}, dst interface{}) error {
	data, err := json.Marshal(arg)
	if err != nil {
		return fmt.Errorf("error encoding argument: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("error decoding argument: %w", err)
	}
	return nil
}

// Arg returns argument i, or an error naming the method when it is missing.
func Arg(method string, args []interface{}, i int) (interface{}, error) {
	if i >= len(args) {
		return nil, fmt.Errorf("%s expects at least %d arguments, got %d", method, i+1, len(args))
	}
	return args[i], nil
}

// PageArgs decodes the (from, limit) arguments of paged queries. Missing
// arguments are zero.
func PageArgs(method string, args []interface{}) (uint64, uint64, error) {
	var out [2]uint64
	for i := 0; i < len(args) && i < len(out); i++ {
		if err := DecodeArg(args[i], &out[i]); err != nil {
			return 0, 0, fmt.Errorf("argument %d of %s: %w", i, method, err)
		}
	}
	return out[0], out[1], nil
}
