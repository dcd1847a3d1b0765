package execctx

import (
	"fmt"
	"reflect"
	"sync"

	"oss.nandlabs.io/golly/errutils"
)

// VerifyService is the optional capability a registered service can
// implement to assert its own required dependencies are present. Services
// lacking this capability are assumed self-sufficient.
type VerifyService interface {
	Verify() error
}

// Services is the read-mostly, reader-writer-lock-guarded service locator
// Services are keyed by their concrete Go
// type, the same shape golly/managers.ItemManager[T] uses for a
// string-keyed registry, adapted here to a type-keyed one since jobfire
// has no natural string name per service.
type Services struct {
	mu    sync.RWMutex
	items map[reflect.Type]any
}

// NewServices builds an empty service locator.
func NewServices() *Services {
	return &Services{items: make(map[reflect.Type]any)}
}

// Register adds svc to the locator, keyed by its own concrete type.
// Registering a second value of the same type replaces the first.
func Register[T any](s *Services, svc T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[reflect.TypeOf(&svc).Elem()] = svc
}

// Get returns the registered service of type T, or the zero value and
// false if none was registered. This is the hot-path read: callers on a
// busy loop should use Get, not GetRequired, when absence is expected and
// handled.
func Get[T any](s *Services) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var zero T
	raw, ok := s.items[reflect.TypeOf(&zero).Elem()]
	if !ok {
		return zero, false
	}
	v, ok := raw.(T)
	return v, ok
}

// GetRequired returns the registered service of type T, panicking if it
// was never registered. Intended for services the Manager's build-time
// Verify already guaranteed exist — this is the "aborts if absent on the
// hot path" behavior a runner needs, since by the time it
// reaches for a service, construction-time verification already ran.
func GetRequired[T any](s *Services) T {
	v, ok := Get[T](s)
	if !ok {
		var zero T
		panic(fmt.Sprintf("jobfire: required service missing from locator: %T", zero))
	}
	return v
}

// Verify walks every registered service implementing VerifyService and
// collects every failure, not just the first — grounded on
// golly/lifecycle's use of errutils.MultiError to aggregate independent
// component failures in StartAll/StopAll. Returns nil if every verifiable
// service is satisfied.
func (s *Services) Verify() error {
	s.mu.RLock()
	values := make([]any, 0, len(s.items))
	for _, v := range s.items {
		values = append(values, v)
	}
	s.mu.RUnlock()

	multiErr := errutils.NewMultiErr(nil)
	for _, v := range values {
		if verifiable, ok := v.(VerifyService); ok {
			if err := verifiable.Verify(); err != nil {
				multiErr.Add(err)
			}
		}
	}
	if multiErr.HasErrors() {
		return multiErr
	}
	return nil
}
