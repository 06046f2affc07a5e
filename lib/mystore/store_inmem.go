package mystore

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"
)

type InMemoryStore[T any] struct {
	sync.Mutex
	Items map[string]T
}

func NewInMemoryStore[T any](c context.Context) (*InMemoryStore[T], func(), error) {
	return &InMemoryStore[T]{
		Items: make(map[string]T),
	}, func() {}, nil
}

func (s *InMemoryStore[T]) RunInTransaction(c context.Context, f func(c context.Context) error) error {
	// Start transaction
	s.Lock()

	ctx := context.WithValue(c, ctxTransactionKey{}, true)

	// Within this block everything is transactional
	err := f(ctx)
	if err != nil {
		// Rollback
		s.Unlock()

		return err
	}

	// Commit
	s.Unlock()

	return nil
}

func (s *InMemoryStore[T]) Put(c context.Context, uid string, value T) error {
	nonTransactional := c.Value(ctxTransactionKey{}) == nil

	if nonTransactional {
		s.Lock()
	}

	s.Items[uid] = value

	if nonTransactional {
		s.Unlock()
	}

	return nil
}

func (s *InMemoryStore[T]) Get(c context.Context, uid string) (T, bool, error) {
	nonTransactional := c.Value(ctxTransactionKey{}) == nil

	if nonTransactional {
		s.Lock()
	}
	result, exists := s.Items[uid]

	if nonTransactional {
		s.Unlock()
	}

	return result, exists, nil
}

func (s *InMemoryStore[T]) List(c context.Context) ([]T, error) {
	nonTransactional := c.Value(ctxTransactionKey{}) == nil

	if nonTransactional {
		s.Lock()
	}

	result := make([]T, 0, len(s.Items))
	for _, v := range s.Items {
		result = append(result, v)
	}

	if nonTransactional {
		s.Unlock()
	}

	return result, nil
}

// Query evaluates filters in memory so that dev and test behave like the
// datastore-backed implementation. Only the "=" comparator is supported.
func (s *InMemoryStore[T]) Query(c context.Context, filters []Filter, orderByField string) ([]T, error) {
	all, err := s.List(c)
	if err != nil {
		return nil, err
	}

	result := make([]T, 0, len(all))
	for _, item := range all {
		matches, err := matchesFilters(item, filters)
		if err != nil {
			return nil, err
		}
		if matches {
			result = append(result, item)
		}
	}

	if orderByField != "" {
		sort.SliceStable(result, func(i, j int) bool {
			return lessByField(result[i], result[j], orderByField)
		})
	}

	return result, nil
}

func matchesFilters[T any](item T, filters []Filter) (bool, error) {
	for _, f := range filters {
		if f.Compare != "=" {
			return false, fmt.Errorf("unsupported comparator %s", f.Compare)
		}
		field := reflect.ValueOf(item).FieldByName(f.Field)
		if !field.IsValid() {
			return false, fmt.Errorf("unknown field %s", f.Field)
		}
		if field.Interface() != f.Value {
			return false, nil
		}
	}
	return true, nil
}

func lessByField[T any](a, b T, fieldName string) bool {
	fieldA := reflect.ValueOf(a).FieldByName(fieldName)
	fieldB := reflect.ValueOf(b).FieldByName(fieldName)
	if !fieldA.IsValid() || !fieldB.IsValid() {
		return false
	}

	switch valA := fieldA.Interface().(type) {
	case time.Time:
		return valA.Before(fieldB.Interface().(time.Time))
	case string:
		return valA < fieldB.Interface().(string)
	case int64:
		return valA < fieldB.Interface().(int64)
	case int:
		return valA < fieldB.Interface().(int)
	default:
		return false
	}
}
