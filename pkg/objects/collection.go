package objects

import (
	"context"
	"sort"

	"github.com/pkg/errors"
	"github.com/pseudomuto/pgkeeper/pkg/adapter"
	"github.com/pseudomuto/pgkeeper/pkg/catalog"
	"github.com/pseudomuto/pgkeeper/pkg/sql"
)

// LoadStrategy controls how much a collection loads at construction time.
type LoadStrategy int

const (
	// LoadLazy defers everything until first use.
	LoadLazy LoadStrategy = iota
	// LoadEager fetches metadata and materializes every object up front.
	LoadEager
	// LoadHybrid fetches metadata up front and materializes objects on
	// demand.
	LoadHybrid
)

// managed is satisfied by every object kind through the embedded object.
type managed interface {
	setParent(container)
}

type (
	// kindSpec tells the generic collection how to load one object kind.
	kindSpec[T managed] struct {
		kind    string
		query   string // catalog query name
		grouped bool   // multiple rows per key are expected (overloads)
		keyOf   func(adapter.Row) string
		build   func(exec Executor, rows []adapter.Row) (T, error)
	}

	// Metadata is a fetched but not yet installed collection snapshot. It
	// lets a caller load several collections in parallel on separate
	// connections and merge the results only once every fetch has succeeded.
	Metadata struct {
		rows  map[string][]adapter.Row
		order []string
	}

	// Collection is a keyed, lazily hydrated set of catalog objects.
	// Keys are the bare object name, or "schema.name" outside the public
	// schema. Lookups accept quoted identifiers; unquoted parts fold to
	// lower case.
	Collection[T managed] struct {
		exec     Executor
		strategy LoadStrategy
		spec     kindSpec[T]

		loaded  bool
		rows    map[string][]adapter.Row
		order   []string
		objects map[string]T
	}
)

func newCollection[T managed](ctx context.Context, exec Executor, strategy LoadStrategy, spec kindSpec[T]) (*Collection[T], error) {
	c := &Collection[T]{exec: exec, strategy: strategy, spec: spec}

	switch strategy {
	case LoadEager:
		if err := c.ensure(ctx); err != nil {
			return nil, err
		}
		if err := c.Each(ctx, func(string, T) error { return nil }); err != nil {
			return nil, err
		}
	case LoadHybrid:
		if err := c.ensure(ctx); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Fetch loads collection metadata through the given executor without touching
// the collection's state. Pass the result to Install to make it current.
func (c *Collection[T]) Fetch(ctx context.Context, exec Executor) (*Metadata, error) {
	query, err := catalog.Query(c.spec.query, exec.ServerVersion())
	if err != nil {
		return nil, err
	}

	rows, err := exec.Execute(ctx, sql.Raw(query))
	if err != nil {
		return nil, err
	}

	meta := &Metadata{rows: make(map[string][]adapter.Row, len(rows))}
	for _, row := range rows {
		key := c.spec.keyOf(row)
		if _, ok := meta.rows[key]; !ok {
			meta.order = append(meta.order, key)
		} else if !c.spec.grouped {
			return nil, errors.Errorf("two %s catalog rows map to key %q", c.spec.kind, key)
		}
		meta.rows[key] = append(meta.rows[key], row)
	}
	sort.Strings(meta.order)
	return meta, nil
}

// Install replaces the collection's contents with a previously fetched
// snapshot, discarding any hydrated objects.
func (c *Collection[T]) Install(meta *Metadata) {
	c.rows = meta.rows
	c.order = meta.order
	c.objects = make(map[string]T)
	c.loaded = true
}

func (c *Collection[T]) ensure(ctx context.Context) error {
	if c.loaded {
		return nil
	}
	meta, err := c.Fetch(ctx, c.exec)
	if err != nil {
		return err
	}
	c.Install(meta)
	return nil
}

// Keys returns the sorted collection keys. It never materializes objects.
func (c *Collection[T]) Keys(ctx context.Context) ([]string, error) {
	if err := c.ensure(ctx); err != nil {
		return nil, err
	}
	keys := make([]string, len(c.order))
	copy(keys, c.order)
	return keys, nil
}

// Len returns the number of keys in the collection.
func (c *Collection[T]) Len(ctx context.Context) (int, error) {
	if err := c.ensure(ctx); err != nil {
		return 0, err
	}
	return len(c.order), nil
}

// Contains reports whether the key exists. It never materializes objects.
func (c *Collection[T]) Contains(ctx context.Context, key string) (bool, error) {
	if err := c.ensure(ctx); err != nil {
		return false, err
	}
	_, ok := c.lookup(key)
	return ok, nil
}

// Get returns the object under key, materializing it on first access.
func (c *Collection[T]) Get(ctx context.Context, key string) (T, error) {
	var zero T
	if err := c.ensure(ctx); err != nil {
		return zero, err
	}

	key, ok := c.lookup(key)
	if !ok {
		return zero, &NotFoundError{Kind: c.spec.kind, Key: key}
	}
	if obj, ok := c.objects[key]; ok {
		return obj, nil
	}

	obj, err := c.spec.build(c.exec, c.rows[key])
	if err != nil {
		return zero, errors.Wrapf(err, "materializing %s %q", c.spec.kind, key)
	}
	obj.setParent(c)
	c.objects[key] = obj
	return obj, nil
}

// Each calls fn for every object in key order, materializing lazily. It stops
// on the first error.
func (c *Collection[T]) Each(ctx context.Context, fn func(key string, obj T) error) error {
	keys, err := c.Keys(ctx)
	if err != nil {
		return err
	}
	for _, key := range keys {
		obj, err := c.Get(ctx, key)
		if err != nil {
			return err
		}
		if err := fn(key, obj); err != nil {
			return err
		}
	}
	return nil
}

// Refresh discards cached metadata and objects. The next access reloads from
// the server.
func (c *Collection[T]) Refresh() {
	c.loaded = false
	c.rows = nil
	c.order = nil
	c.objects = nil
}

// evict removes a key after its object is dropped.
func (c *Collection[T]) evict(key string) {
	delete(c.objects, key)
	delete(c.rows, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// add creates the object on the server and registers it under key. The key
// must not already exist.
func (c *Collection[T]) add(ctx context.Context, key string, obj T, create func(context.Context) error) error {
	exists, err := c.Contains(ctx, key)
	if err != nil {
		return err
	}
	if exists {
		return &AlreadyExistsError{Kind: c.spec.kind, Key: key}
	}
	if err := create(ctx); err != nil {
		return err
	}
	c.insert(key, obj)
	return nil
}

// lookup resolves a user-supplied key: exact match first, then with unquoted
// identifier parts folded to lower case.
func (c *Collection[T]) lookup(key string) (string, bool) {
	if _, ok := c.rows[key]; ok {
		return key, true
	}
	if _, ok := c.objects[key]; ok {
		return key, true
	}
	folded := normalizeKey(key)
	if _, ok := c.rows[folded]; ok {
		return folded, true
	}
	if _, ok := c.objects[folded]; ok {
		return folded, true
	}
	return key, false
}

// insert registers an object created through the collection.
func (c *Collection[T]) insert(key string, obj T) {
	if c.objects == nil {
		c.objects = make(map[string]T)
	}
	if c.rows == nil {
		c.rows = make(map[string][]adapter.Row)
	}
	obj.setParent(c)
	c.objects[key] = obj
	if _, ok := c.rows[key]; !ok {
		c.rows[key] = nil
		at := sort.SearchStrings(c.order, key)
		c.order = append(c.order, "")
		copy(c.order[at+1:], c.order[at:])
		c.order[at] = key
	}
}
