package objects

import (
	"context"

	"github.com/pseudomuto/pgkeeper/pkg/sql"
)

// Property identifies a tracked object attribute. Declaration order is the
// apply order: ownership and placement changes run before behavioral flags,
// and renames always run last because they invalidate the name every other
// statement was built with.
type Property int

const (
	PropertyOwner Property = iota + 1
	PropertyTablespace
	PropertySchema
	PropertyRowSecurity
	PropertySuperuser
	PropertyInherit
	PropertyCreateRole
	PropertyCreateDB
	PropertyLogin
	PropertyReplication
	PropertyBypassRLS
	PropertyConnectionLimit
	PropertyValidUntil
	PropertyIsTemplate
	PropertyAllowConnections
	PropertyName
)

var propertyNames = map[Property]string{
	PropertyOwner:            "owner",
	PropertyTablespace:       "tablespace",
	PropertySchema:           "schema",
	PropertyRowSecurity:      "row_security",
	PropertySuperuser:        "superuser",
	PropertyInherit:          "inherit",
	PropertyCreateRole:       "createrole",
	PropertyCreateDB:         "createdb",
	PropertyLogin:            "login",
	PropertyReplication:      "replication",
	PropertyBypassRLS:        "bypassrls",
	PropertyConnectionLimit:  "connection_limit",
	PropertyValidUntil:       "valid_until",
	PropertyIsTemplate:       "is_template",
	PropertyAllowConnections: "allow_connections",
	PropertyName:             "name",
}

func (p Property) String() string {
	if name, ok := propertyNames[p]; ok {
		return name
	}
	return "unknown"
}

type (
	change struct {
		prop  Property
		build func() sql.Composable
	}

	// changeSet holds at most one pending change per property, applied in
	// Property declaration order. Statements are built lazily when they run,
	// not when they are queued, so a statement that applies after a schema
	// move in the same batch references the moved object.
	changeSet struct {
		changes []change
	}
)

// set stores or overwrites the pending change for prop, keeping the list
// ordered by property.
func (cs *changeSet) set(prop Property, build func() sql.Composable) {
	for i, c := range cs.changes {
		if c.prop == prop {
			cs.changes[i].build = build
			return
		}
	}

	at := len(cs.changes)
	for i, c := range cs.changes {
		if prop < c.prop {
			at = i
			break
		}
	}
	cs.changes = append(cs.changes, change{})
	copy(cs.changes[at+1:], cs.changes[at:])
	cs.changes[at] = change{prop: prop, build: build}
}

func (cs *changeSet) clear() { cs.changes = nil }

func (cs *changeSet) empty() bool { return len(cs.changes) == 0 }

func (cs *changeSet) pending() []Property {
	props := make([]Property, len(cs.changes))
	for i, c := range cs.changes {
		props[i] = c.prop
	}
	return props
}

// apply executes pending statements in order, invoking applied after each
// one so the owner can track how far the server-side identity has advanced.
// A single statement runs directly; more than one runs inside a
// no-autocommit scope so a mid-apply failure rolls the whole batch back. The
// queue clears only on success.
func (cs *changeSet) apply(ctx context.Context, exec Executor, applied func(Property)) error {
	if len(cs.changes) == 0 {
		return nil
	}

	run := func(ctx context.Context) error {
		for _, c := range cs.changes {
			if _, err := exec.Execute(ctx, c.build()); err != nil {
				return err
			}
			applied(c.prop)
		}
		return nil
	}

	var err error
	if len(cs.changes) == 1 {
		err = run(ctx)
	} else {
		err = exec.NoAutocommit(ctx, run)
	}
	if err != nil {
		return err
	}

	cs.clear()
	return nil
}
