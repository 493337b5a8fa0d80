package objects

import (
	"context"

	"github.com/pseudomuto/pgkeeper/pkg/adapter"
	"github.com/pseudomuto/pgkeeper/pkg/catalog"
	"github.com/pseudomuto/pgkeeper/pkg/sql"
)

// DefaultSlotPlugin is the logical decoding plugin used when none is given.
const DefaultSlotPlugin = "test_decoding"

// ReplicationSlot represents a replication slot. Slots live outside the
// regular catalog and carry no OID; they are identified by name alone.
type ReplicationSlot struct {
	object

	plugin            string
	slotType          string
	database          string
	temporary         bool
	active            bool
	activePID         *int64
	xmin              string
	catalogXmin       string
	restartLSN        string
	confirmedFlushLSN string
}

// NewReplicationSlot returns an ephemeral logical slot definition. An empty
// plugin falls back to DefaultSlotPlugin.
func NewReplicationSlot(exec Executor, name, plugin string) *ReplicationSlot {
	if plugin == "" {
		plugin = DefaultSlotPlugin
	}
	return &ReplicationSlot{
		object:   newObject(exec, "REPLICATION SLOT", name, ""),
		plugin:   plugin,
		slotType: "logical",
	}
}

func (r *ReplicationSlot) Plugin() string { return r.plugin }
func (r *ReplicationSlot) SlotType() string { return r.slotType }
func (r *ReplicationSlot) Database() string { return r.database }
func (r *ReplicationSlot) Temporary() bool { return r.temporary }
func (r *ReplicationSlot) Active() bool { return r.active }
func (r *ReplicationSlot) ActivePID() *int64 { return r.activePID }
func (r *ReplicationSlot) Xmin() string { return r.xmin }
func (r *ReplicationSlot) CatalogXmin() string { return r.catalogXmin }
func (r *ReplicationSlot) RestartLSN() string { return r.restartLSN }
func (r *ReplicationSlot) ConfirmedFlushLSN() string { return r.confirmedFlushLSN }

// Create creates the logical slot on the server.
func (r *ReplicationSlot) Create(ctx context.Context) error {
	if err := r.ensureEphemeral("create"); err != nil {
		return err
	}
	_, err := r.exec.Execute(ctx, sql.MustFormat(
		"SELECT pg_create_logical_replication_slot({name}, {plugin})",
		sql.Args{"name": sql.Value(r.name), "plugin": sql.Value(r.plugin)},
	))
	if err != nil {
		return err
	}
	r.markSynced(0)
	return r.Refresh(ctx)
}

// Disconnect terminates the backend currently streaming from the slot, if
// any. The slot itself stays.
func (r *ReplicationSlot) Disconnect(ctx context.Context) error {
	if err := r.ensureSynced("disconnect"); err != nil {
		return err
	}
	_, err := r.exec.Execute(ctx, sql.MustFormat(
		"SELECT pg_terminate_backend(active_pid) FROM pg_catalog.pg_replication_slots"+
			" WHERE slot_name = {name} AND active",
		sql.Args{"name": sql.Value(r.name)},
	))
	if err != nil {
		return err
	}
	r.active = false
	r.activePID = nil
	return nil
}

// Drop disconnects any consumer and removes the slot.
func (r *ReplicationSlot) Drop(ctx context.Context) error { return r.drop(ctx, false) }

// DropIfExists removes the slot when it exists on the server and is a no-op
// otherwise. pg_drop_replication_slot has no IF EXISTS form, so the call is
// filtered through pg_replication_slots instead.
func (r *ReplicationSlot) DropIfExists(ctx context.Context) error { return r.drop(ctx, true) }

func (r *ReplicationSlot) drop(ctx context.Context, ifExists bool) error {
	if err := r.ensureDroppable(ifExists); err != nil {
		return err
	}
	if !r.ephemeral() {
		if err := r.Disconnect(ctx); err != nil {
			return err
		}
	}
	text := "SELECT pg_drop_replication_slot({name})"
	if ifExists {
		text = "SELECT pg_drop_replication_slot(slot_name) FROM pg_catalog.pg_replication_slots" +
			" WHERE slot_name = {name}"
	}
	_, err := r.exec.Execute(ctx, sql.MustFormat(text, sql.Args{
		"name": sql.Value(r.name),
	}))
	if err != nil {
		return err
	}
	r.markDropped()
	return nil
}

// Refresh reloads the slot's state from pg_replication_slots.
func (r *ReplicationSlot) Refresh(ctx context.Context) error {
	if err := r.ensureSynced("refresh"); err != nil {
		return err
	}
	row, err := fetchOne(ctx, r.exec, catalog.ReplicationSlots, r.kind, r.Key(), "slot_name", r.name)
	if err != nil {
		return err
	}
	mapReplicationSlot(r, row)
	return nil
}

// Script renders the function call reproducing this slot.
func (r *ReplicationSlot) Script() (string, error) {
	return sql.RenderInline(sql.MustFormat(
		"SELECT pg_create_logical_replication_slot({name}, {plugin})",
		sql.Args{"name": sql.Value(r.name), "plugin": sql.Value(r.plugin)},
	))
}

func mapReplicationSlot(r *ReplicationSlot, row adapter.Row) {
	r.name = row.String(0)
	r.plugin = row.String(1)
	r.slotType = row.String(2)
	r.database = row.String(3)
	r.temporary = row.Bool(4)
	r.active = row.Bool(5)
	r.activePID = row.NullInt(6)
	r.xmin = row.String(7)
	r.catalogXmin = row.String(8)
	r.restartLSN = row.String(9)
	r.confirmedFlushLSN = row.String(10)
	r.markSynced(0)
}

// ReplicationSlots is the slot collection, keyed by slot name.
type ReplicationSlots struct {
	*Collection[*ReplicationSlot]
}

// NewReplicationSlots builds the slot collection with the given load strategy.
func NewReplicationSlots(ctx context.Context, exec Executor, strategy LoadStrategy) (*ReplicationSlots, error) {
	c, err := newCollection(ctx, exec, strategy, kindSpec[*ReplicationSlot]{
		kind:  "REPLICATION SLOT",
		query: catalog.ReplicationSlots,
		keyOf: func(row adapter.Row) string { return row.String(0) },
		build: func(exec Executor, rows []adapter.Row) (*ReplicationSlot, error) {
			r := NewReplicationSlot(exec, rows[0].String(0), rows[0].String(1))
			mapReplicationSlot(r, rows[0])
			return r, nil
		},
	})
	if err != nil {
		return nil, err
	}
	return &ReplicationSlots{Collection: c}, nil
}

// New returns an ephemeral slot attached to this collection's executor.
func (r *ReplicationSlots) New(name, plugin string) *ReplicationSlot {
	return NewReplicationSlot(r.exec, name, plugin)
}

// Add creates the slot on the server and registers it in the collection.
func (r *ReplicationSlots) Add(ctx context.Context, slot *ReplicationSlot) error {
	return r.add(ctx, slot.Key(), slot, slot.Create)
}
