package objects_test

import (
	"context"
	"testing"

	"github.com/pseudomuto/pgkeeper/pkg/adapter"
	. "github.com/pseudomuto/pgkeeper/pkg/objects"
	"github.com/stretchr/testify/require"
)

func slotRow(name, plugin, database string, active bool, pid any) adapter.Row {
	return adapter.Row{
		name, plugin, "logical", database, false, active, pid,
		"755", "754", "0/16B1970", "0/16B19A8",
	}
}

func slotsFixture(t *testing.T, f *fakeExec) *ReplicationSlots {
	t.Helper()

	f.on("s.slot_name",
		slotRow("cdc_main", "pgoutput", "app", true, int64(4242)),
		slotRow("debug", "test_decoding", "app", false, nil),
	)
	slots, err := NewReplicationSlots(context.Background(), f, LoadLazy)
	require.NoError(t, err)
	return slots
}

func TestReplicationSlotsCollection(t *testing.T) {
	f := newFakeExec()
	slots := slotsFixture(t, f)
	ctx := context.Background()

	keys, err := slots.Keys(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"cdc_main", "debug"}, keys)

	slot, err := slots.Get(ctx, "cdc_main")
	require.NoError(t, err)
	require.Equal(t, "pgoutput", slot.Plugin())
	require.Equal(t, "logical", slot.SlotType())
	require.Equal(t, "app", slot.Database())
	require.True(t, slot.Active())
	require.NotNil(t, slot.ActivePID())
	require.Equal(t, int64(4242), *slot.ActivePID())
	require.Equal(t, "0/16B1970", slot.RestartLSN())

	idle, err := slots.Get(ctx, "debug")
	require.NoError(t, err)
	require.False(t, idle.Active())
	require.Nil(t, idle.ActivePID())
}

func TestReplicationSlotsAdd(t *testing.T) {
	f := newFakeExec()
	f.on(`src."slot_name"`, slotRow("events", "pgoutput", "app", false, nil))
	slots := slotsFixture(t, f)
	ctx := context.Background()

	slot := slots.New("events", "pgoutput")
	require.NoError(t, slots.Add(ctx, slot))

	last := f.executed[len(f.executed)-2]
	require.Equal(t, "SELECT pg_create_logical_replication_slot($1, $2)", last.text)
	require.Equal(t, []any{"events", "pgoutput"}, last.args)

	ok, err := slots.Contains(ctx, "events")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestReplicationSlotDefaultPlugin(t *testing.T) {
	f := newFakeExec()
	slots := slotsFixture(t, f)

	slot := slots.New("scratch", "")
	require.Equal(t, DefaultSlotPlugin, slot.Plugin())

	script, err := slot.Script()
	require.NoError(t, err)
	require.Equal(t, "SELECT pg_create_logical_replication_slot('scratch', 'test_decoding')", script)
}

func TestReplicationSlotDrop(t *testing.T) {
	f := newFakeExec()
	slots := slotsFixture(t, f)
	ctx := context.Background()

	slot, err := slots.Get(ctx, "cdc_main")
	require.NoError(t, err)
	require.NoError(t, slot.Drop(ctx))

	texts := f.statements()
	require.Equal(t, []string{
		"SELECT pg_terminate_backend(active_pid) FROM pg_catalog.pg_replication_slots WHERE slot_name = $1 AND active",
		"SELECT pg_drop_replication_slot($1)",
	}, texts[len(texts)-2:])

	ok, err := slots.Contains(ctx, "cdc_main")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestReplicationSlotDropIfExists(t *testing.T) {
	f := newFakeExec()
	slots := slotsFixture(t, f)
	ctx := context.Background()

	// Never-created slots drop without a disconnect round trip.
	scratch := slots.New("scratch", "test_decoding")
	require.NoError(t, scratch.DropIfExists(ctx))

	texts := f.statements()
	require.Equal(
		t,
		"SELECT pg_drop_replication_slot(slot_name) FROM pg_catalog.pg_replication_slots WHERE slot_name = $1",
		texts[len(texts)-1],
	)
	require.NotContains(t, texts, "SELECT pg_terminate_backend(active_pid) FROM pg_catalog.pg_replication_slots WHERE slot_name = $1 AND active")
}
