package services

import (
	"testing"
	"time"

	"clinic-console-server/internal/bus"
	"clinic-console-server/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectoryView_InitialSnapshot(t *testing.T) {
	env := newTestEnv(t)
	svc := env.conversationService()

	patient := env.addProfile(t, "patient-1", models.RolePatient)
	env.addConversation(t, "conv-1", patient.ID, nil, time.Now())

	view, err := svc.OpenDirectory(patient)
	require.NoError(t, err)
	defer view.Close()

	snapshot := view.Snapshot()
	require.Len(t, snapshot, 1)
	assert.Equal(t, "conv-1", snapshot[0].ID)
}

func TestDirectoryView_RefreshOnConversationEvent(t *testing.T) {
	env := newTestEnv(t)
	svc := env.conversationService()

	patient := env.addProfile(t, "patient-1", models.RolePatient)

	view, err := svc.OpenDirectory(patient)
	require.NoError(t, err)
	defer view.Close()
	assert.Empty(t, view.Snapshot())

	// Creating through the service publishes the event that drives the view
	conv, err := svc.CreateConversation(patient, "", "whatsapp", "", "")
	require.NoError(t, err)

	snapshot := view.Snapshot()
	require.Len(t, snapshot, 1)
	assert.Equal(t, conv.ID, snapshot[0].ID)
}

func TestDirectoryView_RefreshOnMessageInsert(t *testing.T) {
	env := newTestEnv(t)
	svc := env.conversationService()
	msgSvc := env.messageService()

	patient := env.addProfile(t, "patient-1", models.RolePatient)
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	env.addConversation(t, "conv-old", patient.ID, nil, base)
	env.addConversation(t, "conv-new", patient.ID, nil, base.Add(time.Hour))

	view, err := svc.OpenDirectory(patient)
	require.NoError(t, err)
	defer view.Close()

	snapshot := view.Snapshot()
	require.Len(t, snapshot, 2)
	assert.Equal(t, "conv-new", snapshot[0].ID)

	// A message in the older conversation moves it to the top and sets its preview
	_, err = msgSvc.Send("conv-old", patient.ID, "ping", "whatsapp")
	require.NoError(t, err)

	snapshot = view.Snapshot()
	require.Len(t, snapshot, 2)
	assert.Equal(t, "conv-old", snapshot[0].ID)
	require.NotNil(t, snapshot[0].Preview)
	assert.Equal(t, "ping", *snapshot[0].Preview)
}

func TestDirectoryView_DuplicateEventsConverge(t *testing.T) {
	env := newTestEnv(t)
	svc := env.conversationService()

	patient := env.addProfile(t, "patient-1", models.RolePatient)
	env.addConversation(t, "conv-1", patient.ID, nil, time.Now())

	view, err := svc.OpenDirectory(patient)
	require.NoError(t, err)
	defer view.Close()

	before := view.Snapshot()

	// Delivering the same notification repeatedly must not change the result
	for i := 0; i < 5; i++ {
		require.NoError(t, env.bus.Publish(bus.Event{
			Table: bus.TableConversations,
			Op:    bus.OpUpdate,
			RowID: "conv-1",
		}))
	}

	after := view.Snapshot()
	require.Len(t, after, len(before))
	for i := range after {
		assert.Equal(t, before[i].ID, after[i].ID)
	}
}

func TestDirectoryView_UpdatesSignalCoalesces(t *testing.T) {
	env := newTestEnv(t)
	svc := env.conversationService()

	patient := env.addProfile(t, "patient-1", models.RolePatient)

	view, err := svc.OpenDirectory(patient)
	require.NoError(t, err)
	defer view.Close()

	// Drain the initial-load signal if present
	select {
	case <-view.Updates():
	default:
	}

	for i := 0; i < 3; i++ {
		require.NoError(t, env.bus.Publish(bus.Event{
			Table: bus.TableConversations,
			Op:    bus.OpUpdate,
			RowID: "conv-1",
		}))
	}

	// A burst collapses into at most one pending signal
	select {
	case _, ok := <-view.Updates():
		assert.True(t, ok)
	default:
		t.Fatal("expected a pending update signal")
	}
	select {
	case <-view.Updates():
		t.Fatal("expected the burst to coalesce into one signal")
	default:
	}
}

func TestDirectoryView_Close(t *testing.T) {
	env := newTestEnv(t)
	svc := env.conversationService()

	patient := env.addProfile(t, "patient-1", models.RolePatient)
	env.addConversation(t, "conv-1", patient.ID, nil, time.Now())

	view, err := svc.OpenDirectory(patient)
	require.NoError(t, err)

	view.Close()
	view.Close() // idempotent

	// Updates channel is closed
	_, ok := <-view.Updates()
	assert.False(t, ok)

	// Events after close do not touch the snapshot
	snapshot := view.Snapshot()
	require.NoError(t, env.bus.Publish(bus.Event{
		Table: bus.TableConversations,
		Op:    bus.OpInsert,
		RowID: "conv-2",
	}))
	assert.Equal(t, len(snapshot), len(view.Snapshot()))
}

func TestDirectoryView_Errors(t *testing.T) {
	env := newTestEnv(t)
	svc := env.conversationService()

	_, err := svc.OpenDirectory(models.Actor{})
	assert.True(t, IsSession(err))

	_, err = svc.OpenDirectory(models.Actor{ID: "x", Role: "auditor"})
	assert.True(t, IsForbidden(err))
}

func TestDirectoryView_ScopedPerActor(t *testing.T) {
	env := newTestEnv(t)
	svc := env.conversationService()

	patient := env.addProfile(t, "patient-1", models.RolePatient)
	other := env.addProfile(t, "patient-2", models.RolePatient)
	env.addConversation(t, "conv-mine", patient.ID, nil, time.Now())
	env.addConversation(t, "conv-theirs", other.ID, nil, time.Now())

	view, err := svc.OpenDirectory(patient)
	require.NoError(t, err)
	defer view.Close()

	snapshot := view.Snapshot()
	require.Len(t, snapshot, 1)
	assert.Equal(t, "conv-mine", snapshot[0].ID)
}
