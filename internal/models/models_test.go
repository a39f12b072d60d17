package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		input   string
		want    Role
		wantErr bool
	}{
		{"patient", RolePatient, false},
		{"attendant", RoleAttendant, false},
		{"manager", RoleManager, false},
		{"admin", "", true},
		{"", "", true},
		{"Patient", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseRole(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestActor_IsZero(t *testing.T) {
	assert.True(t, Actor{}.IsZero())
	assert.True(t, Actor{ID: "a"}.IsZero())
	assert.True(t, Actor{Role: RolePatient}.IsZero())
	assert.False(t, Actor{ID: "a", Role: RolePatient}.IsZero())
}

func TestParseChannel(t *testing.T) {
	for _, valid := range []string{"whatsapp", "instagram", "facebook", "email", "phone", "web_chat"} {
		got, err := ParseChannel(valid)
		assert.NoError(t, err)
		assert.Equal(t, Channel(valid), got)
	}

	_, err := ParseChannel("telegram")
	assert.Error(t, err)
	_, err = ParseChannel("")
	assert.Error(t, err)
}

func TestParseConversationStatus(t *testing.T) {
	for _, valid := range []string{"open", "assigned", "resolved", "closed"} {
		got, err := ParseConversationStatus(valid)
		assert.NoError(t, err)
		assert.Equal(t, ConversationStatus(valid), got)
	}

	_, err := ParseConversationStatus("archived")
	assert.Error(t, err)
}

func TestParsePriority(t *testing.T) {
	for _, valid := range []string{"high", "medium", "low"} {
		got, err := ParsePriority(valid)
		assert.NoError(t, err)
		assert.Equal(t, Priority(valid), got)
	}

	_, err := ParsePriority("urgent")
	assert.Error(t, err)
}

func TestParseAppointmentStatus(t *testing.T) {
	for _, valid := range []string{"scheduled", "confirmed", "in_progress", "completed", "cancelled", "no_show"} {
		got, err := ParseAppointmentStatus(valid)
		assert.NoError(t, err)
		assert.Equal(t, AppointmentStatus(valid), got)
	}

	_, err := ParseAppointmentStatus("pending")
	assert.Error(t, err)
}

func TestAppointmentStatus_IsTerminal(t *testing.T) {
	terminal := []AppointmentStatus{AppointmentCompleted, AppointmentCancelled, AppointmentNoShow}
	for _, s := range terminal {
		assert.True(t, s.IsTerminal(), "%s should be terminal", s)
	}

	active := []AppointmentStatus{AppointmentScheduled, AppointmentConfirmed, AppointmentInProgress}
	for _, s := range active {
		assert.False(t, s.IsTerminal(), "%s should not be terminal", s)
	}
}

func TestProfile_Actor(t *testing.T) {
	profile := &Profile{ID: "p-1", FullName: "Ana Souza", Role: RolePatient}
	actor := profile.Actor()
	assert.Equal(t, "p-1", actor.ID)
	assert.Equal(t, "Ana Souza", actor.DisplayName)
	assert.Equal(t, RolePatient, actor.Role)
	assert.False(t, actor.IsZero())
}
