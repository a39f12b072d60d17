package services

import (
	"testing"
	"time"

	"clinic-console-server/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageService_ListMessages(t *testing.T) {
	env := newTestEnv(t)
	svc := env.messageService()

	patient := env.addProfile(t, "patient-1", models.RolePatient)
	env.addConversation(t, "conv-1", patient.ID, nil, time.Now())

	t.Run("empty conversation yields empty log", func(t *testing.T) {
		messages, err := svc.ListMessages("conv-1")
		require.NoError(t, err)
		assert.NotNil(t, messages)
		assert.Empty(t, messages)
	})

	t.Run("ordered oldest first", func(t *testing.T) {
		base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
		env.addMessage(t, "conv-1", strptr(patient.ID), "second", base.Add(time.Minute))
		env.addMessage(t, "conv-1", strptr(patient.ID), "first", base)

		messages, err := svc.ListMessages("conv-1")
		require.NoError(t, err)
		require.Len(t, messages, 2)
		assert.Equal(t, "first", messages[0].Content)
		assert.Equal(t, "second", messages[1].Content)
	})

	t.Run("unknown conversation", func(t *testing.T) {
		_, err := svc.ListMessages("ghost")
		assert.True(t, IsNotFound(err))
	})

	t.Run("missing id", func(t *testing.T) {
		_, err := svc.ListMessages("")
		assert.True(t, IsValidation(err))
	})
}

func TestMessageService_Send(t *testing.T) {
	env := newTestEnv(t)
	svc := env.messageService()

	patient := env.addProfile(t, "patient-1", models.RolePatient)
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	env.addConversation(t, "conv-1", patient.ID, nil, base)

	t.Run("round trip", func(t *testing.T) {
		sent, err := svc.Send("conv-1", patient.ID, "hello", "whatsapp")
		require.NoError(t, err)
		assert.NotEmpty(t, sent.ID)
		require.NotNil(t, sent.SenderID)
		assert.Equal(t, patient.ID, *sent.SenderID)
		assert.Equal(t, models.MessageSent, sent.Status)

		messages, err := svc.ListMessages("conv-1")
		require.NoError(t, err)
		require.Len(t, messages, 1)
		assert.Equal(t, "hello", messages[0].Content)

		// Sending bumps the conversation's last activity
		conv, err := env.convRepo.GetByID("conv-1")
		require.NoError(t, err)
		assert.True(t, conv.LastMessageAt.After(base))
	})

	t.Run("system message has nil sender", func(t *testing.T) {
		sent, err := svc.Send("conv-1", "", "auto-reply", "whatsapp")
		require.NoError(t, err)
		assert.Nil(t, sent.SenderID)
	})

	t.Run("channel may differ from the conversation's", func(t *testing.T) {
		sent, err := svc.Send("conv-1", patient.ID, "switching to email", "email")
		require.NoError(t, err)
		assert.Equal(t, models.ChannelEmail, sent.Channel)
	})

	t.Run("whitespace-only content rejected", func(t *testing.T) {
		_, err := svc.Send("conv-1", patient.ID, "   \t\n", "whatsapp")
		assert.True(t, IsValidation(err))
	})

	t.Run("invalid channel rejected", func(t *testing.T) {
		_, err := svc.Send("conv-1", patient.ID, "hi", "fax")
		assert.True(t, IsValidation(err))
	})

	t.Run("unknown conversation", func(t *testing.T) {
		_, err := svc.Send("ghost", patient.ID, "hi", "whatsapp")
		assert.True(t, IsNotFound(err))
	})

	t.Run("missing conversation id", func(t *testing.T) {
		_, err := svc.Send("", patient.ID, "hi", "whatsapp")
		assert.True(t, IsValidation(err))
	})
}

func TestMessageService_SetStatus(t *testing.T) {
	env := newTestEnv(t)
	svc := env.messageService()

	patient := env.addProfile(t, "patient-1", models.RolePatient)
	env.addConversation(t, "conv-1", patient.ID, nil, time.Now())
	env.addConversation(t, "conv-2", patient.ID, nil, time.Now())

	sent, err := svc.Send("conv-1", patient.ID, "hello", "whatsapp")
	require.NoError(t, err)

	t.Run("marks the message read", func(t *testing.T) {
		require.NoError(t, svc.SetStatus("conv-1", sent.ID, "read"))

		messages, err := svc.ListMessages("conv-1")
		require.NoError(t, err)
		require.Len(t, messages, 1)
		assert.Equal(t, models.MessageRead, messages[0].Status)
	})

	t.Run("message must belong to the conversation", func(t *testing.T) {
		err := svc.SetStatus("conv-2", sent.ID, "read")
		assert.True(t, IsNotFound(err))
	})

	t.Run("unknown message", func(t *testing.T) {
		err := svc.SetStatus("conv-1", "ghost", "read")
		assert.True(t, IsNotFound(err))
	})

	t.Run("invalid status", func(t *testing.T) {
		err := svc.SetStatus("conv-1", sent.ID, "seen")
		assert.True(t, IsValidation(err))
	})

	t.Run("missing ids", func(t *testing.T) {
		assert.True(t, IsValidation(svc.SetStatus("", sent.ID, "read")))
		assert.True(t, IsValidation(svc.SetStatus("conv-1", "", "read")))
	})
}
