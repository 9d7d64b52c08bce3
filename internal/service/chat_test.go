package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/storefront/internal/model"
	"github.com/mmeshcher/storefront/internal/repository"
)

var testAdmin = model.User{ID: "admin", Email: "admin@crimezone.com", Name: "Admin", Role: model.RoleAdmin}

func TestGetOrCreateConversation_Idempotent(t *testing.T) {
	svc, _ := newTestService(t, Options{})
	user := mustRegister(t, svc, "u@example.com", "U")

	const n = 10
	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := svc.GetOrCreateConversation(context.Background(), user)
			if err != nil {
				t.Errorf("GetOrCreateConversation: %v", err)
				return
			}
			ids[i] = c.ID
		}()
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}

	convs, err := svc.ListConversations(context.Background())
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, model.ConversationActive, convs[0].Status)
	assert.Equal(t, user.Email, convs[0].UserEmail)
}

func TestSendMessage_UnreadAccounting(t *testing.T) {
	svc, _ := newTestService(t, Options{})
	ctx := context.Background()
	user := mustRegister(t, svc, "u@example.com", "U")
	conv, err := svc.GetOrCreateConversation(ctx, user)
	require.NoError(t, err)

	m1, err := svc.SendMessage(ctx, user, conv.ID, "hello")
	require.NoError(t, err)
	assert.False(t, m1.Read)
	assert.Equal(t, model.RoleUser, m1.SenderRole)

	_, err = svc.SendMessage(ctx, user, conv.ID, "anyone?")
	require.NoError(t, err)

	reply, err := svc.SendMessage(ctx, testAdmin, conv.ID, "hi there")
	require.NoError(t, err)
	assert.True(t, reply.Read)
	assert.Equal(t, model.RoleAdmin, reply.SenderRole)

	total, err := svc.GetTotalUnreadForAdmin(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	userUnread, err := svc.GetUnreadCount(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, userUnread, "admin messages are read on creation")

	adminUnread, err := svc.GetUnreadCount(ctx, testAdmin.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, adminUnread)

	got, err := svc.ListConversations(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "hi there", got[0].LastMessage)
	assert.Equal(t, reply.Timestamp, got[0].LastMessageTime)
	assert.Equal(t, 2, got[0].UnreadCount)

	msgs, err := svc.GetMessages(ctx, user, conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, []string{"hello", "anyone?", "hi there"}, []string{msgs[0].Content, msgs[1].Content, msgs[2].Content})
}

func TestMarkMessagesAsRead(t *testing.T) {
	svc, _ := newTestService(t, Options{})
	ctx := context.Background()
	user := mustRegister(t, svc, "u@example.com", "U")
	conv, err := svc.GetOrCreateConversation(ctx, user)
	require.NoError(t, err)

	for _, text := range []string{"one", "two", "three"} {
		_, err := svc.SendMessage(ctx, user, conv.ID, text)
		require.NoError(t, err)
	}

	require.NoError(t, svc.MarkMessagesAsRead(ctx, testAdmin, conv.ID))

	total, err := svc.GetTotalUnreadForAdmin(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, total)

	msgs, err := svc.GetMessages(ctx, testAdmin, conv.ID)
	require.NoError(t, err)
	for _, m := range msgs {
		assert.True(t, m.Read)
	}

	_, err = svc.SendMessage(ctx, user, conv.ID, "four")
	require.NoError(t, err)
	total, err = svc.GetTotalUnreadForAdmin(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestMarkMessagesAsRead_OwnMessagesUntouched(t *testing.T) {
	svc, _ := newTestService(t, Options{})
	ctx := context.Background()
	user := mustRegister(t, svc, "u@example.com", "U")
	conv, err := svc.GetOrCreateConversation(ctx, user)
	require.NoError(t, err)

	_, err = svc.SendMessage(ctx, user, conv.ID, "question")
	require.NoError(t, err)

	require.NoError(t, svc.MarkMessagesAsRead(ctx, user, conv.ID))

	msgs, err := svc.GetMessages(ctx, user, conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.False(t, msgs[0].Read)
}

func TestSendMessage_Errors(t *testing.T) {
	svc, _ := newTestService(t, Options{})
	ctx := context.Background()
	alice := mustRegister(t, svc, "alice@example.com", "Alice")
	bob := mustRegister(t, svc, "bob@example.com", "Bob")
	conv, err := svc.GetOrCreateConversation(ctx, alice)
	require.NoError(t, err)

	_, err = svc.SendMessage(ctx, alice, conv.ID, "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)

	_, err = svc.SendMessage(ctx, bob, conv.ID, "hi")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.SendMessage(ctx, alice, "conv_missing", "hi")
	assert.ErrorIs(t, err, repository.ErrConversationNotFound)

	_, err = svc.GetMessages(ctx, bob, conv.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	assert.ErrorIs(t, svc.MarkMessagesAsRead(ctx, bob, conv.ID), ErrForbidden)
}

func TestListConversations_MostRecentFirst(t *testing.T) {
	svc, _ := newTestService(t, Options{})
	ctx := context.Background()
	alice := mustRegister(t, svc, "alice@example.com", "Alice")
	bob := mustRegister(t, svc, "bob@example.com", "Bob")

	ca, err := svc.GetOrCreateConversation(ctx, alice)
	require.NoError(t, err)
	cb, err := svc.GetOrCreateConversation(ctx, bob)
	require.NoError(t, err)

	_, err = svc.SendMessage(ctx, bob, cb.ID, "first")
	require.NoError(t, err)
	_, err = svc.SendMessage(ctx, alice, ca.ID, "second")
	require.NoError(t, err)

	convs, err := svc.ListConversations(ctx)
	require.NoError(t, err)
	require.Len(t, convs, 2)
	assert.Equal(t, ca.ID, convs[0].ID)
	assert.Equal(t, cb.ID, convs[1].ID)
}
