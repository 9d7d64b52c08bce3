package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/storefront/internal/model"
)

func TestMemoryRepository_Users(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	u := model.User{ID: "u1", Email: "a@example.com", Name: "A", Role: model.RoleUser, PasswordHash: []byte("hash")}
	require.NoError(t, repo.CreateUser(ctx, u))
	assert.ErrorIs(t, repo.CreateUser(ctx, model.User{ID: "u2", Email: "a@example.com"}), ErrUserExists)

	got, err := repo.GetUserByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.ID)
	assert.Equal(t, []byte("hash"), got.PasswordHash)

	got.PasswordHash[0] = 'X'
	again, err := repo.GetUserByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, []byte("hash"), again.PasswordHash)

	_, err = repo.GetUserByEmail(ctx, "b@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)

	require.NoError(t, repo.CreateUser(ctx, model.User{ID: "u3", Email: "c@example.com"}))
	users, err := repo.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "u1", users[0].ID)
	assert.Nil(t, users[0].PasswordHash)
}

func TestMemoryRepository_Products(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	require.NoError(t, repo.CreateProduct(ctx, model.Product{ID: "p1", Name: "Alpha", Category: "Tools", Price: decimal.NewFromInt(10)}))
	require.NoError(t, repo.CreateProduct(ctx, model.Product{ID: "p2", Name: "Beta", Description: "alpha-grade", Price: decimal.NewFromInt(20)}))
	require.NoError(t, repo.CreateProduct(ctx, model.Product{ID: "p3", Name: "Gamma", Price: decimal.NewFromInt(30)}))

	found, err := repo.SearchProducts(ctx, "ALPHA")
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "p1", found[0].ID)
	assert.Equal(t, "p2", found[1].ID)

	found, err = repo.SearchProducts(ctx, "tools")
	require.NoError(t, err)
	require.Len(t, found, 1)

	stock := 7
	name := "Alpha 2"
	updated, err := repo.UpdateProduct(ctx, "p1", model.ProductPatch{Name: &name, Stock: &stock})
	require.NoError(t, err)
	assert.Equal(t, "Alpha 2", updated.Name)
	assert.Equal(t, 7, updated.Stock)
	assert.True(t, updated.Price.Equal(decimal.NewFromInt(10)))

	_, err = repo.UpdateProduct(ctx, "missing", model.ProductPatch{Name: &name})
	assert.ErrorIs(t, err, ErrProductNotFound)

	require.NoError(t, repo.DeleteProduct(ctx, "p2"))
	assert.ErrorIs(t, repo.DeleteProduct(ctx, "p2"), ErrProductNotFound)
	_, err = repo.GetProduct(ctx, "p2")
	assert.ErrorIs(t, err, ErrProductNotFound)

	all, err := repo.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "p1", all[0].ID)
	assert.Equal(t, "p3", all[1].ID)
}

func TestMemoryRepository_Cart(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	p := model.Product{ID: "p1", Name: "Alpha", Price: decimal.NewFromInt(10)}

	require.NoError(t, repo.AddCartItem(ctx, "u1", p, 1))
	require.NoError(t, repo.AddCartItem(ctx, "u1", p, 2))

	cart, err := repo.GetCart(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, cart, 1)
	assert.Equal(t, 3, cart[0].Quantity)

	require.NoError(t, repo.SetCartItemQuantity(ctx, "u1", "p1", 5))
	require.NoError(t, repo.SetCartItemQuantity(ctx, "u1", "absent", 9))
	cart, err = repo.GetCart(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, cart, 1)
	assert.Equal(t, 5, cart[0].Quantity)

	other, err := repo.GetCart(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, other)

	require.NoError(t, repo.RemoveCartItem(ctx, "u1", "p1"))
	cart, err = repo.GetCart(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, cart)

	require.NoError(t, repo.AddCartItem(ctx, "u1", p, 1))
	require.NoError(t, repo.ClearCart(ctx, "u1"))
	cart, err = repo.GetCart(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, cart)
}

func TestMemoryRepository_Orders(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"o1", "o2", "o3"} {
		userID := "u1"
		if id == "o2" {
			userID = "u2"
		}
		require.NoError(t, repo.CreateOrder(ctx, model.Order{
			ID:        id,
			UserID:    userID,
			Status:    model.OrderStatusPending,
			Items:     []model.CartItem{{Product: model.Product{ID: "p1"}, Quantity: 1}},
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	orders, err := repo.ListOrders(ctx, model.OrderFilter{})
	require.NoError(t, err)
	require.Len(t, orders, 3)
	assert.Equal(t, "o3", orders[0].ID)
	assert.Equal(t, "o1", orders[2].ID)

	orders, err = repo.ListOrders(ctx, model.OrderFilter{UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, orders, 2)

	orders[0].Items[0].Quantity = 99
	stored, err := repo.GetOrder(ctx, orders[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Items[0].Quantity)

	confirmedAt := base.Add(time.Hour)
	updated, err := repo.UpdateOrder(ctx, "o1", func(o *model.Order) error {
		o.Status = model.OrderStatusConfirmed
		o.ConfirmedAt = &confirmedAt
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusConfirmed, updated.Status)

	rejected := errors.New("rejected")
	_, err = repo.UpdateOrder(ctx, "o1", func(o *model.Order) error {
		o.Status = model.OrderStatusCancelled
		return rejected
	})
	assert.ErrorIs(t, err, rejected)

	stored, err = repo.GetOrder(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusConfirmed, stored.Status)
	require.NotNil(t, stored.ConfirmedAt)
	assert.True(t, stored.ConfirmedAt.Equal(confirmedAt))

	confirmed, err := repo.ListOrders(ctx, model.OrderFilter{Statuses: []model.OrderStatus{model.OrderStatusConfirmed}})
	require.NoError(t, err)
	require.Len(t, confirmed, 1)
	assert.Equal(t, "o1", confirmed[0].ID)

	_, err = repo.UpdateOrder(ctx, "missing", func(*model.Order) error { return nil })
	assert.ErrorIs(t, err, ErrOrderNotFound)
	_, err = repo.GetOrder(ctx, "missing")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestMemoryRepository_UpdateOrderIsAtomic(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	require.NoError(t, repo.CreateOrder(ctx, model.Order{ID: "o1", Status: model.OrderStatusPending}))

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.UpdateOrder(ctx, "o1", func(o *model.Order) error {
				if o.Status != model.OrderStatusPending {
					return errors.New("already handled")
				}
				o.Status = model.OrderStatusConfirmed
				return nil
			})
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
}

func TestMemoryRepository_Chat(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	c, err := repo.GetOrCreateConversation(ctx, model.Conversation{ID: "c1", UserID: "u1", Status: model.ConversationActive})
	require.NoError(t, err)
	again, err := repo.GetOrCreateConversation(ctx, model.Conversation{ID: "c-other", UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, c.ID, again.ID)

	_, err = repo.GetOrCreateConversation(ctx, model.Conversation{ID: "c2", UserID: "u2"})
	require.NoError(t, err)

	require.NoError(t, repo.AppendMessage(ctx, model.Message{ID: "m1", ConversationID: "c1", SenderID: "u1", SenderRole: model.RoleUser, Content: "hi", Timestamp: t0}))
	require.NoError(t, repo.AppendMessage(ctx, model.Message{ID: "m2", ConversationID: "c1", SenderID: "u1", SenderRole: model.RoleUser, Content: "hello?", Timestamp: t0.Add(time.Second)}))
	require.NoError(t, repo.AppendMessage(ctx, model.Message{ID: "m3", ConversationID: "c2", SenderID: "u2", SenderRole: model.RoleUser, Content: "hey", Timestamp: t0.Add(-time.Minute)}))
	assert.ErrorIs(t, repo.AppendMessage(ctx, model.Message{ConversationID: "nope"}), ErrConversationNotFound)

	conv, err := repo.GetConversation(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 2, conv.UnreadCount)
	assert.Equal(t, "hello?", conv.LastMessage)

	total, err := repo.TotalUnreadForAdmin(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, total)

	convs, err := repo.ListConversations(ctx)
	require.NoError(t, err)
	require.Len(t, convs, 2)
	assert.Equal(t, "c1", convs[0].ID)

	require.NoError(t, repo.AppendMessage(ctx, model.Message{ID: "m4", ConversationID: "c1", SenderID: "admin", SenderRole: model.RoleAdmin, Content: "on it", Timestamp: t0.Add(2 * time.Second)}))

	unread, err := repo.CountUnreadMessages(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, unread)

	require.NoError(t, repo.MarkMessagesAsRead(ctx, "c1", "admin"))
	msgs, err := repo.GetMessages(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.True(t, msgs[0].Read)
	assert.True(t, msgs[1].Read)
	assert.False(t, msgs[2].Read)

	total, err = repo.TotalUnreadForAdmin(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	assert.ErrorIs(t, repo.MarkMessagesAsRead(ctx, "nope", "admin"), ErrConversationNotFound)
	_, err = repo.GetConversation(ctx, "nope")
	assert.ErrorIs(t, err, ErrConversationNotFound)
}

func TestMemoryRepository_Settings(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	_, err := repo.GetSettings(ctx)
	assert.ErrorIs(t, err, ErrSettingsNotFound)

	defaults := model.DefaultSettings()
	first, err := repo.InitSettings(ctx, defaults)
	require.NoError(t, err)

	changed := model.DefaultSettings()
	changed.Discount.Enabled = true
	second, err := repo.InitSettings(ctx, changed)
	require.NoError(t, err)
	assert.Equal(t, first.Discount.Enabled, second.Discount.Enabled)
	assert.Equal(t, 1, repo.SettingsWrites())

	require.NoError(t, repo.SaveSettings(ctx, changed))
	got, err := repo.GetSettings(ctx)
	require.NoError(t, err)
	assert.True(t, got.Discount.Enabled)
	assert.Equal(t, 2, repo.SettingsWrites())

	for k := range got.PaymentMethods {
		delete(got.PaymentMethods, k)
	}
	again, err := repo.GetSettings(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, again.PaymentMethods)
}
