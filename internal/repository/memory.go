package repository

import (
	"context"
	"maps"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/mmeshcher/storefront/internal/model"
)

// MemoryRepository хранит данные в памяти процесса. Используется в тестах и при запуске без БД.
// Все операции чтения-изменения-записи выполняются под одной блокировкой.
type MemoryRepository struct {
	mu sync.RWMutex

	users      map[string]model.User // key: email
	userOrder  []string
	products   map[string]model.Product
	productIDs []string
	carts      map[string][]model.CartItem
	orders     map[string]model.Order
	orderIDs   []string
	convs      map[string]model.Conversation
	convByUser map[string]string
	messages   []model.Message
	settings   *model.SiteSettings

	settingsWrites int
}

// NewMemoryRepository создаёт пустое in-memory хранилище.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users:      make(map[string]model.User),
		products:   make(map[string]model.Product),
		carts:      make(map[string][]model.CartItem),
		orders:     make(map[string]model.Order),
		convs:      make(map[string]model.Conversation),
		convByUser: make(map[string]string),
	}
}

// Close ничего не освобождает и нужен для соответствия интерфейсу.
func (m *MemoryRepository) Close() error {
	return nil
}

// CreateUser сохраняет нового пользователя.
func (m *MemoryRepository) CreateUser(_ context.Context, u model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[u.Email]; ok {
		return ErrUserExists
	}
	u.PasswordHash = slices.Clone(u.PasswordHash)
	m.users[u.Email] = u
	m.userOrder = append(m.userOrder, u.Email)
	return nil
}

// GetUserByEmail возвращает пользователя по email.
func (m *MemoryRepository) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	u.PasswordHash = slices.Clone(u.PasswordHash)
	return &u, nil
}

// ListUsers возвращает пользователей в порядке регистрации.
func (m *MemoryRepository) ListUsers(_ context.Context) ([]model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	res := make([]model.User, 0, len(m.userOrder))
	for _, email := range m.userOrder {
		u := m.users[email]
		u.PasswordHash = nil
		res = append(res, u)
	}
	return res, nil
}

// ListProducts возвращает товары в порядке добавления.
func (m *MemoryRepository) ListProducts(_ context.Context) ([]model.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	res := make([]model.Product, 0, len(m.productIDs))
	for _, id := range m.productIDs {
		res = append(res, m.products[id])
	}
	return res, nil
}

// SearchProducts ищет подстроку без учёта регистра в названии, описании и категории.
func (m *MemoryRepository) SearchProducts(ctx context.Context, query string) ([]model.Product, error) {
	all, err := m.ListProducts(ctx)
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(query)
	res := make([]model.Product, 0, len(all))
	for _, p := range all {
		if strings.Contains(strings.ToLower(p.Name), q) ||
			strings.Contains(strings.ToLower(p.Description), q) ||
			strings.Contains(strings.ToLower(p.Category), q) {
			res = append(res, p)
		}
	}
	return res, nil
}

// GetProduct возвращает товар по идентификатору.
func (m *MemoryRepository) GetProduct(_ context.Context, id string) (*model.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.products[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	return &p, nil
}

// CreateProduct добавляет товар в каталог.
func (m *MemoryRepository) CreateProduct(_ context.Context, p model.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.products[p.ID]; !ok {
		m.productIDs = append(m.productIDs, p.ID)
	}
	m.products[p.ID] = p
	return nil
}

// UpdateProduct применяет изменения к товару.
func (m *MemoryRepository) UpdateProduct(_ context.Context, id string, patch model.ProductPatch) (*model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.products[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	p = patch.Apply(p)
	m.products[id] = p
	return &p, nil
}

// DeleteProduct удаляет товар. Снимки в заказах и корзинах не затрагиваются.
func (m *MemoryRepository) DeleteProduct(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.products[id]; !ok {
		return ErrProductNotFound
	}
	delete(m.products, id)
	m.productIDs = slices.DeleteFunc(m.productIDs, func(v string) bool { return v == id })
	return nil
}

// GetCart возвращает корзину пользователя.
func (m *MemoryRepository) GetCart(_ context.Context, userID string) ([]model.CartItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return slices.Clone(m.carts[userID]), nil
}

// AddCartItem добавляет товар в корзину или увеличивает количество существующей строки.
func (m *MemoryRepository) AddCartItem(_ context.Context, userID string, product model.Product, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cart := m.carts[userID]
	for i := range cart {
		if cart[i].Product.ID == product.ID {
			cart[i].Quantity += quantity
			return nil
		}
	}
	m.carts[userID] = append(cart, model.CartItem{Product: product, Quantity: quantity})
	return nil
}

// SetCartItemQuantity меняет количество существующей строки; отсутствующая строка игнорируется.
func (m *MemoryRepository) SetCartItemQuantity(_ context.Context, userID, productID string, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cart := m.carts[userID]
	for i := range cart {
		if cart[i].Product.ID == productID {
			cart[i].Quantity = quantity
			return nil
		}
	}
	return nil
}

// RemoveCartItem удаляет строку корзины.
func (m *MemoryRepository) RemoveCartItem(_ context.Context, userID, productID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.carts[userID] = slices.DeleteFunc(m.carts[userID], func(item model.CartItem) bool {
		return item.Product.ID == productID
	})
	return nil
}

// ClearCart очищает корзину пользователя.
func (m *MemoryRepository) ClearCart(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.carts, userID)
	return nil
}

// CreateOrder добавляет заказ в журнал.
func (m *MemoryRepository) CreateOrder(_ context.Context, o model.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.orders[o.ID] = cloneOrder(o)
	m.orderIDs = append(m.orderIDs, o.ID)
	return nil
}

// GetOrder возвращает заказ по идентификатору.
func (m *MemoryRepository) GetOrder(_ context.Context, id string) (*model.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	o, ok := m.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	o = cloneOrder(o)
	return &o, nil
}

// UpdateOrder атомарно изменяет заказ функцией fn. Если fn вернула ошибку, заказ не сохраняется.
func (m *MemoryRepository) UpdateOrder(_ context.Context, id string, fn func(*model.Order) error) (*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}

	o := cloneOrder(stored)
	if err := fn(&o); err != nil {
		return nil, err
	}
	m.orders[id] = cloneOrder(o)
	return &o, nil
}

// ListOrders возвращает заказы по фильтру, новые первыми.
func (m *MemoryRepository) ListOrders(_ context.Context, filter model.OrderFilter) ([]model.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	res := make([]model.Order, 0, len(m.orderIDs))
	for i := len(m.orderIDs) - 1; i >= 0; i-- {
		o := m.orders[m.orderIDs[i]]
		if filter.Match(o) {
			res = append(res, cloneOrder(o))
		}
	}
	sort.SliceStable(res, func(i, j int) bool {
		return res[i].CreatedAt.After(res[j].CreatedAt)
	})
	return res, nil
}

func cloneOrder(o model.Order) model.Order {
	o.Items = slices.Clone(o.Items)
	if o.ConfirmedAt != nil {
		t := *o.ConfirmedAt
		o.ConfirmedAt = &t
	}
	return o
}

// GetOrCreateConversation возвращает диалог пользователя, создавая его из c при отсутствии.
func (m *MemoryRepository) GetOrCreateConversation(_ context.Context, c model.Conversation) (*model.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id, ok := m.convByUser[c.UserID]; ok {
		existing := m.convs[id]
		return &existing, nil
	}
	m.convs[c.ID] = c
	m.convByUser[c.UserID] = c.ID
	return &c, nil
}

// GetConversation возвращает диалог по идентификатору.
func (m *MemoryRepository) GetConversation(_ context.Context, id string) (*model.Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.convs[id]
	if !ok {
		return nil, ErrConversationNotFound
	}
	return &c, nil
}

// ListConversations возвращает диалоги, последние по активности первыми.
func (m *MemoryRepository) ListConversations(_ context.Context) ([]model.Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	res := slices.Collect(maps.Values(m.convs))
	sort.SliceStable(res, func(i, j int) bool {
		if res[i].LastMessageTime.Equal(res[j].LastMessageTime) {
			return res[i].ID < res[j].ID
		}
		return res[i].LastMessageTime.After(res[j].LastMessageTime)
	})
	return res, nil
}

// AppendMessage сохраняет сообщение и обновляет сводку диалога.
func (m *MemoryRepository) AppendMessage(_ context.Context, msg model.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.convs[msg.ConversationID]
	if !ok {
		return ErrConversationNotFound
	}

	m.messages = append(m.messages, msg)

	c.LastMessage = msg.Content
	c.LastMessageTime = msg.Timestamp
	if msg.SenderRole == model.RoleUser {
		c.UnreadCount++
	}
	m.convs[c.ID] = c
	return nil
}

// MarkMessagesAsRead отмечает прочитанными все сообщения собеседника и обнуляет счётчик диалога.
func (m *MemoryRepository) MarkMessagesAsRead(_ context.Context, conversationID, readerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.convs[conversationID]
	if !ok {
		return ErrConversationNotFound
	}

	for i := range m.messages {
		if m.messages[i].ConversationID == conversationID && m.messages[i].SenderID != readerID {
			m.messages[i].Read = true
		}
	}
	c.UnreadCount = 0
	m.convs[conversationID] = c
	return nil
}

// GetMessages возвращает сообщения диалога в порядке добавления.
func (m *MemoryRepository) GetMessages(_ context.Context, conversationID string) ([]model.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	res := make([]model.Message, 0)
	for _, msg := range m.messages {
		if msg.ConversationID == conversationID {
			res = append(res, msg)
		}
	}
	return res, nil
}

// CountUnreadMessages считает непрочитанные чужие сообщения в диалогах, где участвует userID.
func (m *MemoryRepository) CountUnreadMessages(_ context.Context, userID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	involved := make(map[string]bool)
	if id, ok := m.convByUser[userID]; ok {
		involved[id] = true
	}
	for _, msg := range m.messages {
		if msg.SenderID == userID {
			involved[msg.ConversationID] = true
		}
	}

	count := 0
	for _, msg := range m.messages {
		if involved[msg.ConversationID] && msg.SenderID != userID && !msg.Read {
			count++
		}
	}
	return count, nil
}

// TotalUnreadForAdmin суммирует счётчики непрочитанного по всем диалогам.
func (m *MemoryRepository) TotalUnreadForAdmin(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	total := 0
	for _, c := range m.convs {
		total += c.UnreadCount
	}
	return total, nil
}

// GetSettings возвращает документ настроек.
func (m *MemoryRepository) GetSettings(_ context.Context) (*model.SiteSettings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.settings == nil {
		return nil, ErrSettingsNotFound
	}
	s := cloneSettings(*m.settings)
	return &s, nil
}

// InitSettings записывает defaults, только если документа ещё нет, и возвращает сохранённый документ.
func (m *MemoryRepository) InitSettings(_ context.Context, defaults model.SiteSettings) (*model.SiteSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.settings == nil {
		s := cloneSettings(defaults)
		m.settings = &s
		m.settingsWrites++
	}
	s := cloneSettings(*m.settings)
	return &s, nil
}

// SaveSettings заменяет документ настроек целиком.
func (m *MemoryRepository) SaveSettings(_ context.Context, settings model.SiteSettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := cloneSettings(settings)
	m.settings = &s
	m.settingsWrites++
	return nil
}

// SettingsWrites возвращает число записей документа настроек.
func (m *MemoryRepository) SettingsWrites() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.settingsWrites
}

func cloneSettings(s model.SiteSettings) model.SiteSettings {
	s.PaymentMethods = maps.Clone(s.PaymentMethods)
	return s
}
