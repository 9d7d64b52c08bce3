package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/storefront/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresRepository предоставляет доступ к хранилищу данных в PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// withRetry повторяет fn при конфликтах сериализации, дедлоках и обрывах соединения.
func (r *PostgresRepository) withRetry(ctx context.Context, fn func() error) error {
	backoff := retry.WithMaxRetries(3, retry.WithCappedDuration(5*time.Second, retry.NewExponential(500*time.Millisecond)))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn()
		if isTransient(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

func isTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected
	}

	if pgconn.SafeToRetry(err) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "connection reset by peer")
}

// inTx выполняет fn в транзакции с повторами при временных ошибках.
func (r *PostgresRepository) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return r.withRetry(ctx, func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		if err := fn(tx); err != nil {
			return err
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}
		return nil
	})
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

func toNumeric(d decimal.Decimal) pgtype.Numeric {
	return pgtype.Numeric{Int: d.Coefficient(), Exp: d.Exponent(), Valid: true}
}

func fromNumeric(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.Int == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(new(big.Int).Set(n.Int), n.Exp)
}

// CreateUser создаёт нового пользователя.
func (r *PostgresRepository) CreateUser(ctx context.Context, u model.User) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (id, email, name, role, password_hash, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		u.ID, u.Email, u.Name, string(u.Role), u.PasswordHash, u.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return fmt.Errorf("%w: %s", ErrUserExists, u.Email)
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// GetUserByEmail возвращает пользователя по email.
func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, email, name, role, password_hash, created_at FROM users WHERE email = $1`,
		email,
	)

	var (
		u    model.User
		role string
	)
	err := row.Scan(&u.ID, &u.Email, &u.Name, &role, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	u.Role = model.Role(role)

	return &u, nil
}

// ListUsers возвращает пользователей в порядке регистрации.
func (r *PostgresRepository) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, email, name, role, created_at FROM users ORDER BY created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("select users: %w", err)
	}
	defer rows.Close()

	var res []model.User
	for rows.Next() {
		var (
			u    model.User
			role string
		)
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &role, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		u.Role = model.Role(role)
		res = append(res, u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

const productColumns = `id, name, description, price, image, category, stock, created_at`

func scanProduct(row pgx.Row) (model.Product, error) {
	var (
		p     model.Product
		price pgtype.Numeric
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &price, &p.Image, &p.Category, &p.Stock, &p.CreatedAt); err != nil {
		return model.Product{}, err
	}
	p.Price = fromNumeric(price)
	return p, nil
}

func (r *PostgresRepository) queryProducts(ctx context.Context, query string, args ...any) ([]model.Product, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}
	defer rows.Close()

	var res []model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		res = append(res, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// ListProducts возвращает товары в порядке добавления.
func (r *PostgresRepository) ListProducts(ctx context.Context) ([]model.Product, error) {
	return r.queryProducts(ctx, `SELECT `+productColumns+` FROM products ORDER BY created_at, id`)
}

// SearchProducts ищет подстроку без учёта регистра в названии, описании и категории.
func (r *PostgresRepository) SearchProducts(ctx context.Context, query string) ([]model.Product, error) {
	pattern := "%" + escapeLike(query) + "%"
	return r.queryProducts(ctx,
		`SELECT `+productColumns+` FROM products
		 WHERE name ILIKE $1 OR description ILIKE $1 OR category ILIKE $1
		 ORDER BY created_at, id`,
		pattern,
	)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// GetProduct возвращает товар по идентификатору.
func (r *PostgresRepository) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &p, nil
}

// CreateProduct добавляет товар в каталог.
func (r *PostgresRepository) CreateProduct(ctx context.Context, p model.Product) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO products (id, name, description, price, image, category, stock, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.Name, p.Description, toNumeric(p.Price), p.Image, p.Category, p.Stock, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// UpdateProduct применяет изменения к товару под блокировкой строки.
func (r *PostgresRepository) UpdateProduct(ctx context.Context, id string, patch model.ProductPatch) (*model.Product, error) {
	var updated model.Product
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		p, err := scanProduct(tx.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrProductNotFound
			}
			return fmt.Errorf("lock product: %w", err)
		}

		updated = patch.Apply(p)
		_, err = tx.Exec(ctx,
			`UPDATE products SET name = $2, description = $3, price = $4, image = $5, category = $6, stock = $7
			 WHERE id = $1`,
			id, updated.Name, updated.Description, toNumeric(updated.Price), updated.Image, updated.Category, updated.Stock,
		)
		if err != nil {
			return fmt.Errorf("update product: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteProduct удаляет товар.
func (r *PostgresRepository) DeleteProduct(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

// GetCart возвращает корзину пользователя в порядке добавления.
func (r *PostgresRepository) GetCart(ctx context.Context, userID string) ([]model.CartItem, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT product, quantity FROM cart_items WHERE user_id = $1 ORDER BY added_at, product_id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("select cart: %w", err)
	}
	defer rows.Close()

	var res []model.CartItem
	for rows.Next() {
		var item model.CartItem
		if err := rows.Scan(&item.Product, &item.Quantity); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		res = append(res, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// AddCartItem добавляет товар в корзину или увеличивает количество существующей строки.
func (r *PostgresRepository) AddCartItem(ctx context.Context, userID string, product model.Product, quantity int) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO cart_items (user_id, product_id, product, quantity) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id, product_id) DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity`,
		userID, product.ID, product, quantity,
	)
	if err != nil {
		return fmt.Errorf("upsert cart item: %w", err)
	}
	return nil
}

// SetCartItemQuantity меняет количество существующей строки; отсутствующая строка игнорируется.
func (r *PostgresRepository) SetCartItemQuantity(ctx context.Context, userID, productID string, quantity int) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE cart_items SET quantity = $3 WHERE user_id = $1 AND product_id = $2`,
		userID, productID, quantity,
	)
	if err != nil {
		return fmt.Errorf("update cart item: %w", err)
	}
	return nil
}

// RemoveCartItem удаляет строку корзины.
func (r *PostgresRepository) RemoveCartItem(ctx context.Context, userID, productID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2`, userID, productID)
	if err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}
	return nil
}

// ClearCart очищает корзину пользователя.
func (r *PostgresRepository) ClearCart(ctx context.Context, userID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

const orderColumns = `id, user_id, user_email, user_name, items, total, payment_method, payment_proof,
	status, created_at, confirmed_at, notes`

func scanOrder(row pgx.Row) (model.Order, error) {
	var (
		o      model.Order
		total  pgtype.Numeric
		method string
		status string
	)
	err := row.Scan(&o.ID, &o.UserID, &o.UserEmail, &o.UserName, &o.Items, &total, &method, &o.PaymentProof,
		&status, &o.CreatedAt, &o.ConfirmedAt, &o.Notes)
	if err != nil {
		return model.Order{}, err
	}
	o.Total = fromNumeric(total)
	o.PaymentMethod = model.PaymentMethod(method)
	o.Status = model.OrderStatus(status)
	return o, nil
}

// CreateOrder добавляет заказ в журнал.
func (r *PostgresRepository) CreateOrder(ctx context.Context, o model.Order) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO orders (id, user_id, user_email, user_name, items, total, payment_method, payment_proof,
			status, created_at, confirmed_at, notes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		o.ID, o.UserID, o.UserEmail, o.UserName, o.Items, toNumeric(o.Total), string(o.PaymentMethod), o.PaymentProof,
		string(o.Status), o.CreatedAt, o.ConfirmedAt, o.Notes,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// GetOrder возвращает заказ по идентификатору.
func (r *PostgresRepository) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return &o, nil
}

// UpdateOrder блокирует строку заказа, применяет fn и сохраняет результат в одной транзакции.
func (r *PostgresRepository) UpdateOrder(ctx context.Context, id string, fn func(*model.Order) error) (*model.Order, error) {
	var updated model.Order
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		o, err := scanOrder(tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrOrderNotFound
			}
			return fmt.Errorf("lock order: %w", err)
		}

		if err := fn(&o); err != nil {
			return err
		}

		_, err = tx.Exec(ctx,
			`UPDATE orders SET status = $2, confirmed_at = $3, notes = $4, payment_proof = $5 WHERE id = $1`,
			id, string(o.Status), o.ConfirmedAt, o.Notes, o.PaymentProof,
		)
		if err != nil {
			return fmt.Errorf("update order: %w", err)
		}
		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// ListOrders возвращает заказы по фильтру, новые первыми.
func (r *PostgresRepository) ListOrders(ctx context.Context, filter model.OrderFilter) ([]model.Order, error) {
	var (
		clauses = []string{"1 = 1"}
		args    []any
	)
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		clauses = append(clauses, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, s := range filter.Statuses {
			statuses = append(statuses, string(s))
		}
		args = append(args, statuses)
		clauses = append(clauses, fmt.Sprintf("status = ANY($%d)", len(args)))
	}

	query := fmt.Sprintf(`SELECT %s FROM orders WHERE %s ORDER BY created_at DESC, seq DESC`,
		orderColumns, strings.Join(clauses, " AND "))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	var res []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		res = append(res, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

const conversationColumns = `id, user_id, user_name, user_email, last_message, last_message_time, unread_count, status`

func scanConversation(row pgx.Row) (model.Conversation, error) {
	var (
		c      model.Conversation
		status string
	)
	err := row.Scan(&c.ID, &c.UserID, &c.UserName, &c.UserEmail, &c.LastMessage, &c.LastMessageTime, &c.UnreadCount, &status)
	if err != nil {
		return model.Conversation{}, err
	}
	c.Status = model.ConversationStatus(status)
	return c, nil
}

// GetOrCreateConversation возвращает диалог пользователя, создавая его из c при отсутствии.
func (r *PostgresRepository) GetOrCreateConversation(ctx context.Context, c model.Conversation) (*model.Conversation, error) {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO conversations (id, user_id, user_name, user_email, last_message, last_message_time, unread_count, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (user_id) DO NOTHING`,
		c.ID, c.UserID, c.UserName, c.UserEmail, c.LastMessage, c.LastMessageTime, c.UnreadCount, string(c.Status),
	)
	if err != nil {
		return nil, fmt.Errorf("insert conversation: %w", err)
	}

	stored, err := scanConversation(r.pool.QueryRow(ctx,
		`SELECT `+conversationColumns+` FROM conversations WHERE user_id = $1`, c.UserID))
	if err != nil {
		return nil, fmt.Errorf("select conversation: %w", err)
	}
	return &stored, nil
}

// GetConversation возвращает диалог по идентификатору.
func (r *PostgresRepository) GetConversation(ctx context.Context, id string) (*model.Conversation, error) {
	c, err := scanConversation(r.pool.QueryRow(ctx, `SELECT `+conversationColumns+` FROM conversations WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrConversationNotFound
		}
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	return &c, nil
}

// ListConversations возвращает диалоги, последние по активности первыми.
func (r *PostgresRepository) ListConversations(ctx context.Context) ([]model.Conversation, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+conversationColumns+` FROM conversations ORDER BY last_message_time DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("select conversations: %w", err)
	}
	defer rows.Close()

	var res []model.Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		res = append(res, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// AppendMessage сохраняет сообщение и обновляет сводку диалога в одной транзакции.
func (r *PostgresRepository) AppendMessage(ctx context.Context, msg model.Message) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		increment := 0
		if msg.SenderRole == model.RoleUser {
			increment = 1
		}

		tag, err := tx.Exec(ctx,
			`UPDATE conversations
			 SET last_message = $2, last_message_time = $3, unread_count = unread_count + $4
			 WHERE id = $1`,
			msg.ConversationID, msg.Content, msg.Timestamp, increment,
		)
		if err != nil {
			return fmt.Errorf("update conversation: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrConversationNotFound
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO messages (id, conversation_id, sender_id, sender_name, sender_role, content, sent_at, read)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			msg.ID, msg.ConversationID, msg.SenderID, msg.SenderName, string(msg.SenderRole), msg.Content, msg.Timestamp, msg.Read,
		)
		if err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
		return nil
	})
}

// MarkMessagesAsRead отмечает прочитанными все сообщения собеседника и обнуляет счётчик диалога.
func (r *PostgresRepository) MarkMessagesAsRead(ctx context.Context, conversationID, readerID string) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE conversations SET unread_count = 0 WHERE id = $1`, conversationID)
		if err != nil {
			return fmt.Errorf("reset unread: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrConversationNotFound
		}

		_, err = tx.Exec(ctx,
			`UPDATE messages SET read = TRUE WHERE conversation_id = $1 AND sender_id <> $2 AND NOT read`,
			conversationID, readerID,
		)
		if err != nil {
			return fmt.Errorf("mark messages read: %w", err)
		}
		return nil
	})
}

// GetMessages возвращает сообщения диалога в порядке добавления.
func (r *PostgresRepository) GetMessages(ctx context.Context, conversationID string) ([]model.Message, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, conversation_id, sender_id, sender_name, sender_role, content, sent_at, read
		 FROM messages WHERE conversation_id = $1 ORDER BY seq`,
		conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("select messages: %w", err)
	}
	defer rows.Close()

	res := make([]model.Message, 0)
	for rows.Next() {
		var (
			m    model.Message
			role string
		)
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.SenderName, &role, &m.Content, &m.Timestamp, &m.Read); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.SenderRole = model.Role(role)
		res = append(res, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// CountUnreadMessages считает непрочитанные чужие сообщения в диалогах, где участвует userID.
func (r *PostgresRepository) CountUnreadMessages(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM messages m
		 WHERE m.sender_id <> $1 AND NOT m.read
		   AND m.conversation_id IN (
		       SELECT id FROM conversations WHERE user_id = $1
		       UNION
		       SELECT conversation_id FROM messages WHERE sender_id = $1
		   )`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return count, nil
}

// TotalUnreadForAdmin суммирует счётчики непрочитанного по всем диалогам.
func (r *PostgresRepository) TotalUnreadForAdmin(ctx context.Context) (int, error) {
	var total int
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(unread_count), 0) FROM conversations`).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum unread: %w", err)
	}
	return total, nil
}

// GetSettings возвращает документ настроек.
func (r *PostgresRepository) GetSettings(ctx context.Context) (*model.SiteSettings, error) {
	var (
		s       model.SiteSettings
		version int
	)
	err := r.pool.QueryRow(ctx, `SELECT version, body FROM documents WHERE key = $1`, settingsKey).Scan(&version, &s)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSettingsNotFound
		}
		return nil, fmt.Errorf("get settings: %w", err)
	}
	s.Version = version
	return &s, nil
}

// InitSettings записывает defaults, только если документа ещё нет, и возвращает сохранённый документ.
func (r *PostgresRepository) InitSettings(ctx context.Context, defaults model.SiteSettings) (*model.SiteSettings, error) {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO documents (key, version, body) VALUES ($1, $2, $3) ON CONFLICT (key) DO NOTHING`,
		settingsKey, defaults.Version, defaults,
	)
	if err != nil {
		return nil, fmt.Errorf("init settings: %w", err)
	}
	return r.GetSettings(ctx)
}

// SaveSettings заменяет документ настроек целиком.
func (r *PostgresRepository) SaveSettings(ctx context.Context, settings model.SiteSettings) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO documents (key, version, body, updated_at) VALUES ($1, $2, $3, now())
		 ON CONFLICT (key) DO UPDATE SET version = EXCLUDED.version, body = EXCLUDED.body, updated_at = now()`,
		settingsKey, settings.Version, settings,
	)
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}
