// Package notify реализует ленту изменений: публикацию событий о записях в хранилище
// и наблюдение за ними с периодическим «тиком» вместо опроса.
package notify

import (
	"context"
	"errors"
	"time"
)

// Kind описывает тип события.
type Kind string

const (
	KindOrderCreated    Kind = "order.created"
	KindOrderStatus     Kind = "order.status"
	KindOrderNotes      Kind = "order.notes"
	KindMessageSent     Kind = "message.sent"
	KindMessagesRead    Kind = "messages.read"
	KindSettingsUpdated Kind = "settings.updated"
	KindCatalogUpdated  Kind = "catalog.updated"
	KindTick            Kind = "tick"
)

// DefaultInterval используется, если интервал тиков не задан.
const DefaultInterval = 2 * time.Second

// ErrClosed возвращается, если брокер закрыт во время наблюдения.
var ErrClosed = errors.New("broker closed")

// Event уведомляет о зафиксированной записи. UserID адресует событие покупателю;
// пустой UserID означает событие только для администраторов и общих витрин.
type Event struct {
	Kind           Kind      `json:"kind"`
	UserID         string    `json:"userId,omitempty"`
	OrderID        string    `json:"orderId,omitempty"`
	ConversationID string    `json:"conversationId,omitempty"`
	At             time.Time `json:"at"`
}

// Broker публикует события и раздаёт их подписчикам.
type Broker interface {
	Publish(ctx context.Context, e Event) error
	// Subscribe возвращает канал событий, который закрывается при отмене ctx или закрытии брокера.
	Subscribe(ctx context.Context) (<-chan Event, error)
	Close() error
}

// Watch вызывает fn на каждое событие, прошедшее filter, и на каждый тик interval.
// Наблюдатель видит запись при следующем уведомлении либо не позже чем через interval.
// Возвращает nil при отмене ctx.
func Watch(ctx context.Context, b Broker, interval time.Duration, filter func(Event) bool, fn func(Event) error) error {
	if interval <= 0 {
		interval = DefaultInterval
	}

	events, err := b.Subscribe(ctx)
	if err != nil {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-events:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return ErrClosed
			}
			if filter != nil && !filter(e) {
				continue
			}
			if err := fn(e); err != nil {
				return err
			}
		case t := <-ticker.C:
			if err := fn(Event{Kind: KindTick, At: t.UTC()}); err != nil {
				return err
			}
		}
	}
}
