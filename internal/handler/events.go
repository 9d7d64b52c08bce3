package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/mmeshcher/storefront/internal/model"
	"github.com/mmeshcher/storefront/internal/notify"
)

// Events отдаёт поток Server-Sent Events. Администратор получает все события,
// покупатель только свои и общие для витрины. Тик приходит каждый период опроса.
// Поток завершается при отключении клиента или вызове CloseStreams.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	user, ok := sessionUser(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	stop := context.AfterFunc(h.streams, cancel)
	defer stop()

	err := notify.Watch(ctx, h.service.Broker(), h.pollInterval, eventFilter(user), func(e notify.Event) error {
		data, err := json.Marshal(e)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Kind, data); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	})
	if err != nil {
		h.logger.Warn("event stream closed", zap.String("userID", user.ID), zap.Error(err))
	}
}

func eventFilter(user model.User) func(notify.Event) bool {
	return func(e notify.Event) bool {
		if user.IsAdmin() {
			return true
		}
		switch e.Kind {
		case notify.KindCatalogUpdated, notify.KindSettingsUpdated:
			return true
		}
		return e.UserID == user.ID
	}
}
