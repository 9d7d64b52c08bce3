// Package fulfillment предоставляет клиент для внешней системы исполнения заказов.
package fulfillment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// Статусы, которые возвращает система исполнения.
const (
	StatusAccepted  = "ACCEPTED"
	StatusShipping  = "SHIPPING"
	StatusDelivered = "DELIVERED"
)

// ErrNotRegistered возвращается, если система исполнения ещё не знает о заказе.
var ErrNotRegistered = errors.New("order is not registered in fulfillment system")

// RateLimitError сообщает, что система исполнения просит повторить запрос позже.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("fulfillment rate limited, retry after %s", e.RetryAfter)
}

// Shipment описывает состояние исполнения одного заказа.
type Shipment struct {
	OrderID        string `json:"order"`
	Status         string `json:"status"`
	Carrier        string `json:"carrier,omitempty"`
	TrackingNumber string `json:"tracking_number,omitempty"`
}

// Client обращается к системе исполнения по HTTP.
// Сетевые ошибки и ответы 5xx повторяются транспортом, 429 возвращается вызывающему.
type Client struct {
	endpoint   *url.URL
	httpClient *retryablehttp.Client
	now        func() time.Time
}

// NewClient создаёт клиент. Адрес без схемы считается http.
func NewClient(address string) *Client {
	address = strings.TrimRight(strings.TrimSpace(address), "/")
	if address != "" && !strings.Contains(address, "://") {
		address = "http://" + address
	}

	hc := retryablehttp.NewClient()
	hc.HTTPClient.Timeout = 5 * time.Second
	hc.RetryMax = 2
	hc.RetryWaitMin = 200 * time.Millisecond
	hc.RetryWaitMax = 2 * time.Second
	hc.Logger = nil
	hc.CheckRetry = checkRetry
	hc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	c := &Client{
		httpClient: hc,
		now:        time.Now,
	}
	if u, err := url.Parse(address); err == nil && u.Host != "" {
		c.endpoint = u
	}
	return c
}

// Fetch запрашивает состояние исполнения заказа.
func (c *Client) Fetch(ctx context.Context, orderID string) (*Shipment, error) {
	if c == nil || c.endpoint == nil {
		return nil, errors.New("fulfillment client not configured")
	}

	target := c.endpoint.JoinPath("api", "fulfillment", orderID)
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNoContent, http.StatusNotFound:
		return nil, ErrNotRegistered
	case http.StatusTooManyRequests:
		return nil, &RateLimitError{RetryAfter: c.retryAfter(resp.Header.Get("Retry-After"))}
	default:
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var s Shipment
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if s.OrderID == "" {
		s.OrderID = orderID
	}
	return &s, nil
}

func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if resp != nil && resp.StatusCode == http.StatusTooManyRequests {
		return false, nil
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

// retryAfter разбирает Retry-After в секундах или в формате HTTP-даты.
func (c *Client) retryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(v); err == nil {
		if seconds < 0 {
			return 0
		}
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := at.Sub(c.now()); d > 0 {
			return d
		}
	}
	return 0
}
