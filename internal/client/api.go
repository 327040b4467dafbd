// Package client talks to the subscriptions REST API and keeps a local,
// session-lifetime copy of the list for display and totals.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"subtrack/internal/core"
)

// ErrUnreachable is returned when the request never got an HTTP response.
var ErrUnreachable = errors.New("unable to reach subscriptions API")

const (
	msgLoadFailed   = "failed to load subscriptions"
	msgCreateFailed = "failed to create subscription"
	msgUpdateFailed = "failed to update subscription"
	msgDeleteFailed = "failed to delete subscription"
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// Input is the caller-supplied part of a subscription.
type Input struct {
	Name        string         `json:"name"`
	Price       float64        `json:"price"`
	Currency    core.Currency  `json:"currency"`
	Frequency   core.Frequency `json:"frequency"`
	PaymentDate string         `json:"paymentDate"`
}

// InputFrom copies the editable fields of sub.
func InputFrom(sub core.Subscription) Input {
	return Input{
		Name:        sub.Name,
		Price:       sub.Price,
		Currency:    sub.Currency,
		Frequency:   sub.Frequency,
		PaymentDate: sub.PaymentDate,
	}
}

// API is a thin client over the subscriptions collection URL.
type API struct {
	baseURL    string
	httpClient *http.Client
}

// NewAPI returns a client for baseURL, e.g. http://localhost:3000/api/subscriptions.
// A nil httpClient gets a pooled default with no overall timeout; callers
// bound requests through their context.
func NewAPI(baseURL string, httpClient *http.Client) *API {
	if httpClient == nil {
		httpClient = newHTTPClientWithPooling()
	}
	return &API{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// List fetches every subscription.
func (a *API) List(ctx context.Context) ([]core.Subscription, error) {
	var subs []core.Subscription
	if err := a.do(ctx, http.MethodGet, a.baseURL, nil, &subs, false, msgLoadFailed); err != nil {
		return nil, err
	}
	if subs == nil {
		subs = []core.Subscription{}
	}
	return subs, nil
}

// Create posts in and returns the stored subscription.
func (a *API) Create(ctx context.Context, in Input) (core.Subscription, error) {
	var sub core.Subscription
	if err := a.do(ctx, http.MethodPost, a.baseURL, in, &sub, true, msgCreateFailed); err != nil {
		return core.Subscription{}, err
	}
	return sub, nil
}

// Update replaces the subscription with id.
func (a *API) Update(ctx context.Context, id string, in Input) (core.Subscription, error) {
	var sub core.Subscription
	if err := a.do(ctx, http.MethodPut, a.itemURL(id), in, &sub, true, msgUpdateFailed); err != nil {
		return core.Subscription{}, err
	}
	return sub, nil
}

// Delete removes the subscription with id.
func (a *API) Delete(ctx context.Context, id string) error {
	return a.do(ctx, http.MethodDelete, a.itemURL(id), nil, nil, true, msgDeleteFailed)
}

func (a *API) itemURL(id string) string {
	return a.baseURL + "/" + url.PathEscape(id)
}

// do sends one request. When useServerMessage is set a failed response
// surfaces the server's "error" field, falling back to fallback.
func (a *API) do(ctx context.Context, method, target string, body, out any, useServerMessage bool, fallback string) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return ErrUnreachable
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: fallback}
		if useServerMessage {
			var payload struct {
				Error string `json:"error"`
			}
			if json.NewDecoder(resp.Body).Decode(&payload) == nil && payload.Error != "" {
				apiErr.Message = payload.Error
			}
		}
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// newHTTPClientWithPooling keeps connections to the API alive between
// operations.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
	}
	return &http.Client{Transport: transport}
}
