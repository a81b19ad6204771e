package client

import (
	"context"
	"fmt"
	"net/url"
	"time"
)

// NotificationsClient accesses the provider notification inbox.
type NotificationsClient struct {
	client *Client
}

// Notification is the wire shape of one inbox entry.
type Notification struct {
	ID           string     `json:"id"`
	ProviderID   string     `json:"provider_id"`
	Kind         string     `json:"kind"`
	InternmentID string     `json:"internment_id,omitempty"`
	RequestID    string     `json:"request_id,omitempty"`
	Message      string     `json:"message"`
	IsRead       bool       `json:"is_read"`
	ReadAt       *time.Time `json:"read_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// ListNotificationsOptions controls pagination of List.
type ListNotificationsOptions struct {
	Page     int
	PageSize int
}

// List returns the authenticated provider's unread notifications.
func (nc *NotificationsClient) List(ctx context.Context, opts ListNotificationsOptions) ([]*Notification, *Pagination, error) {
	path := "/api/v1/notifications"
	if opts.Page > 0 || opts.PageSize > 0 {
		path = fmt.Sprintf("%s?page=%d&page_size=%d", path, opts.Page, opts.PageSize)
	}
	var out []*Notification
	p, err := nc.client.do(ctx, "GET", path, nil, &out)
	if err != nil {
		return nil, nil, err
	}
	return out, p, nil
}

// MarkRead acknowledges a notification, releasing its deduplication slot.
func (nc *NotificationsClient) MarkRead(ctx context.Context, id string) error {
	return nc.client.post(ctx, "/api/v1/notifications/"+url.PathEscape(id)+"/read", nil, nil)
}
