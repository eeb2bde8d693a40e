package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cozy-corner/library-lending/internal/domain"
)

// NotificationClient implements service.NotificationService against the
// notification service's HTTP API.
type NotificationClient struct {
	baseURL string
	client  *http.Client
}

func NewNotificationClient(baseURL string, timeout time.Duration) *NotificationClient {
	return &NotificationClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *NotificationClient) SendOverdueNotification(ctx context.Context, memberID domain.MemberID, bookTitle string, dueDate time.Time) error {
	return c.post(ctx, "/notifications/overdue", map[string]any{
		"member_id":  memberID.String(),
		"book_title": bookTitle,
		"due_date":   dueDate,
	})
}

func (c *NotificationClient) SendExtensionConfirmation(ctx context.Context, memberID domain.MemberID, bookTitle string, newDueDate time.Time) error {
	return c.post(ctx, "/notifications/extension", map[string]any{
		"member_id":    memberID.String(),
		"book_title":   bookTitle,
		"new_due_date": newDueDate,
	})
}

func (c *NotificationClient) SendReturnConfirmation(ctx context.Context, memberID domain.MemberID, bookTitle string, wasOverdue bool) error {
	return c.post(ctx, "/notifications/return", map[string]any{
		"member_id":   memberID.String(),
		"book_title":  bookTitle,
		"was_overdue": wasOverdue,
	})
}

func (c *NotificationClient) post(ctx context.Context, path string, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("notification: unexpected status code %d", resp.StatusCode)
	}

	return nil
}
