package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cozy-corner/library-lending/internal/domain"
)

// MemberClient implements service.MemberService against the membership
// service's HTTP API.
type MemberClient struct {
	baseURL string
	client  *http.Client
}

func NewMemberClient(baseURL string, timeout time.Duration) *MemberClient {
	return &MemberClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *MemberClient) Exists(ctx context.Context, memberID domain.MemberID) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/members/%s", c.baseURL, memberID), nil)
	if err != nil {
		return false, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("member lookup: unexpected status code %d", resp.StatusCode)
	}
}

func (c *MemberClient) HasOverdueLoans(ctx context.Context, memberID domain.MemberID) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/members/%s/overdue-loans", c.baseURL, memberID), nil)
	if err != nil {
		return false, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("overdue lookup: unexpected status code %d", resp.StatusCode)
	}

	var body struct {
		HasOverdueLoans bool `json:"has_overdue_loans"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, err
	}

	return body.HasOverdueLoans, nil
}
