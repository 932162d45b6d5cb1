// Package splitwise talks to the Splitwise v3 REST API and normalizes its
// expense objects into the engine's snapshot form.
package splitwise

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"

	"github.com/acanadell/splitsync/internal/config"
)

const defaultBaseURL = "https://secure.splitwise.com/api/v3.0"

// Client is a thin wrapper over the four GET endpoints the sync needs.
type Client struct {
	httpc   *http.Client
	baseURL string
}

// NewClient builds a client authenticated with the saved OAuth2 token.
func NewClient(ctx context.Context, cfg config.SplitwiseConfig) *Client {
	tok := &oauth2.Token{AccessToken: cfg.AccessToken, TokenType: cfg.TokenType}
	return &Client{
		httpc:   oauth2.NewClient(ctx, oauth2.StaticTokenSource(tok)),
		baseURL: defaultBaseURL,
	}
}

func (c *Client) get(ctx context.Context, path string, query url.Values, into interface{}) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("GET %s: status %d: %s", path, resp.StatusCode, body)
	}
	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		return fmt.Errorf("GET %s: decode: %w", path, err)
	}
	return nil
}

// GetCurrentUser returns the authenticated user.
func (c *Client) GetCurrentUser(ctx context.Context) (apiUser, error) {
	var out currentUserResponse
	if err := c.get(ctx, "/get_current_user", nil, &out); err != nil {
		return apiUser{}, err
	}
	return out.User, nil
}

// GetExpenses returns expenses dated strictly after the bound. The API caps
// the page at limit; the caller is responsible for noticing a full page.
func (c *Client) GetExpenses(ctx context.Context, datedAfter time.Time, limit int) ([]apiExpense, error) {
	q := url.Values{}
	q.Set("dated_after", datedAfter.UTC().Format(time.RFC3339))
	q.Set("limit", fmt.Sprintf("%d", limit))
	var out expensesResponse
	if err := c.get(ctx, "/get_expenses", q, &out); err != nil {
		return nil, err
	}
	return out.Expenses, nil
}

// GetComments returns the comments attached to an expense.
func (c *Client) GetComments(ctx context.Context, expenseID int64) ([]apiComment, error) {
	q := url.Values{}
	q.Set("expense_id", fmt.Sprintf("%d", expenseID))
	var out commentsResponse
	if err := c.get(ctx, "/get_comments", q, &out); err != nil {
		return nil, err
	}
	return out.Comments, nil
}

// GetCategories returns the category tree.
func (c *Client) GetCategories(ctx context.Context) ([]apiCategory, error) {
	var out categoriesResponse
	if err := c.get(ctx, "/get_categories", nil, &out); err != nil {
		return nil, err
	}
	return out.Categories, nil
}
