package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/verte-zerg/ieltsmock/internal/apperrors"
	"github.com/verte-zerg/ieltsmock/internal/model"
)

type authResponse struct {
	Token string     `json:"token"`
	User  model.User `json:"user"`
}

type userResponse struct {
	User model.User `json:"user"`
}

type testResponse struct {
	Test model.Test `json:"test"`
}

type attemptsResponse struct {
	Attempts []model.RemoteAttempt `json:"attempts"`
}

type usersResponse struct {
	Users []model.User `json:"users"`
}

type submitRequest struct {
	Answers []string `json:"answers"`
}

// Login exchanges credentials for a token and signs the session in.
func (c *Client) Login(ctx context.Context, email, password string) (model.User, error) {
	var resp authResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, "login", http.MethodPost, "/auth/login", nil, body, &resp); err != nil {
		return model.User{}, err
	}
	return c.signIn(ctx, "login", resp)
}

// Register creates an account and signs the session in.
func (c *Client) Register(ctx context.Context, reg model.Registration) (model.User, error) {
	var resp authResponse
	if err := c.do(ctx, "register", http.MethodPost, "/auth/register", nil, reg, &resp); err != nil {
		return model.User{}, err
	}
	return c.signIn(ctx, "register", resp)
}

func (c *Client) signIn(ctx context.Context, op string, resp authResponse) (model.User, error) {
	if resp.Token == "" {
		return model.User{}, apperrors.Errorf(apperrors.KindUnknown, op, "response carried no token")
	}
	if c.session != nil {
		if err := c.session.Login(ctx, resp.Token, resp.User); err != nil {
			return model.User{}, err
		}
	}
	return resp.User, nil
}

// Profile returns the signed-in account.
func (c *Client) Profile(ctx context.Context) (model.User, error) {
	var resp userResponse
	if err := c.do(ctx, "get profile", http.MethodGet, "/auth/profile", nil, nil, &resp); err != nil {
		return model.User{}, err
	}
	c.cacheUser(ctx, resp.User)
	return resp.User, nil
}

// UpdateProfile changes the account details.
func (c *Client) UpdateProfile(ctx context.Context, upd model.ProfileUpdate) (model.User, error) {
	var resp userResponse
	if err := c.do(ctx, "update profile", http.MethodPut, "/auth/profile", nil, upd, &resp); err != nil {
		return model.User{}, err
	}
	c.cacheUser(ctx, resp.User)
	return resp.User, nil
}

func (c *Client) cacheUser(ctx context.Context, user model.User) {
	if c.session == nil {
		return
	}
	if err := c.session.SetUser(ctx, user); err != nil {
		c.logger.Warn("failed to cache profile", "error", err)
	}
}

// ListTests returns the catalogue page matching the filter.
func (c *Client) ListTests(ctx context.Context, filter model.TestFilter) (model.TestPage, error) {
	query := url.Values{}
	if filter.Section != "" {
		query.Set("section", filter.Section)
	}
	if filter.Difficulty != "" {
		query.Set("difficulty", filter.Difficulty)
	}
	if filter.Search != "" {
		query.Set("search", filter.Search)
	}
	var page model.TestPage
	if err := c.do(ctx, "list tests", http.MethodGet, "/tests", query, nil, &page); err != nil {
		return model.TestPage{}, err
	}
	for i := range page.Tests {
		page.Tests[i].Normalize()
	}
	return page, nil
}

// GetTest fetches one test definition.
func (c *Client) GetTest(ctx context.Context, id string) (model.Test, error) {
	var resp testResponse
	if err := c.do(ctx, "get test", http.MethodGet, testPath(id), nil, nil, &resp); err != nil {
		return model.Test{}, err
	}
	resp.Test.Normalize()
	return resp.Test, nil
}

// SubmitTest sends the ordered answers and returns the scoring.
func (c *Client) SubmitTest(ctx context.Context, id string, answers []string) (model.Results, error) {
	if answers == nil {
		answers = []string{}
	}
	var results model.Results
	if err := c.do(ctx, "submit test", http.MethodPost, testPath(id)+"/submit", nil, submitRequest{Answers: answers}, &results); err != nil {
		return model.Results{}, err
	}
	return results, nil
}

// MyAttempts lists the attempts the backend recorded for the account.
func (c *Client) MyAttempts(ctx context.Context) ([]model.RemoteAttempt, error) {
	var resp attemptsResponse
	if err := c.do(ctx, "list attempts", http.MethodGet, "/users/my-attempts", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Attempts, nil
}

// CreateTest adds a test definition. Admin only.
func (c *Client) CreateTest(ctx context.Context, test model.Test) (model.Test, error) {
	var resp testResponse
	if err := c.do(ctx, "create test", http.MethodPost, "/tests", nil, test, &resp); err != nil {
		return model.Test{}, err
	}
	resp.Test.Normalize()
	return resp.Test, nil
}

// UpdateTest replaces fields of a test definition. Admin only.
func (c *Client) UpdateTest(ctx context.Context, id string, test model.Test) (model.Test, error) {
	var resp testResponse
	if err := c.do(ctx, "update test", http.MethodPatch, testPath(id), nil, test, &resp); err != nil {
		return model.Test{}, err
	}
	resp.Test.Normalize()
	return resp.Test, nil
}

// DeleteTest removes a test definition. Admin only.
func (c *Client) DeleteTest(ctx context.Context, id string) error {
	return c.do(ctx, "delete test", http.MethodDelete, testPath(id), nil, nil, nil)
}

// ListUsers returns every account. Admin only.
func (c *Client) ListUsers(ctx context.Context) ([]model.User, error) {
	var resp usersResponse
	if err := c.do(ctx, "list users", http.MethodGet, "/users", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Users, nil
}

func testPath(id string) string {
	return fmt.Sprintf("/tests/%s", url.PathEscape(id))
}
