package sync

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"macro-meal-planner/internal/prefs"
	"macro-meal-planner/internal/recipe"
)

// RemoteClient is the surface of the cloud recipe service the reconciler
// talks to.
type RemoteClient interface {
	FetchRecipes(ctx context.Context) ([]recipe.Recipe, error)
	CreateRecipe(ctx context.Context, r recipe.Recipe) (*recipe.Recipe, error)
	UpdateRecipe(ctx context.Context, r recipe.Recipe) (*recipe.Recipe, error)
	FetchPreferences(ctx context.Context) (*prefs.Preferences, error)
	PushPreferences(ctx context.Context, p prefs.Preferences) error
}

// httpClient is the concrete HTTP implementation. The server token has the
// form "id:secret" with a hex-encoded secret; each request carries a
// short-lived signed token derived from it.
type httpClient struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a RemoteClient for the given server.
func NewClient(baseURL, token string) RemoteClient {
	return &httpClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// signedToken mints a five-minute HS256 token from the stored credentials.
func (c *httpClient) signedToken() (string, error) {
	parts := strings.SplitN(c.token, ":", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid server token format")
	}
	keyID, secretHex := parts[0], parts[1]

	secret, err := hex.DecodeString(secretHex)
	if err != nil {
		return "", fmt.Errorf("invalid server token secret: %w", err)
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iat": now.Unix(),
		"exp": now.Add(5 * time.Minute).Unix(),
		"aud": "/api/",
	})
	token.Header["kid"] = keyID

	return token.SignedString(secret)
}

func (c *httpClient) do(ctx context.Context, method, path string, body any, out any) error {
	token, err := c.signedToken()
	if err != nil {
		return err
	}

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		var errBody any
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		return fmt.Errorf("server error: status %d, body: %v", resp.StatusCode, errBody)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

type recipesResponse struct {
	Recipes []recipe.Recipe `json:"recipes"`
}

type recipeResponse struct {
	Recipe recipe.Recipe `json:"recipe"`
}

type preferencesResponse struct {
	Preferences *prefs.Preferences `json:"preferences"`
}

// FetchRecipes pulls the full server recipe set.
func (c *httpClient) FetchRecipes(ctx context.Context) ([]recipe.Recipe, error) {
	var resp recipesResponse
	if err := c.do(ctx, http.MethodGet, "/api/recipes", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Recipes, nil
}

// CreateRecipe uploads a locally created recipe.
func (c *httpClient) CreateRecipe(ctx context.Context, r recipe.Recipe) (*recipe.Recipe, error) {
	var resp recipeResponse
	if err := c.do(ctx, http.MethodPost, "/api/recipes", r, &resp); err != nil {
		return nil, err
	}
	return &resp.Recipe, nil
}

// UpdateRecipe upserts a server-owned recipe by id.
func (c *httpClient) UpdateRecipe(ctx context.Context, r recipe.Recipe) (*recipe.Recipe, error) {
	var resp recipeResponse
	if err := c.do(ctx, http.MethodPut, "/api/recipes/"+r.ID, r, &resp); err != nil {
		return nil, err
	}
	return &resp.Recipe, nil
}

// FetchPreferences pulls the server copy of the preferences; nil when the
// server has none.
func (c *httpClient) FetchPreferences(ctx context.Context) (*prefs.Preferences, error) {
	var resp preferencesResponse
	if err := c.do(ctx, http.MethodGet, "/api/preferences", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Preferences, nil
}

// PushPreferences uploads the local preferences.
func (c *httpClient) PushPreferences(ctx context.Context, p prefs.Preferences) error {
	return c.do(ctx, http.MethodPut, "/api/preferences", p, nil)
}
