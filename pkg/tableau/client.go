package tableau

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lodestar-data/tableau-harvester/pkg/apperrors"
	"github.com/lodestar-data/tableau-harvester/pkg/config"
	"github.com/lodestar-data/tableau-harvester/pkg/logging"
)

// restAPIVersion is the Tableau REST API version used for auth calls.
const restAPIVersion = "3.6"

// connectedAppTokenTTL bounds the lifetime of connected-app JWTs; Tableau
// rejects tokens valid for longer than ten minutes.
const connectedAppTokenTTL = 5 * time.Minute

// Session manages the sign-in lifecycle against the Tableau REST API.
type Session interface {
	// SignIn authenticates and stores the session token for later calls.
	SignIn(ctx context.Context) error

	// SignOut invalidates the session token.
	SignOut(ctx context.Context) error
}

// MetadataQuerier executes one page query against the Metadata API.
type MetadataQuerier interface {
	// Query requests one page of the named connection. nodeQuery is the
	// GraphQL node selection, filter the raw filter body (may be empty).
	// GraphQL-level errors are returned inside the result, not as an
	// error; the error return is reserved for structural failures.
	Query(ctx context.Context, nodeQuery, connectionName string, first, offset int, filter string) (*QueryResult, error)
}

// Server is the full surface the harvester needs from a Tableau server.
type Server interface {
	Session
	MetadataQuerier
}

// PageInfo is the continuation marker of a connection page.
type PageInfo struct {
	HasNextPage bool `json:"hasNextPage"`
}

// Connection is one page of a paginated GraphQL connection. TotalCount is
// authoritative only as of the fetch that produced it.
type Connection struct {
	Nodes      json.RawMessage `json:"nodes"`
	TotalCount int             `json:"totalCount"`
	PageInfo   PageInfo        `json:"pageInfo"`
}

// QueryResult is a decoded metadata query response. Errors holds the raw
// GraphQL error payloads; data may still be present alongside them.
type QueryResult struct {
	Connection Connection
	Errors     []string
}

// MetadataQueryError is a structural failure executing or decoding a
// metadata query. It is fatal to the remainder of a harvest.
type MetadataQueryError struct {
	Connection string
	Err        error
}

func (e *MetadataQueryError) Error() string {
	return fmt.Sprintf("metadata query %s: %v", e.Connection, e.Err)
}

func (e *MetadataQueryError) Unwrap() error { return e.Err }

// Client talks to one Tableau Server / Tableau Online instance.
type Client struct {
	cfg        *config.Config
	httpClient *http.Client
	logger     *zap.Logger

	authToken string
	siteID    string
}

// NewClient validates that a credential mechanism is configured and returns
// a client. No network calls are made until SignIn.
func NewClient(cfg *config.Config, logger *zap.Logger) (*Client, error) {
	if !cfg.HasPasswordAuth() && !cfg.HasTokenAuth() && !cfg.HasConnectedAppAuth() {
		return nil, apperrors.ErrMissingCredentials
	}

	return &Client{
		cfg:    cfg,
		logger: logger,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}, nil
}

type signInSite struct {
	ContentURL string `json:"contentUrl"`
}

type signInCredentials struct {
	Name     string `json:"name,omitempty"`
	Password string `json:"password,omitempty"`

	PersonalAccessTokenName   string `json:"personalAccessTokenName,omitempty"`
	PersonalAccessTokenSecret string `json:"personalAccessTokenSecret,omitempty"`

	JWT string `json:"jwt,omitempty"`

	Site signInSite `json:"site"`
}

type signInRequest struct {
	Credentials signInCredentials `json:"credentials"`
}

type signInResponse struct {
	Credentials struct {
		Token string `json:"token"`
		Site  struct {
			ID string `json:"id"`
		} `json:"site"`
	} `json:"credentials"`
}

// SignIn resolves credentials in order (username/password, personal access
// token, connected app) and performs the REST sign-in.
func (c *Client) SignIn(ctx context.Context) error {
	creds := signInCredentials{Site: signInSite{ContentURL: c.cfg.Site}}

	switch {
	case c.cfg.HasPasswordAuth():
		creds.Name = c.cfg.Username
		creds.Password = c.cfg.Password
	case c.cfg.HasTokenAuth():
		creds.PersonalAccessTokenName = c.cfg.TokenName
		creds.PersonalAccessTokenSecret = c.cfg.TokenValue
	case c.cfg.HasConnectedAppAuth():
		token, err := c.connectedAppToken()
		if err != nil {
			return fmt.Errorf("failed to build connected-app token: %w", err)
		}
		creds.JWT = token
	default:
		return apperrors.ErrMissingCredentials
	}

	body, err := json.Marshal(signInRequest{Credentials: creds})
	if err != nil {
		return fmt.Errorf("failed to encode sign-in request: %w", err)
	}

	url := fmt.Sprintf("%s/api/%s/auth/signin", c.cfg.ConnectURI, restAPIVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create sign-in request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sign-in request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", apperrors.ErrSignInRejected, resp.StatusCode)
	}

	var result signInResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("failed to decode sign-in response: %w", err)
	}
	if result.Credentials.Token == "" {
		return fmt.Errorf("%w: empty session token", apperrors.ErrSignInRejected)
	}

	c.authToken = result.Credentials.Token
	c.siteID = result.Credentials.Site.ID

	c.logger.Info("Signed in to Tableau",
		zap.String("server", logging.SanitizeURI(c.cfg.ConnectURI)),
		zap.String("site", c.cfg.Site),
	)
	return nil
}

// connectedAppToken signs a short-lived JWT asserting the configured user.
func (c *Client) connectedAppToken() (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss": c.cfg.ConnectedApp.ClientID,
		"sub": c.cfg.Username,
		"aud": "tableau",
		"jti": uuid.NewString(),
		"exp": now.Add(connectedAppTokenTTL).Unix(),
		"scp": []string{"tableau:content:read"},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["kid"] = c.cfg.ConnectedApp.SecretID
	token.Header["iss"] = c.cfg.ConnectedApp.ClientID

	return token.SignedString([]byte(c.cfg.ConnectedApp.SecretValue))
}

// SignOut invalidates the current session. Safe to call when not signed in.
func (c *Client) SignOut(ctx context.Context) error {
	if c.authToken == "" {
		return nil
	}

	url := fmt.Sprintf("%s/api/%s/auth/signout", c.cfg.ConnectURI, restAPIVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create sign-out request: %w", err)
	}
	req.Header.Set("X-Tableau-Auth", c.authToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sign-out request failed: %w", err)
	}
	defer resp.Body.Close()

	c.authToken = ""
	c.siteID = ""
	return nil
}

type graphqlRequest struct {
	Query string `json:"query"`
}

type graphqlResponse struct {
	Data   map[string]Connection `json:"data"`
	Errors []json.RawMessage     `json:"errors"`
}

// Query wraps the node selection in the connection envelope and executes it
// against the Metadata API. GraphQL error payloads come back in the result;
// transport and decode failures come back as *MetadataQueryError.
func (c *Client) Query(ctx context.Context, nodeQuery, connectionName string, first, offset int, filter string) (*QueryResult, error) {
	if c.authToken == "" {
		return nil, &MetadataQueryError{Connection: connectionName, Err: apperrors.ErrNotSignedIn}
	}

	doc := fmt.Sprintf(`{
  %s (first: %d, offset: %d, filter: {%s}) {
    nodes %s
    pageInfo {
      hasNextPage
      endCursor
    }
    totalCount
  }
}`, connectionName, first, offset, filter, nodeQuery)

	body, err := json.Marshal(graphqlRequest{Query: doc})
	if err != nil {
		return nil, &MetadataQueryError{Connection: connectionName, Err: err}
	}

	url := fmt.Sprintf("%s/api/metadata/graphql", c.cfg.ConnectURI)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, &MetadataQueryError{Connection: connectionName, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tableau-Auth", c.authToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &MetadataQueryError{Connection: connectionName, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &MetadataQueryError{
			Connection: connectionName,
			Err:        fmt.Errorf("status %d: %s", resp.StatusCode, raw),
		}
	}

	var payload graphqlResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &MetadataQueryError{Connection: connectionName, Err: err}
	}

	result := &QueryResult{Connection: payload.Data[connectionName]}
	for _, raw := range payload.Errors {
		result.Errors = append(result.Errors, string(raw))
	}
	return result, nil
}

// Compile-time check that Client satisfies the harvester's server surface.
var _ Server = (*Client)(nil)
