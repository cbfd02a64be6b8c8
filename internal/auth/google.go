package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
)

var (
	ErrTokenRequired       = errors.New("token is required")
	ErrIdentityNotVerified = errors.New("could not verify token with google")
	ErrEmailMissing        = errors.New("email not found in google data")
)

// Источник, который подтвердил токен.
const (
	SourceUserInfo  = "userinfo"
	SourceTokenInfo = "tokeninfo"
)

type Identity struct {
	Email      string `json:"email"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Source     string `json:"-"`
}

type IdentityVerifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// GoogleVerifier сначала пробует токен как access token (userinfo),
// затем как id token (tokeninfo). Каждый запрос ограничен timeout.
type GoogleVerifier struct {
	httpClient   *http.Client
	userInfoURL  string
	tokenInfoURL string
	timeout      time.Duration
}

func NewGoogleVerifier(userInfoURL, tokenInfoURL string, timeout time.Duration) *GoogleVerifier {
	return &GoogleVerifier{
		httpClient:   &http.Client{},
		userInfoURL:  userInfoURL,
		tokenInfoURL: tokenInfoURL,
		timeout:      timeout,
	}
}

func (v *GoogleVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, ErrTokenRequired
	}

	identity, err := v.lookup(ctx, v.userInfoURL, "access_token", token)
	if err == nil {
		identity.Source = SourceUserInfo
		return identity, nil
	}
	log.Debug().Err(err).Msg("auth: userinfo endpoint rejected token, trying tokeninfo")

	identity, err = v.lookup(ctx, v.tokenInfoURL, "id_token", token)
	if err == nil {
		identity.Source = SourceTokenInfo
		return identity, nil
	}
	log.Warn().Err(err).Msg("auth: tokeninfo endpoint rejected token")

	return nil, ErrIdentityNotVerified
}

func (v *GoogleVerifier) lookup(ctx context.Context, endpoint, param, token string) (*Identity, error) {
	if v.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.timeout)
		defer cancel()
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	q := u.Query()
	q.Set(param, token)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", u.Host, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%s returned status %d: %s", u.Host, resp.StatusCode, body)
	}

	var identity Identity
	if err := json.NewDecoder(resp.Body).Decode(&identity); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &identity, nil
}
