package authstore

import (
	"strconv"
	"time"

	"golang.org/x/oauth2"

	"github.com/apifest/authstore/security"
)

// Client application status values.
const (
	ClientInactive = 0
	ClientActive   = 1
)

// Grant types recorded on issued credentials.
const (
	GrantTypeAuthorizationCode = "authorization_code"
	GrantTypeClientCredentials = "client_credentials"
	GrantTypePassword          = "password"
	GrantTypeRefreshToken      = "refresh_token"
)

// TokenTypeBearer is the token type issued for all access tokens.
const TokenTypeBearer = "bearer"

// ClientCredentials is a registered client application. The Id is the
// unique clientId; the secret is opaque and compared exactly on
// validation.
type ClientCredentials struct {
	ID          string
	Secret      string
	Name        string
	URI         string
	Description string
	Scope       string
	Status      int
	CreatedAt   time.Time
}

// NewClientCredentials registers a new client application with a
// generated collision-resistant clientId and secret, active status,
// and the current creation time.
func NewClientCredentials(name, uri, scope, description string) *ClientCredentials {
	return &ClientCredentials{
		ID:          security.GenerateClientID(),
		Secret:      security.GenerateClientSecret(),
		Name:        name,
		URI:         uri,
		Description: description,
		Scope:       scope,
		Status:      ClientActive,
		CreatedAt:   time.Now(),
	}
}

// Active reports whether the client application may authenticate.
func (c *ClientCredentials) Active() bool {
	return c.Status == ClientActive
}

// AuthCode is a short-lived, single-use authorization code. ID is the
// surrogate storage identifier, assigned by the store on first
// persistence; Code is the credential handed to the client. Codes are
// never physically deleted: redemption flips Valid to false and the
// record is kept for audit and replay detection.
type AuthCode struct {
	ID          string
	Code        string
	ClientID    string
	RedirectURI string
	Scope       string
	Type        string
	Valid       bool
	CreatedAt   time.Time
}

// NewAuthCode issues a new authorization code for the given client.
func NewAuthCode(clientID, redirectURI, scope string) *AuthCode {
	return &AuthCode{
		Code:        security.GenerateAuthCode(),
		ClientID:    clientID,
		RedirectURI: redirectURI,
		Scope:       scope,
		Type:        GrantTypeAuthorizationCode,
		Valid:       true,
		CreatedAt:   time.Now(),
	}
}

// AccessToken is a bearer credential paired with an optional refresh
// token. Both live in a single stored record and share the Valid flag,
// so revoking one revokes the other for every lookup path.
type AccessToken struct {
	Token        string
	RefreshToken string
	ClientID     string
	Scope        string
	Type         string
	ExpiresIn    string
	Details      string
	Valid        bool
	CreatedAt    time.Time
}

// NewAccessToken issues a new access/refresh token pair for the given
// client. ExpiresIn is the lifetime in seconds, carried as a string on
// the wire per the token-endpoint convention.
func NewAccessToken(clientID, scope string, expiresIn int) *AccessToken {
	return &AccessToken{
		Token:        security.GenerateToken(),
		RefreshToken: security.GenerateToken(),
		ClientID:     clientID,
		Scope:        scope,
		Type:         TokenTypeBearer,
		ExpiresIn:    strconv.Itoa(expiresIn),
		Valid:        true,
		CreatedAt:    time.Now(),
	}
}

// ValidUntil returns the absolute expiry deadline derived from
// CreatedAt and ExpiresIn. A malformed or missing ExpiresIn yields the
// zero time, which expiry checks treat as never expiring.
func (t *AccessToken) ValidUntil() time.Time {
	secs, err := strconv.Atoi(t.ExpiresIn)
	if err != nil || secs <= 0 {
		return time.Time{}
	}
	return t.CreatedAt.Add(time.Duration(secs) * time.Second)
}

// Expired reports whether the token lifetime has elapsed, with the
// default clock-skew grace period.
func (t *AccessToken) Expired() bool {
	return security.IsExpired(t.ValidUntil())
}

// OAuth2 converts the token into the golang.org/x/oauth2 representation
// used by the token-endpoint layer.
func (t *AccessToken) OAuth2() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  t.Token,
		TokenType:    t.Type,
		RefreshToken: t.RefreshToken,
		Expiry:       t.ValidUntil(),
	}
}

// Scope is a named permission unit with per-grant token lifetimes.
// CCExpiresIn and PassExpiresIn are the access-token lifetimes in
// seconds for the client_credentials and password grants.
type Scope struct {
	Name          string
	Description   string
	CCExpiresIn   int
	PassExpiresIn int
}
