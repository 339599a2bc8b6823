package replicator

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Protocol option keys the engine understands for authentication
const (
	optionAuthType     = "auth.type"
	optionAuthUser     = "auth.username"
	optionAuthPassword = "auth.password"
	optionAuthSession  = "auth.session"
	optionAuthCookie   = "auth.cookie_name"
	optionAuthToken    = "auth.bearer_token"
)

// Authenticator values for optionAuthType
const (
	authTypeBasic   = "basic"
	authTypeSession = "session"
	authTypeBearer  = "bearer"
)

var (
	ErrShortSecret  = errors.New("secret must be at least 32 characters")
	ErrEmptySubject = errors.New("subject cannot be empty")
)

// Authenticator injects credentials into the protocol options, once, before
// each engine session creation.
type Authenticator interface {
	Authenticate(options map[string]any) error
}

// BasicAuthenticator carries username/password credentials
type BasicAuthenticator struct {
	username string
	password string
}

// NewBasicAuthenticator creates a basic authenticator
func NewBasicAuthenticator(username, password string) *BasicAuthenticator {
	return &BasicAuthenticator{username: username, password: password}
}

// Authenticate implements Authenticator
func (a *BasicAuthenticator) Authenticate(options map[string]any) error {
	if a.username == "" {
		return errors.New("basic authenticator requires a username")
	}
	options[optionAuthType] = authTypeBasic
	options[optionAuthUser] = a.username
	options[optionAuthPassword] = a.password
	return nil
}

// SessionAuthenticator carries a pre-established session ID, sent as a
// cookie to the remote peer.
type SessionAuthenticator struct {
	sessionID  string
	cookieName string
}

const defaultSessionCookie = "SyncSession"

// NewSessionAuthenticator creates a session authenticator. An empty cookie
// name uses the protocol default.
func NewSessionAuthenticator(sessionID, cookieName string) *SessionAuthenticator {
	if cookieName == "" {
		cookieName = defaultSessionCookie
	}
	return &SessionAuthenticator{sessionID: sessionID, cookieName: cookieName}
}

// Authenticate implements Authenticator
func (a *SessionAuthenticator) Authenticate(options map[string]any) error {
	if a.sessionID == "" {
		return errors.New("session authenticator requires a session ID")
	}
	options[optionAuthType] = authTypeSession
	options[optionAuthSession] = a.sessionID
	options[optionAuthCookie] = a.cookieName
	return nil
}

// JWTAuthenticator signs a fresh HS256 bearer token before each session.
// The secret must be at least 32 characters.
type JWTAuthenticator struct {
	secretKey []byte
	subject   string
	ttl       time.Duration
}

const defaultTokenTTL = time.Hour

// NewJWTAuthenticator creates a JWT bearer authenticator. A zero ttl uses
// the default of one hour.
func NewJWTAuthenticator(secret, subject string, ttl time.Duration) (*JWTAuthenticator, error) {
	if len(secret) < 32 {
		return nil, ErrShortSecret
	}
	if subject == "" {
		return nil, ErrEmptySubject
	}
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &JWTAuthenticator{
		secretKey: []byte(secret),
		subject:   subject,
		ttl:       ttl,
	}, nil
}

// Authenticate implements Authenticator
func (a *JWTAuthenticator) Authenticate(options map[string]any) error {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": a.subject,
		"iat": now.Unix(),
		"exp": now.Add(a.ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(a.secretKey)
	if err != nil {
		return fmt.Errorf("failed to sign token: %w", err)
	}

	options[optionAuthType] = authTypeBearer
	options[optionAuthToken] = tokenString
	return nil
}
