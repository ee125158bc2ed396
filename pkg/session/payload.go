package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tdsapp/tdsclient/internal/log"
)

// TeslaToken is the upstream vehicle-platform credential. The client persists it alongside the
// backend session but never sends it anywhere; the backend holds the authoritative copy and uses
// it server-side.
type TeslaToken struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

// JWT is the backend-issued bearer credential for API calls.
type JWT struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
	Issuer    string `json:"issuer"`
}

// LoginPayload is the record produced by the backend at the end of the authorization flow and
// delivered to the client through the callback channels. The same shape is persisted verbatim in
// the credential store.
type LoginPayload struct {
	UserID     string     `json:"user_id"`
	JWT        JWT        `json:"jwt"`
	TeslaToken TeslaToken `json:"tesla_token"`
}

// Validate checks that the payload carries the fields the client cannot operate without.
func (p *LoginPayload) Validate() error {
	if p.JWT.Token == "" {
		return fmt.Errorf("login payload missing jwt token")
	}
	if p.TeslaToken.AccessToken == "" {
		return fmt.Errorf("login payload missing tesla token")
	}
	return nil
}

// subject extracts the sub claim from the backend JWT without verifying the signature. Used as a
// fallback user id when the payload omits user_id, and to log the token's expiry at login and
// hydration time. Expiry is never enforced locally: a stale token fails remotely and rides the
// 401 reset path.
func (p *LoginPayload) subject() string {
	token, _, err := jwt.NewParser().ParseUnverified(p.JWT.Token, jwt.MapClaims{})
	if err != nil {
		log.Debug("session: backend token is not a JWT: %s", err)
		return ""
	}
	if exp, err := token.Claims.GetExpirationTime(); err == nil && exp != nil {
		if remaining := time.Until(exp.Time); remaining < 0 {
			log.Warning("session: stored token expired %s ago", -remaining.Round(time.Second))
		} else {
			log.Debug("session: token valid for another %s", remaining.Round(time.Second))
		}
	}
	sub, err := token.Claims.GetSubject()
	if err != nil {
		return ""
	}
	return sub
}
