package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ehr/records/internal/platform/apperr"
	"github.com/ehr/records/internal/platform/db"
)

const msgBadCredentials = "Incorrect username or password"

// Account is what a login needs from storage: the principal's identifier and
// the bcrypt hash its password is checked against.
type Account struct {
	ID           uuid.UUID
	PasswordHash string
}

// AccountSource resolves a login username to an Account. Implementations
// return db.ErrNotFound when no entity matches.
type AccountSource interface {
	AccountByUsername(ctx context.Context, username string) (Account, error)
}

// AccountSourceFunc adapts a function to AccountSource.
type AccountSourceFunc func(ctx context.Context, username string) (Account, error)

func (f AccountSourceFunc) AccountByUsername(ctx context.Context, username string) (Account, error) {
	return f(ctx, username)
}

// AccessToken is the /token response body.
type AccessToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// CredentialVerifier checks a username/password against the account source
// selected by grant type and issues a token tagged with that kind.
type CredentialVerifier struct {
	tokens  *TokenService
	sources map[Kind]AccountSource
}

func NewCredentialVerifier(tokens *TokenService, sources map[Kind]AccountSource) *CredentialVerifier {
	return &CredentialVerifier{tokens: tokens, sources: sources}
}

// Login validates the triple and returns a bearer token. Empty fields fail
// with a validation error before any lookup; blank but non-empty ones are
// looked up like any other value. Unknown usernames and wrong
// passwords produce the same authentication error.
func (v *CredentialVerifier) Login(ctx context.Context, grantType, username, password string) (*AccessToken, error) {
	var missing []apperr.FieldError
	for _, f := range []struct{ name, value string }{
		{"grant_type", grantType},
		{"username", username},
		{"password", password},
	} {
		if f.value == "" {
			missing = append(missing, apperr.Missing("body", f.name))
		}
	}
	if len(missing) > 0 {
		return nil, apperr.Validation(missing...)
	}

	kind, ok := ParseKind(grantType)
	if !ok {
		return nil, apperr.BadRequest("Invalid login type")
	}
	src, ok := v.sources[kind]
	if !ok {
		return nil, apperr.BadRequest("Invalid login type")
	}

	log := zerolog.Ctx(ctx)
	acct, err := src.AccountByUsername(ctx, username)
	if errors.Is(err, db.ErrNotFound) {
		burnCompare(password)
		log.Debug().Str("grant_type", grantType).Msg("login rejected: unknown username")
		return nil, apperr.Unauthenticated(msgBadCredentials)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup %s account: %w", kind, err)
	}
	if !ComparePassword(acct.PasswordHash, password) {
		log.Debug().Str("grant_type", grantType).Str("subject", acct.ID.String()).Msg("login rejected: password mismatch")
		return nil, apperr.Unauthenticated(msgBadCredentials)
	}

	signed, _, err := v.tokens.Issue(acct.ID, kind)
	if err != nil {
		return nil, err
	}
	return &AccessToken{AccessToken: signed, TokenType: "bearer"}, nil
}
