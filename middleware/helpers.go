package middleware

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v4"
)

// Имена JWT claims, которые выдаёт auth-обработчик.
const (
	jwtClaimUserID      = "user_id"
	jwtClaimPermissions = "permissions"
)

var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrMissingScope    = errors.New("missing required permission")
)

// Identity — проверенная личность запроса: внутренний id пользователя и
// разрешения из токена. Ядро никогда не разбирает сырые credentials само.
type Identity struct {
	UserID int
	Scopes []string
}

func (i Identity) HasScope(scope string) bool {
	for _, s := range i.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// RequireAuthenticated возвращает identity запроса или ErrUnauthenticated.
func RequireAuthenticated(ctx context.Context) (Identity, error) {
	claims, ok := ctx.Value(claimsContextKey).(jwt.MapClaims)
	if !ok {
		return Identity{}, ErrUnauthenticated
	}

	userID, err := userIDFromClaims(claims)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	return Identity{
		UserID: userID,
		Scopes: scopesFromClaims(claims),
	}, nil
}

// RequireScope — явный guard в начале тела обработчика: identity есть и
// токен несёт требуемое разрешение.
func RequireScope(ctx context.Context, scope string) (Identity, error) {
	identity, err := RequireAuthenticated(ctx)
	if err != nil {
		return Identity{}, err
	}
	if !identity.HasScope(scope) {
		return Identity{}, fmt.Errorf("%w: %s", ErrMissingScope, scope)
	}
	return identity, nil
}

func userIDFromClaims(claims jwt.MapClaims) (int, error) {
	raw, ok := claims[jwtClaimUserID]
	if !ok {
		return 0, fmt.Errorf("missing %q claim", jwtClaimUserID)
	}

	// encoding/json отдаёт числа как float64
	idFloat, ok := raw.(float64)
	if !ok {
		return 0, fmt.Errorf("invalid type for %q claim: %T", jwtClaimUserID, raw)
	}
	id := int(idFloat)
	if id <= 0 || idFloat != float64(id) {
		return 0, fmt.Errorf("invalid %q claim value: %v", jwtClaimUserID, raw)
	}
	return id, nil
}

func scopesFromClaims(claims jwt.MapClaims) []string {
	raw, ok := claims[jwtClaimPermissions].([]interface{})
	if !ok {
		return nil
	}
	scopes := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			scopes = append(scopes, s)
		}
	}
	return scopes
}
