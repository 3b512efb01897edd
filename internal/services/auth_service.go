package services

import (
	"fmt"
	"log"
	"sync"

	"github.com/authorizerdev/authorizer-go"
	"github.com/solvemyproblem/core/internal/config"
	"github.com/solvemyproblem/core/internal/utils"
)

var (
	authClient *authorizer.AuthorizerClient
	authOnce   sync.Once
)

// IsAuthorizerInitialized returns true if the Authorizer client is initialized
func IsAuthorizerInitialized() bool {
	return authClient != nil
}

// InitAuthorizer initializes the Authorizer client (singleton pattern)
func InitAuthorizer(cfg *config.Config, requestProtocol, requestHost string) error {
	var initErr error

	authOnce.Do(func() {
		// Ping the Authorizer service first
		if err := utils.PingAuthorizer(cfg.AuthzURL); err != nil {
			initErr = fmt.Errorf("authorizer ping failed: %w", err)
			return
		}

		redirectURL := fmt.Sprintf("%s://%s", requestProtocol, requestHost)
		log.Printf("Initializing Authorizer: authorizerURL=%s, clientID=%s, redirectURL=%s",
			cfg.AuthzURL, cfg.AuthzClientID, redirectURL)

		var err error
		authClient, err = authorizer.NewAuthorizerClient(cfg.AuthzClientID, cfg.AuthzURL, redirectURL, nil)
		if err != nil {
			initErr = fmt.Errorf("failed to create authorizer client: %w", err)
			return
		}
	})

	return initErr
}

// Identity is the verified caller identity extracted from a validated access
// token. It is attached request-scoped by the auth middleware and never
// stored in module-level state.
type Identity struct {
	Sub   string
	Email string
	Name  string
	Roles []string
}

// ValidateToken validates a bearer access token for the given roles and
// returns the verified identity claims.
func ValidateToken(token string, roles []string) (*Identity, error) {
	if authClient == nil {
		return nil, fmt.Errorf("authorizer client not initialized")
	}

	// Convert roles to []*string
	rolesPtrs := make([]*string, len(roles))
	for i := range roles {
		rolesPtrs[i] = &roles[i]
	}

	res, err := authClient.ValidateJWTToken(&authorizer.ValidateJWTTokenInput{
		TokenType: authorizer.TokenTypeAccessToken,
		Token:     token,
		Roles:     rolesPtrs,
	})
	if err != nil {
		return nil, fmt.Errorf("token validation failed: %w", err)
	}

	if res == nil || !res.IsValid {
		return nil, fmt.Errorf("token is not valid")
	}

	return identityFromClaims(res.Claims), nil
}

// identityFromClaims maps the raw token claims to an Identity. Missing or
// oddly-typed claims degrade to zero values rather than failing the request.
func identityFromClaims(claims map[string]interface{}) *Identity {
	id := &Identity{}

	if sub, ok := claims["sub"].(string); ok {
		id.Sub = sub
	}
	if email, ok := claims["email"].(string); ok {
		id.Email = email
	}
	if name, ok := claims["name"].(string); ok {
		id.Name = name
	}

	switch v := claims["roles"].(type) {
	case []interface{}:
		for _, r := range v {
			if s, ok := r.(string); ok {
				id.Roles = append(id.Roles, s)
			}
		}
	case []string:
		id.Roles = v
	case string:
		id.Roles = []string{v}
	}

	return id
}

// HasRole reports whether the identity carries the given role.
func (id *Identity) HasRole(role string) bool {
	for _, r := range id.Roles {
		if r == role {
			return true
		}
	}
	return false
}
