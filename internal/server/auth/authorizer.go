package auth

import (
	"fmt"

	"github.com/dmitrijs2005/idkeeper/internal/common"
	"github.com/dmitrijs2005/idkeeper/internal/server/models"
)

// Principal is who a verified token speaks for.
type Principal struct {
	SubjectID string
	UserName  string
	Roles     []models.Role
}

func (p Principal) HasAnyRole(roles ...models.Role) bool {
	return models.HasAnyRole(p.Roles, roles...)
}

// Covers reports whether p may grant or manage every role in roles.
func (p Principal) Covers(roles ...models.Role) bool {
	return models.Covers(p.Roles, roles...)
}

func PrincipalFromClaims(c *Claims) Principal {
	return Principal{
		SubjectID: c.Subject,
		UserName:  c.UserName,
		Roles:     append([]models.Role(nil), c.Roles...),
	}
}

// TokenVerifier is satisfied by *Codec.
type TokenVerifier interface {
	Verify(token string) (*Claims, error)
}

// Authorizer is a side-effect free predicate over a token and a role set.
type Authorizer struct {
	verifier TokenVerifier
}

func NewAuthorizer(v TokenVerifier) *Authorizer {
	return &Authorizer{verifier: v}
}

// Authorize verifies token and reports whether its roles intersect
// required. An empty required set admits any authenticated caller.
//
// A failed verification returns an error matching both
// common.ErrUnauthenticated and the codec's classification. A disjoint role
// set is not an error: the principal is returned with permitted=false.
func (a *Authorizer) Authorize(token string, required ...models.Role) (Principal, bool, error) {
	if token == "" {
		return Principal{}, false, fmt.Errorf("%w: %w", common.ErrUnauthenticated, common.ErrMissingToken)
	}
	claims, err := a.verifier.Verify(token)
	if err != nil {
		return Principal{}, false, fmt.Errorf("%w: %w", common.ErrUnauthenticated, err)
	}
	p := PrincipalFromClaims(claims)
	return p, p.HasAnyRole(required...), nil
}
