package middleware

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/gema-innovation-api/internal/utils"
)

// reservedRole is assigned to automatic decisions and can never come from a token.
const reservedRole = "system"

// AccessClaims is the token payload accepted by the API. The subject carries the
// numeric user id; roles may arrive under "role" or "roles" as a string or list.
type AccessClaims struct {
	Role  roleClaim `json:"role,omitempty"`
	Roles roleClaim `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// roleClaim accepts `"manager"`, `"manager,sme"` or `["manager","sme"]`.
type roleClaim []string

func (r *roleClaim) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*r = list
		return nil
	}

	var single string
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	*r = strings.Split(single, ",")
	return nil
}

// UserID parses the subject claim.
func (c AccessClaims) UserID() (uint, bool) {
	parsed, err := strconv.ParseUint(strings.TrimSpace(c.Subject), 10, 64)
	if err != nil || parsed == 0 {
		return 0, false
	}
	return uint(parsed), true
}

// NormalizedRoles merges both role claims, lowercased and de-duplicated in
// first-seen order, without the reserved system role.
func (c AccessClaims) NormalizedRoles() []string {
	roles := make([]string, 0, len(c.Role)+len(c.Roles))
	seen := make(map[string]struct{}, cap(roles))
	for _, raw := range append(append([]string{}, c.Role...), c.Roles...) {
		role := strings.ToLower(strings.TrimSpace(raw))
		if role == "" || role == reservedRole {
			continue
		}
		if _, dup := seen[role]; dup {
			continue
		}
		seen[role] = struct{}{}
		roles = append(roles, role)
	}
	return roles
}

// JWTProtected validates HMAC-signed bearer tokens and binds "user_id",
// "user_roles" and the primary "user_role" to the request.
func JWTProtected(secret string) fiber.Handler {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
		jwt.WithLeeway(30*time.Second),
	)
	keyFunc := func(*jwt.Token) (interface{}, error) { return []byte(secret), nil }

	return func(c *fiber.Ctx) error {
		authorization := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
		if authorization == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "authorization header missing")
		}

		scheme, tokenString, found := strings.Cut(authorization, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid authorization header")
		}
		tokenString = strings.TrimSpace(tokenString)
		if tokenString == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		var claims AccessClaims
		token, err := parser.ParseWithClaims(tokenString, &claims, keyFunc)
		if err != nil || !token.Valid {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		userID, ok := claims.UserID()
		if !ok {
			return utils.SendError(c, fiber.StatusUnauthorized, "token subject missing")
		}
		c.Locals("user_id", userID)

		roles := claims.NormalizedRoles()
		c.Locals("user_roles", roles)
		if len(roles) > 0 {
			c.Locals("user_role", roles[0])
		}

		return c.Next()
	}
}
