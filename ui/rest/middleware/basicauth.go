package middleware

import (
	"fmt"
	"strings"

	"github.com/AzielCF/az-speed/pkg/security"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
)

// ParseAccounts reads "user:secret" pairs. A secret may be a bcrypt hash.
func ParseAccounts(pairs []string) (map[string]string, error) {
	accounts := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		user, secret, ok := strings.Cut(strings.TrimSpace(pair), ":")
		if !ok || user == "" || secret == "" {
			return nil, fmt.Errorf("basic auth is not valid, use the format <user>:<secret>")
		}
		accounts[user] = secret
	}
	return accounts, nil
}

// BasicAuth protects the admin surface. CORS preflight passes without
// credentials.
func BasicAuth(accounts map[string]string) fiber.Handler {
	return basicauth.New(basicauth.Config{
		Realm: "Safe Speed Optimizer",
		Authorizer: func(user, pass string) bool {
			configured, ok := accounts[user]
			return ok && security.CheckPassword(pass, configured)
		},
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
	})
}
