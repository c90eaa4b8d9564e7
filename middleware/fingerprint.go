// middleware/fingerprint.go
package middleware

import (
	"log"

	"quest-reward-system/services"

	"github.com/gofiber/fiber/v2"
)

// FingerprintMiddleware captures the device fingerprint (X-Visitor-ID, set by
// the frontend fingerprinting script) and client IP on every request and
// records the (device, user) and (ip, user) pairs the risk evaluator reads.
// Recording failures are logged and never block the request.
func FingerprintMiddleware(fingerprints *services.FingerprintService, users *services.UserService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		visitorID := c.Get("X-Visitor-ID")
		ip := c.Get("X-Forwarded-For")
		if ip == "" {
			ip = c.IP()
		}

		c.Locals("visitor_id", visitorID)
		c.Locals("client_ip", ip)

		externalID, _ := c.Locals("user_id").(string)
		if externalID != "" {
			username, _ := c.Locals("username").(string)
			telegramID, _ := c.Locals("telegram_id").(string)
			user, err := users.EnsureUser(externalID, username, telegramID)
			if err != nil {
				log.Printf("[FINGERPRINT] ensure user failed for %s: %v", externalID, err)
			} else {
				c.Locals("local_user_id", user.ID)
				if err := fingerprints.Touch(user.ID, ip, visitorID, c.Get("X-Fingerprint-Data")); err != nil {
					log.Printf("[FINGERPRINT] touch failed for %s: %v", user.ID, err)
				}
			}
		}

		return c.Next()
	}
}
