// Package rayid provides request ID middleware for Fiber.
//
// Every incoming request gets a unique RayID, stored in the request locals
// and echoed in the X-Ray-Id response header. Handlers attach it to their
// log entries via logger.WithRayID so a sync trigger can be traced end to end.
package rayid

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// HeaderName is the response header carrying the generated RayID.
const HeaderName = "X-Ray-Id"

// LocalsKey is the Fiber locals key under which the RayID is stored.
const LocalsKey = "ray_id"

// New returns a middleware that assigns a RayID to every request.
func New() fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Honor an inbound id from an upstream proxy if present.
		id := c.Get(HeaderName)
		if id == "" {
			id = uuid.NewString()
		}

		c.Locals(LocalsKey, id)
		c.Set(HeaderName, id)

		return c.Next()
	}
}
