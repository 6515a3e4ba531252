package auth

import (
	"github.com/labstack/echo/v4"
)

// Probes and the Prometheus scrape run without a session token.
var publicPaths = map[string]struct{}{
	"/health":    {},
	"/health/db": {},
	"/metrics":   {},
}

func IsPublicPath(path string) bool {
	_, ok := publicPaths[path]
	return ok
}

// AuthSkipper matches the registered route pattern, not the raw URL.
func AuthSkipper(c echo.Context) bool {
	return IsPublicPath(c.Path())
}
