package dates

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Normalized is the response of the normalize endpoint.
type Normalized struct {
	Input          string `json:"input"`
	Storage        string `json:"storage"`
	Display        string `json:"display"`
	ValidBirthDate bool   `json:"valid_birth_date"`
	Age            *int   `json:"age,omitempty"`
}

// Normalize runs every normalizer operation over input.
func Normalize(input string) Normalized {
	n := Normalized{
		Input:          input,
		Display:        FormatForDisplay(input),
		ValidBirthDate: IsValidBirthDate(input),
	}
	if s, ok := FormatForStorage(input); ok {
		n.Storage = s
	}
	if age, ok := CalculateAge(input); ok && age >= 0 {
		n.Age = &age
	}
	return n
}

// NormalizeHandler serves GET /dates/normalize?value=...
func NormalizeHandler(c echo.Context) error {
	value := c.QueryParam("value")
	if value == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "value is required")
	}
	return c.JSON(http.StatusOK, Normalize(value))
}

func RegisterRoutes(api *echo.Group) {
	api.GET("/dates/normalize", NormalizeHandler)
}
