package models

import "github.com/gofiber/fiber/v2"

// Next steps suggested to the client after adding a website.
const (
	NextStepVerify    = "verify"
	NextStepPricing   = "pricing"
	NextStepDashboard = "dashboard"
)

// Envelope is the body of every successful API response.
type Envelope struct {
	OK       bool   `json:"ok"`
	Message  string `json:"message,omitempty"`
	Data     any    `json:"data,omitempty"`
	Existed  bool   `json:"existed,omitempty"`
	NextStep string `json:"nextStep,omitempty"`
}

// Respond writes data wrapped in an Envelope.
func Respond(c *fiber.Ctx, status int, message string, data any) error {
	return c.Status(status).JSON(Envelope{OK: true, Message: message, Data: data})
}

// Page is a paginated list payload.
type Page[T any] struct {
	Items  []T   `json:"items"`
	Total  int64 `json:"total"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}
