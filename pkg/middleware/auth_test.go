package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func testApp(token string) *fiber.App {
	app := fiber.New()
	app.Use(APIToken(token, zap.NewNop()))
	app.Get("/ping", func(c *fiber.Ctx) error {
		return c.SendString("pong")
	})
	return app
}

func TestAPITokenDisabledWhenEmpty(t *testing.T) {
	app := testApp("")
	resp, err := app.Test(httptest.NewRequest("GET", "/ping", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}

func TestAPITokenHeaders(t *testing.T) {
	tests := []struct {
		name   string
		header string
		value  string
		want   int
	}{
		{"x-api-key", "X-API-Key", "secret", fiber.StatusOK},
		{"bearer", "Authorization", "Bearer secret", fiber.StatusOK},
		{"wrong token", "X-API-Key", "other", fiber.StatusUnauthorized},
		{"missing", "", "", fiber.StatusUnauthorized},
	}

	app := testApp("secret")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/ping", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("request: %v", err)
			}
			if resp.StatusCode != tt.want {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}
