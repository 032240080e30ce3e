package api

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fathima-sithara/conversation-service/internal/apperr"
	"github.com/fathima-sithara/conversation-service/internal/models"
)

func doRequest(t *testing.T, app *fiber.App, path string) (int, Envelope) {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var env Envelope
	require.NoError(t, json.Unmarshal(body, &env))
	return resp.StatusCode, env
}

func TestEnvelopeErrorMapping(t *testing.T) {
	app := fiber.New()
	app.Get("/validation", func(c *fiber.Ctx) error { return fail(c, apperr.Validation("too long")) })
	app.Get("/notfound", func(c *fiber.Ctx) error { return fail(c, apperr.NotFound("gone")) })
	app.Get("/denied", func(c *fiber.Ctx) error { return fail(c, apperr.PermissionDenied("no")) })
	app.Get("/conflict", func(c *fiber.Ctx) error { return fail(c, apperr.Conflict("blocked")) })

	cases := []struct {
		path   string
		status int
		code   string
	}{
		{"/validation", 400, "VALIDATION_ERROR"},
		{"/notfound", 404, "NOT_FOUND"},
		{"/denied", 403, "PERMISSION_DENIED"},
		{"/conflict", 409, "CONFLICT"},
	}
	for _, tc := range cases {
		status, env := doRequest(t, app, tc.path)
		assert.Equal(t, tc.status, status, tc.path)
		assert.False(t, env.Success)
		assert.Equal(t, tc.code, env.Code)
		assert.NotEmpty(t, env.Error)
	}
}

func TestEnvelopeSuccess(t *testing.T) {
	app := fiber.New()
	app.Get("/ok", func(c *fiber.Ctx) error {
		return ok(c, 200, fiber.Map{"hello": "world"})
	})
	status, env := doRequest(t, app, "/ok")
	assert.Equal(t, 200, status)
	assert.True(t, env.Success)
	assert.Empty(t, env.Code)
}

func TestMissingIdentityHeaderCode(t *testing.T) {
	// The identity middleware runs before any handler, so an empty Handlers
	// value is enough to exercise the rejection.
	app := NewServer(&Handlers{}, nil)
	status, env := doRequest(t, app, "/v1/conversations")
	assert.Equal(t, 401, status)
	assert.False(t, env.Success)
	assert.Equal(t, "UNAUTHENTICATED", env.Code)
	assert.NotEmpty(t, env.Error)
}

func TestMessageViewReactions(t *testing.T) {
	m := &models.Message{
		ID:        "m1",
		Type:      models.TypeText,
		Content:   models.NewTextContent("hi"),
		Reactions: map[string][]string{"👍": {"A", "B"}},
	}
	b, err := json.Marshal(viewMessage(m))
	require.NoError(t, err)

	var out struct {
		ID        string            `json:"id"`
		Reactions []models.Reaction `json:"reactions"`
	}
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, "m1", out.ID)
	require.Len(t, out.Reactions, 1)
	assert.Equal(t, 2, out.Reactions[0].Count)
	assert.Equal(t, []string{"A", "B"}, out.Reactions[0].Users)
}
