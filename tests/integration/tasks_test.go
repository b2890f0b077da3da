//go:build integration

package integration

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskCRUD(t *testing.T) {
	env := SetupTestEnv(t)

	RegisterUser(t, env, "tasks@example.com", "password123")
	token := LoginUser(t, env, "tasks@example.com", "password123")

	var taskID string

	t.Run("create task", func(t *testing.T) {
		body := map[string]any{
			"title":          "Morning run",
			"type":           "recurring",
			"scheduled_time": "07:00",
			"recurrence":     "daily",
		}
		resp := DoRequest(t, env, "POST", "/api/v1/tasks", body, token)
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		result := ParseResponse(t, resp)
		data := result["data"].(map[string]any)
		taskID = data["id"].(string)
		assert.Equal(t, "Morning run", data["title"])
		assert.Equal(t, "active", data["status"])
	})

	t.Run("recurring task without time rejected", func(t *testing.T) {
		body := map[string]any{
			"title":      "No time",
			"type":       "recurring",
			"recurrence": "daily",
		}
		resp := DoRequest(t, env, "POST", "/api/v1/tasks", body, token)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("list tasks", func(t *testing.T) {
		resp := DoRequest(t, env, "GET", "/api/v1/tasks", nil, token)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		result := ParseResponse(t, resp)
		rows := result["data"].([]any)
		assert.NotEmpty(t, rows)
	})

	t.Run("update task", func(t *testing.T) {
		body := map[string]any{"scheduled_time": "08:30"}
		resp := DoRequest(t, env, "PUT", "/api/v1/tasks/"+taskID, body, token)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		result := ParseResponse(t, resp)
		data := result["data"].(map[string]any)
		assert.Equal(t, "08:30", data["scheduled_time"])
	})

	t.Run("create and list subtasks", func(t *testing.T) {
		body := map[string]any{"title": "Stretch", "scheduled_time": "06:50"}
		resp := DoRequest(t, env, "POST", "/api/v1/tasks/"+taskID+"/subtasks", body, token)
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		resp = DoRequest(t, env, "GET", "/api/v1/tasks/"+taskID+"/subtasks", nil, token)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		result := ParseResponse(t, resp)
		subs := result["data"].([]any)
		assert.Len(t, subs, 1)
	})

	t.Run("delete task", func(t *testing.T) {
		resp := DoRequest(t, env, "DELETE", "/api/v1/tasks/"+taskID, nil, token)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		resp = DoRequest(t, env, "GET", "/api/v1/tasks/"+taskID, nil, token)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestTaskOwnershipIsolation(t *testing.T) {
	env := SetupTestEnv(t)

	RegisterUser(t, env, "owner-a@example.com", "password123")
	RegisterUser(t, env, "owner-b@example.com", "password123")

	tokenA := LoginUser(t, env, "owner-a@example.com", "password123")
	tokenB := LoginUser(t, env, "owner-b@example.com", "password123")

	body := map[string]any{"title": "User A task", "type": "one_off"}
	resp := DoRequest(t, env, "POST", "/api/v1/tasks", body, tokenA)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	result := ParseResponse(t, resp)
	data := result["data"].(map[string]any)
	taskAID := data["id"].(string)

	t.Run("owner can access own task", func(t *testing.T) {
		resp := DoRequest(t, env, "GET", "/api/v1/tasks/"+taskAID, nil, tokenA)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	// Foreign tasks are indistinguishable from missing ones.
	t.Run("other user cannot GET task", func(t *testing.T) {
		resp := DoRequest(t, env, "GET", "/api/v1/tasks/"+taskAID, nil, tokenB)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("other user cannot UPDATE task", func(t *testing.T) {
		updateBody := map[string]any{"title": "Hijacked"}
		resp := DoRequest(t, env, "PUT", "/api/v1/tasks/"+taskAID, updateBody, tokenB)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("other user cannot DELETE task", func(t *testing.T) {
		resp := DoRequest(t, env, "DELETE", "/api/v1/tasks/"+taskAID, nil, tokenB)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("listing only returns own tasks", func(t *testing.T) {
		listResp := DoRequest(t, env, "GET", "/api/v1/tasks", nil, tokenB)
		require.Equal(t, http.StatusOK, listResp.StatusCode)

		listResult := ParseResponse(t, listResp)
		rows, _ := listResult["data"].([]any)
		for _, row := range rows {
			task := row.(map[string]any)
			assert.NotEqual(t, "User A task", task["title"])
		}
	})

	t.Run("unauthenticated access denied", func(t *testing.T) {
		resp := DoRequest(t, env, "GET", "/api/v1/tasks/"+taskAID, nil, "")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("invalid token access denied", func(t *testing.T) {
		resp := DoRequest(t, env, "GET", "/api/v1/tasks/"+taskAID, nil, "invalid-jwt-token")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}
