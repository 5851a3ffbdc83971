//go:build e2e

package e2e

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestE2E_Auth(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	t.Run("health is open", func(t *testing.T) {
		resp, err := env.GetUnauthenticated("/health")
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("api requires bearer token", func(t *testing.T) {
		resp, err := env.PostUnauthenticated("/search", map[string]string{"query": "void"})
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("valid token passes", func(t *testing.T) {
		resp, err := env.Get("/content/stats")
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestE2E_ContentLifecycle(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	t.Run("reload ingests rulebooks", func(t *testing.T) {
		resp, err := env.Post("/content/reload", nil)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode, resp.Error)

		var result struct {
			Files         int `json:"files"`
			Chunks        int `json:"chunks"`
			GlossaryTerms int `json:"glossary_terms"`
			JobsQueued    int `json:"jobs_queued"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &result))
		assert.Equal(t, 2, result.Files)
		assert.Equal(t, 4, result.Chunks)
		assert.Equal(t, 2, result.GlossaryTerms)
		assert.Zero(t, result.JobsQueued)
	})

	t.Run("stats report per-source counts", func(t *testing.T) {
		resp, err := env.Get("/content/stats")
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var stats struct {
			Sources []struct {
				Source string `json:"source"`
				Chunks int    `json:"chunks"`
			} `json:"sources"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &stats))

		bySource := map[string]int{}
		for _, s := range stats.Sources {
			bySource[s.Source] = s.Chunks
		}
		assert.Equal(t, 2, bySource["combat.md"])
		assert.Equal(t, 2, bySource["glossary.md"])
	})

	t.Run("search finds loaded rules", func(t *testing.T) {
		resp, err := env.Post("/search", map[string]string{"query": "dodging defense"})
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var result struct {
			Chunks []struct {
				Source  string  `json:"source"`
				Section string  `json:"section"`
				Text    string  `json:"text"`
				Score   float64 `json:"score"`
			} `json:"chunks"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &result))
		require.NotEmpty(t, result.Chunks)
		assert.Equal(t, "combat.md", result.Chunks[0].Source)
		assert.Contains(t, result.Chunks[0].Text, "dodge")
	})

	t.Run("empty query is rejected", func(t *testing.T) {
		resp, err := env.Post("/search", map[string]string{"query": "  "})
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestE2E_CharacterLifecycle(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	var id string

	t.Run("create", func(t *testing.T) {
		resp, err := env.Post("/characters", map[string]interface{}{
			"name":       "Kestrel",
			"concept":    "Void-touched scout",
			"attributes": map[string]int{"strength": 4, "agility": 5, "will": 5},
			"skills":     map[string]int{"stealth": 4, "blades": 3, "ritual": 2},
		})
		require.NoError(t, err)
		require.Equal(t, http.StatusCreated, resp.StatusCode, resp.Error)

		var character struct {
			ID         string         `json:"id"`
			Name       string         `json:"name"`
			VoidScore  int            `json:"void_score"`
			Attributes map[string]int `json:"attributes"`
			CreatedAt  string         `json:"created_at"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &character))
		require.NotEmpty(t, character.ID)
		assert.Equal(t, "Kestrel", character.Name)
		assert.Zero(t, character.VoidScore)
		assert.Equal(t, 5, character.Attributes["agility"])
		assert.NotEmpty(t, character.CreatedAt)
		id = character.ID
	})

	t.Run("duplicate name conflicts", func(t *testing.T) {
		resp, err := env.Post("/characters", map[string]interface{}{"name": "Kestrel"})
		require.NoError(t, err)
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("get and list", func(t *testing.T) {
		resp, err := env.Get("/characters/" + id)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		listResp, err := env.Get("/characters")
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, listResp.StatusCode)

		var list struct {
			Items []struct {
				Name string `json:"name"`
			} `json:"items"`
			HasMore bool `json:"has_more"`
		}
		require.NoError(t, json.Unmarshal(listResp.Data, &list))
		require.Len(t, list.Items, 1)
		assert.Equal(t, "Kestrel", list.Items[0].Name)
		assert.False(t, list.HasMore)
	})

	t.Run("patch merges stats", func(t *testing.T) {
		resp, err := env.Patch("/characters/"+id, map[string]interface{}{
			"attributes": map[string]int{"agility": 6},
			"void_score": 2,
		})
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode, resp.Error)

		var character struct {
			VoidScore  int            `json:"void_score"`
			Attributes map[string]int `json:"attributes"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &character))
		assert.Equal(t, 2, character.VoidScore)
		assert.Equal(t, 6, character.Attributes["agility"])
		assert.Equal(t, 4, character.Attributes["strength"], "untouched attributes survive the patch")
	})

	t.Run("validation errors are 400", func(t *testing.T) {
		resp, err := env.Patch("/characters/"+id, map[string]interface{}{"void_score": 99})
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("delete", func(t *testing.T) {
		resp, err := env.Delete("/characters/" + id)
		require.NoError(t, err)
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)

		getResp, err := env.Get("/characters/" + id)
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, getResp.StatusCode)
	})
}

func TestE2E_Rolls(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	createResp, err := env.Post("/characters", map[string]interface{}{
		"name":       "Kestrel",
		"attributes": map[string]int{"strength": 4, "agility": 5, "will": 5},
		"skills":     map[string]int{"stealth": 4, "blades": 3, "ritual": 2},
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, createResp.StatusCode, createResp.Error)

	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(createResp.Data, &created))

	t.Run("skill check with a fixed d20", func(t *testing.T) {
		resp, err := env.Post("/roll/check", map[string]interface{}{
			"character":  "Kestrel",
			"attribute":  "agility",
			"skill":      "stealth",
			"difficulty": 20,
		})
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode, resp.Error)

		var result struct {
			Total        int    `json:"total"`
			Success      bool   `json:"success"`
			Margin       int    `json:"margin"`
			Tier         string `json:"tier"`
			Formula      string `json:"formula"`
			DefaultsUsed bool   `json:"defaults_used"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &result))
		assert.Equal(t, 30, result.Total)
		assert.True(t, result.Success)
		assert.Equal(t, 10, result.Margin)
		assert.Equal(t, "Good success", result.Tier)
		assert.Equal(t, "5 × 4 + 10 = 30 vs 20", result.Formula)
		assert.False(t, result.DefaultsUsed)
	})

	t.Run("unknown character uses ruleset defaults", func(t *testing.T) {
		resp, err := env.Post("/roll/check", map[string]interface{}{
			"character":  "Nobody",
			"attribute":  "agility",
			"skill":      "stealth",
			"difficulty": 15,
		})
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var result struct {
			Total        int  `json:"total"`
			DefaultsUsed bool `json:"defaults_used"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &result))
		assert.Equal(t, 16, result.Total)
		assert.True(t, result.DefaultsUsed)
	})

	t.Run("failed ritual without offering gains void", func(t *testing.T) {
		resp, err := env.Post("/roll/ritual", map[string]interface{}{
			"character":  "Kestrel",
			"ritual":     "Sever the Thread",
			"difficulty": 25,
		})
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode, resp.Error)

		var result struct {
			Total      int  `json:"total"`
			Success    bool `json:"success"`
			VoidGained int  `json:"void_gained"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &result))
		assert.Equal(t, 20, result.Total)
		assert.False(t, result.Success)
		assert.Equal(t, 1, result.VoidGained)

		getResp, err := env.Get("/characters/" + created.ID)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, getResp.StatusCode)

		var character struct {
			VoidScore int `json:"void_score"`
		}
		require.NoError(t, json.Unmarshal(getResp.Data, &character))
		assert.Equal(t, 1, character.VoidScore, "void gain persists on the character")
	})

	t.Run("attack resolves damage", func(t *testing.T) {
		resp, err := env.Post("/roll/attack", map[string]interface{}{
			"attacker":      "Kestrel",
			"skill":         "blades",
			"defense":       18,
			"weapon_damage": 2,
			"soak":          1,
		})
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode, resp.Error)

		var result struct {
			Total   int  `json:"total"`
			Success bool `json:"hit"`
			Damage  int  `json:"damage"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &result))
		assert.Equal(t, 25, result.Total)
		assert.Equal(t, 5, result.Damage)
	})
}

func TestE2E_Chat(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	reloadResp, err := env.Post("/content/reload", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, reloadResp.StatusCode)

	createResp, err := env.Post("/characters", map[string]interface{}{
		"name":       "Kestrel",
		"attributes": map[string]int{"agility": 5},
		"skills":     map[string]int{"stealth": 4},
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, createResp.StatusCode)

	var kestrel struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(createResp.Data, &kestrel))

	var sessionID string

	t.Run("turn with a tool call", func(t *testing.T) {
		env.Model.Script(
			ToolCallReply("call-1", "roll_skill_check", map[string]interface{}{
				"character":  "Kestrel",
				"attribute":  "agility",
				"skill":      "stealth",
				"difficulty": 15,
			}),
			TextReply("Kestrel slips past the guards with a total of 30."),
		)

		resp, err := env.Post("/chat", map[string]interface{}{
			"character_id": kestrel.ID,
			"message":      "I sneak past the checkpoint guards.",
		})
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode, resp.Error)

		var out struct {
			SessionID string `json:"session_id"`
			Reply     string `json:"reply"`
			ToolTrace []struct {
				Name    string `json:"name"`
				Result  string `json:"result"`
				IsError bool   `json:"is_error"`
			} `json:"tool_trace"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &out))
		require.NotEmpty(t, out.SessionID)
		assert.Contains(t, out.Reply, "slips past")
		require.Len(t, out.ToolTrace, 1)
		assert.Equal(t, "roll_skill_check", out.ToolTrace[0].Name)
		assert.False(t, out.ToolTrace[0].IsError)
		assert.Contains(t, out.ToolTrace[0].Result, `"total":30`)
		sessionID = out.SessionID
	})

	t.Run("session continues across turns", func(t *testing.T) {
		env.Model.Script(TextReply("The guards remain oblivious."))

		resp, err := env.Post("/chat", map[string]interface{}{
			"session_id": sessionID,
			"message":    "Did anyone notice me?",
		})
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode, resp.Error)

		var out struct {
			SessionID string `json:"session_id"`
			Reply     string `json:"reply"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &out))
		assert.Equal(t, sessionID, out.SessionID)
		assert.Equal(t, "The guards remain oblivious.", out.Reply)
	})

	t.Run("unknown session is 404", func(t *testing.T) {
		resp, err := env.Post("/chat", map[string]interface{}{
			"session_id": "00000000-0000-0000-0000-000000000000",
			"message":    "hello?",
		})
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("empty message is 400", func(t *testing.T) {
		resp, err := env.Post("/chat", map[string]interface{}{"message": ""})
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}
