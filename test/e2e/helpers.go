//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sashabaranov/go-openai"

	"github.com/aeonisk/arbiter/internal/api/handlers"
	"github.com/aeonisk/arbiter/internal/content"
	"github.com/aeonisk/arbiter/internal/game"
	"github.com/aeonisk/arbiter/internal/index"
	"github.com/aeonisk/arbiter/internal/rag"
	"github.com/aeonisk/arbiter/internal/repository"
	"github.com/aeonisk/arbiter/internal/server"
	"github.com/aeonisk/arbiter/internal/service"
	"github.com/aeonisk/arbiter/internal/testutil"
)

const e2eAuthToken = "e2e-test-token"

// E2ETestEnv holds all resources needed for end-to-end tests: a real
// PostgreSQL container, the full service wiring, and an HTTP server.
// The only fake is the chat model, which is scripted per test.
type E2ETestEnv struct {
	T          *testing.T
	Ctx        context.Context
	PostgresC  *testutil.PostgresContainer
	Pool       *pgxpool.Pool
	ServerURL  string
	AuthToken  string
	HTTPClient *http.Client
	Model      *ScriptedModel

	server *httptest.Server
}

// SetupE2EEnv starts a PostgreSQL container, wires the full stack against a
// fixture rulebook directory, and serves it over HTTP.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	contentDir := writeFixtureRulebooks(t)

	chunkRepo := repository.NewChunkRepository(pool)
	characterRepo := repository.NewCharacterRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)
	queryLogRepo := repository.NewQueryLogRepository(pool)
	txRunner := repository.NewTxRunner(pool)

	ix := index.New(0.1)
	contentSvc := service.NewContentService(content.NewDirSource(contentDir), txRunner, chunkRepo, ix, false)
	characterSvc := service.NewCharacterService(characterRepo)

	model := &ScriptedModel{}
	retriever := rag.NewRetriever(ix, rag.NewAnalyzer(nil), nil, rag.WithQueryLog(queryLogRepo))
	toolkit := game.NewToolkit(characterSvc, contentSvc, game.FixedRoller(10))
	chatSvc := service.NewChatService(model, retriever, toolkit, sessionRepo, characterSvc, 4)

	router := server.NewRouter(server.RouterConfig{
		AuthToken:        e2eAuthToken,
		ChatHandler:      handlers.NewChatHandler(chatSvc),
		SearchHandler:    handlers.NewSearchHandler(retriever),
		ContentHandler:   handlers.NewContentHandler(contentSvc),
		CharacterHandler: handlers.NewCharacterHandler(characterSvc),
		RollHandler:      handlers.NewRollHandler(characterSvc, game.FixedRoller(10)),
	})
	srv := httptest.NewServer(router)

	env := &E2ETestEnv{
		T:          t,
		Ctx:        ctx,
		PostgresC:  pgC,
		Pool:       pool,
		ServerURL:  srv.URL,
		AuthToken:  e2eAuthToken,
		HTTPClient: srv.Client(),
		Model:      model,
		server:     srv,
	}
	return env
}

// Cleanup shuts down the HTTP server. Container and pool teardown is
// registered on t.Cleanup by testutil.
func (env *E2ETestEnv) Cleanup() {
	env.server.Close()
}

// APIResponse is the decoded server envelope.
type APIResponse struct {
	StatusCode int
	Data       json.RawMessage
	Error      string
}

func (env *E2ETestEnv) do(method, path string, body interface{}, token string) (*APIResponse, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(env.Ctx, method, env.ServerURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := env.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	out := &APIResponse{StatusCode: resp.StatusCode}
	if len(raw) == 0 {
		return out, nil
	}

	var envelope struct {
		Data  json.RawMessage `json:"data"`
		Error string          `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("decoding %s %s response: %w", method, path, err)
	}
	out.Data = envelope.Data
	out.Error = envelope.Error
	return out, nil
}

// Get performs an authenticated GET against the test server.
func (env *E2ETestEnv) Get(path string) (*APIResponse, error) {
	return env.do(http.MethodGet, path, nil, env.AuthToken)
}

// Post performs an authenticated POST with a JSON body.
func (env *E2ETestEnv) Post(path string, body interface{}) (*APIResponse, error) {
	return env.do(http.MethodPost, path, body, env.AuthToken)
}

// Patch performs an authenticated PATCH with a JSON body.
func (env *E2ETestEnv) Patch(path string, body interface{}) (*APIResponse, error) {
	return env.do(http.MethodPatch, path, body, env.AuthToken)
}

// Delete performs an authenticated DELETE.
func (env *E2ETestEnv) Delete(path string) (*APIResponse, error) {
	return env.do(http.MethodDelete, path, nil, env.AuthToken)
}

// GetUnauthenticated performs a GET without a bearer token.
func (env *E2ETestEnv) GetUnauthenticated(path string) (*APIResponse, error) {
	return env.do(http.MethodGet, path, nil, "")
}

// PostUnauthenticated performs a POST without a bearer token.
func (env *E2ETestEnv) PostUnauthenticated(path string, body interface{}) (*APIResponse, error) {
	return env.do(http.MethodPost, path, body, "")
}

// ScriptedModel is a chat model that replays a fixed sequence of responses.
// When the script runs out it falls back to a plain text reply, so tests
// that do not care about the model still get a well-formed turn.
type ScriptedModel struct {
	mu        sync.Mutex
	responses []openai.ChatCompletionMessage
	calls     int
}

// Script queues the given responses, replacing any unconsumed ones.
func (m *ScriptedModel) Script(responses ...openai.ChatCompletionMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = responses
}

// Calls reports how many chat completions were requested.
func (m *ScriptedModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *ScriptedModel) Chat(ctx context.Context, messages []openai.ChatCompletionMessage, tools []openai.Tool) (openai.ChatCompletionMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if len(m.responses) == 0 {
		return openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleAssistant,
			Content: "The arbiter considers the rules.",
		}, nil
	}
	next := m.responses[0]
	m.responses = m.responses[1:]
	return next, nil
}

// TextReply builds a plain assistant message for scripting.
func TextReply(text string) openai.ChatCompletionMessage {
	return openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleAssistant,
		Content: text,
	}
}

// ToolCallReply builds an assistant message that invokes one tool.
func ToolCallReply(callID, name string, args interface{}) openai.ChatCompletionMessage {
	payload, err := json.Marshal(args)
	if err != nil {
		panic(err)
	}
	return openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleAssistant,
		ToolCalls: []openai.ToolCall{{
			ID:   callID,
			Type: openai.ToolTypeFunction,
			Function: openai.FunctionCall{
				Name:      name,
				Arguments: string(payload),
			},
		}},
	}
}

// writeFixtureRulebooks materializes a small rulebook set in a temp dir:
// one regular markdown file and one glossary.
func writeFixtureRulebooks(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	combat := `# Combat

Attacks are resolved as agility times weapon skill plus a d20 roll
against the defender's defense value.

## Dodging

A defender may dodge once per round. Dodging raises defense by the
character's agility until their next turn.
`
	glossary := `## Core Concepts

- **Void**: Corruption accumulated through rituals performed without an offering. Related: Ritual, Offering
- **Soulcredit**: Spiritual standing that rises and falls with a character's deeds.
`

	if err := os.WriteFile(filepath.Join(dir, "combat.md"), []byte(combat), 0o644); err != nil {
		t.Fatalf("writing combat fixture: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "glossary.md"), []byte(glossary), 0o644); err != nil {
		t.Fatalf("writing glossary fixture: %v", err)
	}
	return dir
}
