package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aeonisk/arbiter/internal/domain"
)

type scriptedModel struct {
	responses []openai.ChatCompletionMessage
	err       error
	calls     int
	lastMsgs  []openai.ChatCompletionMessage
}

func (m *scriptedModel) Chat(_ context.Context, messages []openai.ChatCompletionMessage, _ []openai.Tool) (openai.ChatCompletionMessage, error) {
	m.lastMsgs = messages
	if m.err != nil {
		return openai.ChatCompletionMessage{}, m.err
	}
	if m.calls >= len(m.responses) {
		return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: "done"}, nil
	}
	response := m.responses[m.calls]
	m.calls++
	return response, nil
}

type fixedRetriever struct {
	result domain.RetrievalResult
	query  string
	recent []string
}

func (r *fixedRetriever) Retrieve(_ context.Context, query string, recentMessages []string) domain.RetrievalResult {
	r.query = query
	r.recent = recentMessages
	return r.result
}

type scriptedToolkit struct {
	results map[string]string
	errs    map[string]error
	calls   []string
}

func (t *scriptedToolkit) Definitions() []openai.Tool {
	return nil
}

func (t *scriptedToolkit) Execute(_ context.Context, call openai.ToolCall) (string, error) {
	t.calls = append(t.calls, call.Function.Name)
	if err, ok := t.errs[call.Function.Name]; ok {
		return "", err
	}
	return t.results[call.Function.Name], nil
}

type memorySessionStore struct {
	sessions map[string]*domain.Session
	messages []*domain.Message
}

func newMemorySessionStore() *memorySessionStore {
	return &memorySessionStore{sessions: map[string]*domain.Session{}}
}

func (s *memorySessionStore) Create(_ context.Context, session *domain.Session) error {
	s.sessions[session.ID] = session
	return nil
}

func (s *memorySessionStore) GetByID(_ context.Context, id string) (*domain.Session, error) {
	session, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

func (s *memorySessionStore) Touch(_ context.Context, _ string) error { return nil }

func (s *memorySessionStore) AppendMessage(_ context.Context, m *domain.Message) error {
	s.messages = append(s.messages, m)
	return nil
}

func (s *memorySessionStore) RecentMessages(_ context.Context, sessionID string, _ int) ([]domain.Message, error) {
	var out []domain.Message
	for _, m := range s.messages {
		if m.SessionID == sessionID {
			out = append(out, *m)
		}
	}
	return out, nil
}

type fixedCharacterResolver struct {
	character *domain.Character
}

func (r *fixedCharacterResolver) GetByID(_ context.Context, _ string) (*domain.Character, error) {
	if r.character == nil {
		return nil, domain.ErrCharacterNotFound
	}
	return r.character, nil
}

func toolCallResponse(id, name, args string) openai.ChatCompletionMessage {
	return openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleAssistant,
		ToolCalls: []openai.ToolCall{
			{
				ID:   id,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      name,
					Arguments: args,
				},
			},
		},
	}
}

func newChatService(model ChatModel, toolkit ToolExecutor, store ChatSessionStore) *ChatService {
	return NewChatService(model, &fixedRetriever{}, toolkit, store, &fixedCharacterResolver{}, 0)
}

func TestChatService_PlainReply(t *testing.T) {
	model := &scriptedModel{responses: []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleAssistant, Content: "A ritual needs an offering."},
	}}
	store := newMemorySessionStore()
	svc := newChatService(model, &scriptedToolkit{}, store)

	out, err := svc.Chat(context.Background(), ChatInput{Message: "What do rituals need?"})
	require.NoError(t, err)
	assert.Equal(t, "A ritual needs an offering.", out.Reply)
	assert.NotEmpty(t, out.SessionID)
	assert.Empty(t, out.ToolTrace)

	// User message and assistant reply both persisted.
	require.Len(t, store.messages, 2)
	assert.Equal(t, domain.RoleUser, store.messages[0].Role)
	assert.Equal(t, domain.RoleAssistant, store.messages[1].Role)
}

func TestChatService_ToolRoundTrip(t *testing.T) {
	model := &scriptedModel{responses: []openai.ChatCompletionMessage{
		toolCallResponse("call_1", "roll_skill_check", `{"character":"Kestrel"}`),
		{Role: openai.ChatMessageRoleAssistant, Content: "Kestrel rolled 31, a good success."},
	}}
	toolkit := &scriptedToolkit{results: map[string]string{
		"roll_skill_check": `{"total":31}`,
	}}
	store := newMemorySessionStore()
	svc := newChatService(model, toolkit, store)

	out, err := svc.Chat(context.Background(), ChatInput{Message: "Roll brawl for Kestrel vs 20"})
	require.NoError(t, err)
	assert.Equal(t, "Kestrel rolled 31, a good success.", out.Reply)
	require.Len(t, out.ToolTrace, 1)
	assert.Equal(t, "roll_skill_check", out.ToolTrace[0].Name)
	assert.Equal(t, `{"total":31}`, out.ToolTrace[0].Result)
	assert.False(t, out.ToolTrace[0].IsError)

	// The tool result went back to the model as a tool-role message.
	var sawToolMsg bool
	for _, m := range model.lastMsgs {
		if m.Role == openai.ChatMessageRoleTool && m.ToolCallID == "call_1" {
			sawToolMsg = true
		}
	}
	assert.True(t, sawToolMsg)
}

func TestChatService_ToolIterationLimit(t *testing.T) {
	// The model keeps asking for tools forever.
	var responses []openai.ChatCompletionMessage
	for i := 0; i < 10; i++ {
		responses = append(responses, toolCallResponse("call_x", "search_rules", `{"query":"void"}`))
	}
	model := &scriptedModel{responses: responses}
	toolkit := &scriptedToolkit{results: map[string]string{"search_rules": `{}`}}
	svc := newChatService(model, toolkit, newMemorySessionStore())

	_, err := svc.Chat(context.Background(), ChatInput{Message: "loop forever"})
	assert.ErrorIs(t, err, domain.ErrToolIterationLimit)
	assert.Equal(t, DefaultMaxToolRounds, model.calls)
}

func TestChatService_UnknownToolFedBack(t *testing.T) {
	model := &scriptedModel{responses: []openai.ChatCompletionMessage{
		toolCallResponse("call_1", "summon_dragon", `{}`),
		{Role: openai.ChatMessageRoleAssistant, Content: "There is no such rite; describe what you want to achieve."},
	}}
	toolkit := &scriptedToolkit{errs: map[string]error{
		"summon_dragon": domain.ErrUnknownTool,
	}}
	svc := newChatService(model, toolkit, newMemorySessionStore())

	out, err := svc.Chat(context.Background(), ChatInput{Message: "do the impossible"})
	require.NoError(t, err, "a hallucinated tool name must not kill the turn")
	assert.Equal(t, "There is no such rite; describe what you want to achieve.", out.Reply)
	require.Len(t, out.ToolTrace, 1)
	assert.True(t, out.ToolTrace[0].IsError)

	// The model saw a tool-role error message for its bad call.
	var toolMsg *openai.ChatCompletionMessage
	for i, m := range model.lastMsgs {
		if m.Role == openai.ChatMessageRoleTool && m.ToolCallID == "call_1" {
			toolMsg = &model.lastMsgs[i]
		}
	}
	require.NotNil(t, toolMsg)
	assert.Contains(t, toolMsg.Content, "unknown tool")
}

func TestChatService_MalformedToolArgsFedBack(t *testing.T) {
	model := &scriptedModel{responses: []openai.ChatCompletionMessage{
		toolCallResponse("call_1", "roll_skill_check", `{not json`),
		{Role: openai.ChatMessageRoleAssistant, Content: "Let me try that roll again."},
	}}
	toolkit := &scriptedToolkit{errs: map[string]error{
		"roll_skill_check": domain.NewDomainError(domain.ErrCodeParse, "malformed tool arguments"),
	}}
	svc := newChatService(model, toolkit, newMemorySessionStore())

	out, err := svc.Chat(context.Background(), ChatInput{Message: "roll stealth"})
	require.NoError(t, err)
	assert.Equal(t, "Let me try that roll again.", out.Reply)
	require.Len(t, out.ToolTrace, 1)
	assert.True(t, out.ToolTrace[0].IsError)
}

func TestChatService_RuntimeToolErrorFedBack(t *testing.T) {
	model := &scriptedModel{responses: []openai.ChatCompletionMessage{
		toolCallResponse("call_1", "modify_character", `{"character":"Nobody"}`),
		{Role: openai.ChatMessageRoleAssistant, Content: "That character is not registered."},
	}}
	toolkit := &scriptedToolkit{errs: map[string]error{
		"modify_character": domain.ErrCharacterNotFound,
	}}
	svc := newChatService(model, toolkit, newMemorySessionStore())

	out, err := svc.Chat(context.Background(), ChatInput{Message: "give Nobody a soulcredit"})
	require.NoError(t, err)
	assert.Equal(t, "That character is not registered.", out.Reply)
	require.Len(t, out.ToolTrace, 1)
	assert.True(t, out.ToolTrace[0].IsError)

	// The error payload reached the model.
	var toolContent string
	for _, m := range model.lastMsgs {
		if m.Role == openai.ChatMessageRoleTool {
			toolContent = m.Content
		}
	}
	assert.True(t, strings.Contains(toolContent, "error"))
}

func TestChatService_ExistingSessionHistoryInPrompt(t *testing.T) {
	model := &scriptedModel{responses: []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleAssistant, Content: "first"},
		{Role: openai.ChatMessageRoleAssistant, Content: "second"},
	}}
	store := newMemorySessionStore()
	svc := newChatService(model, &scriptedToolkit{}, store)

	out1, err := svc.Chat(context.Background(), ChatInput{Message: "hello"})
	require.NoError(t, err)

	out2, err := svc.Chat(context.Background(), ChatInput{SessionID: out1.SessionID, Message: "and again"})
	require.NoError(t, err)
	assert.Equal(t, out1.SessionID, out2.SessionID)

	// Second turn's prompt carries the first turn's exchange.
	var sawPrior bool
	for _, m := range model.lastMsgs {
		if m.Role == openai.ChatMessageRoleUser && m.Content == "hello" {
			sawPrior = true
		}
	}
	assert.True(t, sawPrior)
}

func TestChatService_UnknownSession(t *testing.T) {
	svc := newChatService(&scriptedModel{}, &scriptedToolkit{}, newMemorySessionStore())

	_, err := svc.Chat(context.Background(), ChatInput{SessionID: "missing", Message: "hi"})
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestChatService_NoModelConfigured(t *testing.T) {
	svc := NewChatService(nil, &fixedRetriever{}, &scriptedToolkit{}, newMemorySessionStore(), &fixedCharacterResolver{}, 0)

	_, err := svc.Chat(context.Background(), ChatInput{Message: "hi"})
	assert.ErrorIs(t, err, domain.ErrNoLLMConfigured)
}

func TestChatService_ModelError(t *testing.T) {
	model := &scriptedModel{err: errors.New("upstream unavailable")}
	svc := newChatService(model, &scriptedToolkit{}, newMemorySessionStore())

	_, err := svc.Chat(context.Background(), ChatInput{Message: "hi"})
	assert.Error(t, err)
}

func TestChatService_EmptyMessage(t *testing.T) {
	svc := newChatService(&scriptedModel{}, &scriptedToolkit{}, newMemorySessionStore())

	_, err := svc.Chat(context.Background(), ChatInput{Message: ""})
	assert.ErrorIs(t, err, domain.ErrEmptyQuery)
}
