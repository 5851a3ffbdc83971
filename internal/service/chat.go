package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"

	"github.com/aeonisk/arbiter/internal/domain"
	"github.com/aeonisk/arbiter/internal/rag"
)

const (
	// DefaultMaxToolRounds caps how many times one chat turn may loop
	// through tool calls before it is cut off.
	DefaultMaxToolRounds = 4

	recentMessageLimit = 10
)

// ChatModel is the chat completion surface of the LLM client.
type ChatModel interface {
	Chat(ctx context.Context, messages []openai.ChatCompletionMessage, tools []openai.Tool) (openai.ChatCompletionMessage, error)
}

// ContextRetriever selects the rulebook excerpts for one chat turn.
type ContextRetriever interface {
	Retrieve(ctx context.Context, query string, recentMessages []string) domain.RetrievalResult
}

// ToolExecutor dispatches model tool calls to the game mechanics.
type ToolExecutor interface {
	Definitions() []openai.Tool
	Execute(ctx context.Context, call openai.ToolCall) (string, error)
}

// ChatSessionStore persists sessions and their transcripts.
type ChatSessionStore interface {
	Create(ctx context.Context, s *domain.Session) error
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	Touch(ctx context.Context, id string) error
	AppendMessage(ctx context.Context, m *domain.Message) error
	RecentMessages(ctx context.Context, sessionID string, limit int) ([]domain.Message, error)
}

// CharacterResolver looks up the session's active character.
type CharacterResolver interface {
	GetByID(ctx context.Context, id string) (*domain.Character, error)
}

// ChatInput is one player message.
type ChatInput struct {
	SessionID   string `json:"session_id,omitempty"`
	CharacterID string `json:"character_id,omitempty"`
	Message     string `json:"message"`
}

// ChatOutput is the assistant's reply plus what happened along the way.
type ChatOutput struct {
	SessionID string                  `json:"session_id"`
	Reply     string                  `json:"reply"`
	ToolTrace []domain.ToolTraceEntry `json:"tool_trace,omitempty"`
	ChunkIDs  []string                `json:"chunk_ids,omitempty"`
	Reranked  bool                    `json:"reranked"`
}

// ChatService runs one chat turn end to end: retrieve rulebook context,
// assemble the prompt, loop through tool calls, and persist the
// transcript.
type ChatService struct {
	model         ChatModel
	retriever     ContextRetriever
	toolkit       ToolExecutor
	sessions      ChatSessionStore
	characters    CharacterResolver
	maxToolRounds int
}

func NewChatService(model ChatModel, retriever ContextRetriever, toolkit ToolExecutor, sessions ChatSessionStore, characters CharacterResolver, maxToolRounds int) *ChatService {
	if maxToolRounds <= 0 {
		maxToolRounds = DefaultMaxToolRounds
	}
	return &ChatService{
		model:         model,
		retriever:     retriever,
		toolkit:       toolkit,
		sessions:      sessions,
		characters:    characters,
		maxToolRounds: maxToolRounds,
	}
}

func (s *ChatService) Chat(ctx context.Context, input ChatInput) (*ChatOutput, error) {
	if s.model == nil {
		return nil, domain.ErrNoLLMConfigured
	}
	if input.Message == "" {
		return nil, domain.ErrEmptyQuery
	}

	session, err := s.resolveSession(ctx, input)
	if err != nil {
		return nil, err
	}

	history, err := s.sessions.RecentMessages(ctx, session.ID, recentMessageLimit)
	if err != nil {
		return nil, err
	}

	retrieval := s.retriever.Retrieve(ctx, input.Message, userMessages(history))

	var character *domain.Character
	if session.CharacterID != "" {
		character, err = s.characters.GetByID(ctx, session.CharacterID)
		if err != nil && !errors.Is(err, domain.ErrCharacterNotFound) {
			return nil, err
		}
	}

	messages := s.buildMessages(retrieval.Chunks, character, history, input.Message)

	if err := s.appendMessage(ctx, session.ID, domain.RoleUser, input.Message, "", ""); err != nil {
		return nil, err
	}

	reply, trace, err := s.runToolLoop(ctx, session.ID, messages)
	if err != nil {
		return nil, err
	}

	if err := s.appendMessage(ctx, session.ID, domain.RoleAssistant, reply, "", ""); err != nil {
		return nil, err
	}
	if err := s.sessions.Touch(ctx, session.ID); err != nil {
		log.Warn().Err(err).Str("session_id", session.ID).Msg("touching session")
	}

	return &ChatOutput{
		SessionID: session.ID,
		Reply:     reply,
		ToolTrace: trace,
		ChunkIDs:  chunkIDs(retrieval.Chunks),
		Reranked:  retrieval.Reranked,
	}, nil
}

func (s *ChatService) resolveSession(ctx context.Context, input ChatInput) (*domain.Session, error) {
	if input.SessionID != "" {
		return s.sessions.GetByID(ctx, input.SessionID)
	}

	now := time.Now().UTC()
	session := &domain.Session{
		ID:          uuid.NewString(),
		CharacterID: input.CharacterID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *ChatService) buildMessages(chunks []domain.ContentChunk, character *domain.Character, history []domain.Message, userMessage string) []openai.ChatCompletionMessage {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: rag.BuildPrompt(chunks, character)},
	}
	for _, m := range history {
		switch m.Role {
		case domain.RoleUser:
			messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: m.Content})
		case domain.RoleAssistant:
			messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: m.Content})
		}
	}
	return append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: userMessage})
}

// runToolLoop drives the model until it answers in plain text. A failed
// tool call, an unknown tool name and malformed arguments included, is
// reported back to the model as an error tool message so the turn still
// reaches a final answer.
func (s *ChatService) runToolLoop(ctx context.Context, sessionID string, messages []openai.ChatCompletionMessage) (string, []domain.ToolTraceEntry, error) {
	var trace []domain.ToolTraceEntry

	for round := 0; round < s.maxToolRounds; round++ {
		response, err := s.model.Chat(ctx, messages, s.toolkit.Definitions())
		if err != nil {
			return "", nil, err
		}

		if len(response.ToolCalls) == 0 {
			return response.Content, trace, nil
		}

		messages = append(messages, response)
		for _, call := range response.ToolCalls {
			started := time.Now()
			result, err := s.toolkit.Execute(ctx, call)
			entry := domain.ToolTraceEntry{
				Name:     call.Function.Name,
				Args:     call.Function.Arguments,
				Result:   result,
				Duration: time.Since(started).Milliseconds(),
			}

			if err != nil {
				entry.IsError = true
				entry.Result = err.Error()
				payload, _ := json.Marshal(map[string]string{"error": err.Error()})
				result = string(payload)
				log.Warn().Err(err).Str("tool", call.Function.Name).Msg("tool call failed")
			}
			trace = append(trace, entry)

			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    result,
				ToolCallID: call.ID,
			})
			if err := s.appendToolMessage(ctx, sessionID, call, result); err != nil {
				log.Warn().Err(err).Str("session_id", sessionID).Msg("persisting tool message")
			}
		}
	}

	return "", nil, domain.ErrToolIterationLimit
}

func (s *ChatService) appendMessage(ctx context.Context, sessionID string, role domain.MessageRole, content, toolCallID, toolName string) error {
	return s.sessions.AppendMessage(ctx, &domain.Message{
		ID:         uuid.NewString(),
		SessionID:  sessionID,
		Role:       role,
		Content:    content,
		ToolCallID: toolCallID,
		ToolName:   toolName,
		CreatedAt:  time.Now().UTC(),
	})
}

func (s *ChatService) appendToolMessage(ctx context.Context, sessionID string, call openai.ToolCall, result string) error {
	return s.appendMessage(ctx, sessionID, domain.RoleTool, result, call.ID, call.Function.Name)
}

func userMessages(history []domain.Message) []string {
	var texts []string
	for _, m := range history {
		if m.Role == domain.RoleUser {
			texts = append(texts, m.Content)
		}
	}
	return texts
}

func chunkIDs(chunks []domain.ContentChunk) []string {
	ids := make([]string, 0, len(chunks))
	for _, c := range chunks {
		ids = append(ids, c.ID)
	}
	return ids
}
