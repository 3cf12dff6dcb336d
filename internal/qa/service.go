// Package qa answers natural-language questions about a repository: cached
// answers first, then assembled context fed to the chat model.
package qa

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"

	"repolens/internal/assembler"
	"repolens/internal/cache"
	"repolens/internal/llm"
)

const systemPrompt = `You are a code intelligence assistant. You answer questions about a codebase using the source context provided below.

Focus on answering how, why, and where questions about the code. Explain architecture, data flow, and relationships between components. Reference specific file paths when relevant.

Do not generate new code unless explicitly asked. Keep answers concise and grounded in the provided context. If the context doesn't contain enough information to answer, say so.`

// Service answers questions over one repository.
type Service struct {
	assembler *assembler.Assembler
	client    llm.Client
	chatModel string
	cache     *cache.Manager
	log       *slog.Logger
}

// New creates a Service. cache may be nil to disable answer caching.
func New(asm *assembler.Assembler, client llm.Client, chatModel string, answerCache *cache.Manager, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		assembler: asm,
		client:    client,
		chatModel: chatModel,
		cache:     answerCache,
		log:       log.With("component", "qa"),
	}
}

// Answer responds to a single question, consulting the answer cache first.
func (s *Service) Answer(ctx context.Context, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", fmt.Errorf("empty question")
	}

	key := questionKey(question)
	if s.cache != nil {
		if cached, ok := s.cache.Get(key); ok {
			s.log.Debug("answer cache hit", "key", key)
			return string(cached), nil
		}
	}

	answer, err := s.AnswerWithHistory(ctx, question, nil)
	if err != nil {
		return "", err
	}

	if s.cache != nil {
		s.cache.Set(key, []byte(answer), 0)
	}
	return answer, nil
}

// AnswerWithHistory responds to a question carrying prior conversation turns.
// Answers with history are never cached; they depend on the conversation.
func (s *Service) AnswerWithHistory(ctx context.Context, question string, history []llm.Message) (string, error) {
	contextBlob := s.assembler.Build(ctx, question)

	messages := buildMessages(contextBlob, history, question)
	answer, err := s.client.Chat(ctx, s.chatModel, messages)
	if err != nil {
		return "", fmt.Errorf("chat: %w", err)
	}
	return answer, nil
}

// buildMessages constructs the conversation: system prompt, assembled
// context, prior turns, then the question.
func buildMessages(contextBlob string, history []llm.Message, question string) []llm.Message {
	msgs := []llm.Message{{Role: "system", Content: systemPrompt}}

	if contextBlob != "" {
		msgs = append(msgs, llm.Message{
			Role:    "user",
			Content: "Here is the relevant source context:\n\n" + contextBlob,
		})
		msgs = append(msgs, llm.Message{
			Role:    "assistant",
			Content: "I've reviewed the context. What would you like to know?",
		})
	}

	msgs = append(msgs, history...)
	msgs = append(msgs, llm.Message{Role: "user", Content: question})
	return msgs
}

func questionKey(question string) string {
	sum := sha256.Sum256([]byte(question))
	return "answer:" + hex.EncodeToString(sum[:8])
}
