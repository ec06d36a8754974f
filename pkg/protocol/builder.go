package protocol

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TurnSettings carries everything the builder needs beyond the prompt itself
type TurnSettings struct {
	Model           string
	ChatMode        string
	ChatType        string
	ThinkingEnabled bool
	ThinkingBudget  int
}

// BuildNewChatRequest constructs the conversation-creation payload
func BuildNewChatRequest(model, chatMode, chatType string) NewChatRequest {
	return NewChatRequest{
		Title:     "New Chat",
		Models:    []string{model},
		ChatMode:  chatMode,
		ChatType:  chatType,
		Timestamp: time.Now().UnixMilli(),
		ProjectID: "",
	}
}

// BuildCompletionRequest constructs a chat-turn payload. Each call mints a
// fresh message fid and a child id reserved for server-side threading.
func BuildCompletionRequest(chatID string, parentID *string, content string, settings TurnSettings) CompletionRequest {
	fid := uuid.NewString()
	childID := uuid.NewString()
	now := time.Now().Unix()

	feature := FeatureConfig{
		ThinkingEnabled: settings.ThinkingEnabled,
		OutputSchema:    "phase",
		ResearchMode:    "normal",
	}
	if settings.ThinkingEnabled {
		budget := settings.ThinkingBudget
		feature.ThinkingBudget = &budget
	}

	return CompletionRequest{
		Stream:            true,
		Version:           "2.1",
		IncrementalOutput: true,
		ChatID:            chatID,
		ChatMode:          settings.ChatMode,
		Model:             settings.Model,
		ParentID:          parentID,
		Messages: []TurnMessage{
			{
				FID:           fid,
				ParentID:      parentID,
				ChildrenIDs:   []string{childID},
				Role:          "user",
				Content:       content,
				UserAction:    "chat",
				Files:         []any{},
				Timestamp:     now,
				Models:        []string{settings.Model},
				ChatType:      settings.ChatType,
				FeatureConfig: feature,
				Extra:         MessageExtra{Meta: MessageMeta{SubChatType: settings.ChatType}},
				SubChatType:   settings.ChatType,
				ParentIDAlt:   parentID,
			},
		},
		Timestamp: now,
	}
}

// CombinePrompt folds an optional system instruction into the single content
// field the transport accepts. The labeled-block order is fixed so behavior
// is reproducible across turns.
func CombinePrompt(prompt, systemInstruction string) string {
	if systemInstruction == "" {
		return prompt
	}
	return fmt.Sprintf("[System Instructions: %s]\n\nUser Request: %s", systemInstruction, prompt)
}
