package protocol

// Wire types for the Qwen web chat API. Field names and shapes follow the
// service's unofficial protocol exactly; breaking them breaks the client.

// NewChatRequest is the body for POST /api/v2/chats/new
type NewChatRequest struct {
	Title     string   `json:"title"`
	Models    []string `json:"models"`
	ChatMode  string   `json:"chat_mode"`
	ChatType  string   `json:"chat_type"`
	Timestamp int64    `json:"timestamp"`
	ProjectID string   `json:"project_id"`
}

// NewChatResponse is the creation result envelope
type NewChatResponse struct {
	Success bool        `json:"success"`
	Data    NewChatData `json:"data"`
}

// NewChatData carries the server-issued conversation id
type NewChatData struct {
	ID string `json:"id"`
}

// CompletionRequest is the body for POST /api/v2/chat/completions
type CompletionRequest struct {
	Stream            bool          `json:"stream"`
	Version           string        `json:"version"`
	IncrementalOutput bool          `json:"incremental_output"`
	ChatID            string        `json:"chat_id"`
	ChatMode          string        `json:"chat_mode"`
	Model             string        `json:"model"`
	ParentID          *string       `json:"parent_id"`
	Messages          []TurnMessage `json:"messages"`
	Timestamp         int64         `json:"timestamp"`
}

// TurnMessage is the single user turn inside a completion request
type TurnMessage struct {
	FID           string        `json:"fid"`
	ParentID      *string       `json:"parentId"`
	ChildrenIDs   []string      `json:"childrenIds"`
	Role          string        `json:"role"`
	Content       string        `json:"content"`
	UserAction    string        `json:"user_action"`
	Files         []any         `json:"files"`
	Timestamp     int64         `json:"timestamp"`
	Models        []string      `json:"models"`
	ChatType      string        `json:"chat_type"`
	FeatureConfig FeatureConfig `json:"feature_config"`
	Extra         MessageExtra  `json:"extra"`
	SubChatType   string        `json:"sub_chat_type"`
	ParentIDAlt   *string       `json:"parent_id"`
}

// FeatureConfig toggles reasoning for a turn. ThinkingBudget is only sent
// when thinking is enabled; a zero budget must not appear on the wire.
type FeatureConfig struct {
	ThinkingEnabled bool   `json:"thinking_enabled"`
	OutputSchema    string `json:"output_schema"`
	ResearchMode    string `json:"research_mode"`
	ThinkingBudget  *int   `json:"thinking_budget,omitempty"`
}

// MessageExtra mirrors the service's nested metadata blob
type MessageExtra struct {
	Meta MessageMeta `json:"meta"`
}

// MessageMeta holds the sub-chat discriminator
type MessageMeta struct {
	SubChatType string `json:"subChatType"`
}

// StreamPayload is one decoded "data:" line from the event stream. Exactly
// one of the branches is populated: response.created acknowledges the turn
// and carries the next parent pointer; choices carry content deltas.
type StreamPayload struct {
	ResponseCreated *ResponseCreated `json:"response.created,omitempty"`
	Choices         []StreamChoice   `json:"choices,omitempty"`
}

// ResponseCreated carries the server-issued id threading the next turn
type ResponseCreated struct {
	ResponseID string `json:"response_id"`
}

// StreamChoice wraps a content delta
type StreamChoice struct {
	Delta MessageDelta `json:"delta"`
}

// MessageDelta is an incremental piece of model output. Phase distinguishes
// internal reasoning ("think") from the user-facing answer; absent phase
// means answer. Status "finished" marks the final answer delta.
type MessageDelta struct {
	Content string `json:"content"`
	Phase   string `json:"phase"`
	Status  string `json:"status"`
}

// Phase values observed on the wire
const (
	PhaseThink  = "think"
	PhaseAnswer = "answer"

	StatusFinished = "finished"
)
