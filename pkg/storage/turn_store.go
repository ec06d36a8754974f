package storage

import (
	"database/sql"
	"time"

	qwerrors "github.com/qwenweb/qwenweb/pkg/errors"
)

// Turn is one completed prompt/answer exchange within a conversation
type Turn struct {
	ID                int64     `json:"id"`
	ConversationID    string    `json:"conversationId"`
	ParentID          string    `json:"parentId,omitempty"`
	Prompt            string    `json:"prompt"`
	SystemInstruction string    `json:"systemInstruction,omitempty"`
	Answer            string    `json:"answer"`
	Reasoning         string    `json:"reasoning,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
}

// RecordConversation registers a newly created conversation. Idempotent so a
// client restart reusing an id does not fail.
func (s *Store) RecordConversation(conversationID, sessionID, model string) error {
	_, err := s.db.Exec(`
		INSERT INTO conversations (id, session_id, model, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, conversationID, sessionID, model, time.Now())
	if err != nil {
		return qwerrors.Wrap(err, qwerrors.ErrCodeStorageWrite, "recording conversation").
			WithContext("conversation_id", conversationID)
	}
	return nil
}

// SaveTurn persists a completed turn and bumps the conversation's turn count
func (s *Store) SaveTurn(turn *Turn) error {
	tx, err := s.db.Begin()
	if err != nil {
		return qwerrors.Wrap(err, qwerrors.ErrCodeStorageWrite, "beginning transaction")
	}

	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now()
	}

	result, err := tx.Exec(`
		INSERT INTO turns (conversation_id, parent_id, prompt, system_instruction, answer, reasoning, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		turn.ConversationID,
		nullIfEmpty(turn.ParentID),
		turn.Prompt,
		nullIfEmpty(turn.SystemInstruction),
		turn.Answer,
		nullIfEmpty(turn.Reasoning),
		turn.CreatedAt,
	)
	if err != nil {
		_ = tx.Rollback()
		return qwerrors.Wrap(err, qwerrors.ErrCodeStorageWrite, "inserting turn")
	}

	id, err := result.LastInsertId()
	if err != nil {
		_ = tx.Rollback()
		return qwerrors.Wrap(err, qwerrors.ErrCodeStorageWrite, "reading turn id")
	}
	turn.ID = id

	if _, err := tx.Exec(`
		UPDATE conversations SET turn_count = turn_count + 1 WHERE id = ?
	`, turn.ConversationID); err != nil {
		_ = tx.Rollback()
		return qwerrors.Wrap(err, qwerrors.ErrCodeStorageWrite, "updating turn count")
	}

	if err := tx.Commit(); err != nil {
		_ = tx.Rollback()
		return qwerrors.Wrap(err, qwerrors.ErrCodeStorageWrite, "committing turn")
	}
	return nil
}

// ListTurns returns a conversation's turns in arrival order
func (s *Store) ListTurns(conversationID string) ([]Turn, error) {
	rows, err := s.db.Query(`
		SELECT id, conversation_id, parent_id, prompt, system_instruction, answer, reasoning, created_at
		FROM turns
		WHERE conversation_id = ?
		ORDER BY id ASC
	`, conversationID)
	if err != nil {
		return nil, qwerrors.Wrap(err, qwerrors.ErrCodeStorageRead, "querying turns")
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var t Turn
		var parentID, systemInstruction, reasoning sql.NullString
		if err := rows.Scan(&t.ID, &t.ConversationID, &parentID, &t.Prompt, &systemInstruction, &t.Answer, &reasoning, &t.CreatedAt); err != nil {
			return nil, qwerrors.Wrap(err, qwerrors.ErrCodeStorageRead, "scanning turn")
		}
		t.ParentID = parentID.String
		t.SystemInstruction = systemInstruction.String
		t.Reasoning = reasoning.String
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, qwerrors.Wrap(err, qwerrors.ErrCodeStorageRead, "iterating turns")
	}
	return turns, nil
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
