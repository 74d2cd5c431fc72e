package domain

import "time"

type Note struct {
	NoteID     string     `json:"id" dynamodbav:"note_id"`
	UserID     string     `json:"user_id" dynamodbav:"user_id"`
	CategoryID *string    `json:"category_id,omitempty" dynamodbav:"category_id"`
	Title      string     `json:"title" dynamodbav:"title"`
	Content    string     `json:"content" dynamodbav:"content"`
	Pinned     bool       `json:"pinned" dynamodbav:"pinned"`
	Archived   bool       `json:"archived" dynamodbav:"archived"`
	// SearchText is the lowercased title+content, maintained on every write so
	// the repository's contains() filter can match case-insensitively.
	SearchText string     `json:"-" dynamodbav:"search_text"`
	Enable     bool       `json:"enable" dynamodbav:"enable"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty" dynamodbav:"deleted_at"`
	CreatedAt  time.Time  `json:"created" dynamodbav:"created_at"`
	UpdatedAt  time.Time  `json:"updated" dynamodbav:"updated_at"`
}

type CreateNoteRequest struct {
	Title      string  `json:"title" validate:"required,max=200"`
	Content    string  `json:"content"`
	CategoryID *string `json:"category_id"`
	Pinned     bool    `json:"pinned"`
}

type UpdateNoteRequest struct {
	Title      *string `json:"title" validate:"omitempty,max=200"`
	Content    *string `json:"content"`
	CategoryID *string `json:"category_id"`
	Pinned     *bool   `json:"pinned"`
	Archived   *bool   `json:"archived"`
}

// NoteFilter narrows note listings. Zero values mean "no constraint";
// Query does a case-insensitive substring match on title and content.
type NoteFilter struct {
	CategoryID *string
	Archived   *bool
	Pinned     *bool
	Query      string
}
