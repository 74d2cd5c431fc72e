package domain

import "time"

// File is an attachment uploaded to a note and stored in S3.
type File struct {
	FileID    string    `json:"id" dynamodbav:"file_id"`
	NoteID    string    `json:"note_id" dynamodbav:"note_id"`
	UserID    string    `json:"user_id" dynamodbav:"user_id"`
	Object    string    `json:"object" dynamodbav:"object"` // S3 key
	Size      int64     `json:"size" dynamodbav:"size"`
	Type      string    `json:"type" dynamodbav:"type"`
	Name      string    `json:"name" dynamodbav:"name"`
	Hash      string    `json:"hash" dynamodbav:"hash"`
	Enable    bool      `json:"enable" dynamodbav:"enable"`
	CreatedAt time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt time.Time `json:"updated" dynamodbav:"updated_at"`
}
