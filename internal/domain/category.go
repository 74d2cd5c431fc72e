package domain

import "time"

type Category struct {
	CategoryID string    `json:"id" dynamodbav:"category_id"`
	UserID     string    `json:"user_id" dynamodbav:"user_id"`
	Name       string    `json:"name" dynamodbav:"name"`
	Color      string    `json:"color" dynamodbav:"color"`
	CreatedAt  time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt  time.Time `json:"updated" dynamodbav:"updated_at"`
}

type CategoryInput struct {
	Name  string `json:"name" validate:"required,max=64"`
	Color string `json:"color" validate:"omitempty,hexcolor"`
}
