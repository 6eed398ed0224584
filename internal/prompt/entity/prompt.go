package entity

import "time"

// Prompt is one lesson request and the generated answer. Rows are written
// once and never updated.
type Prompt struct {
	ID             int64     `db:"id" json:"id,string"`
	UserID         int64     `db:"user_id" json:"user_id"`
	CategoryID     *int64    `db:"category_id" json:"category_id"`
	SubCategoryID  *int64    `db:"sub_category_id" json:"sub_category_id"`
	Prompt         string    `db:"prompt" json:"prompt"`
	Response       *string   `db:"response" json:"response"`
	AIModel        *string   `db:"ai_model" json:"ai_model"`
	ResponseTimeMs *int64    `db:"response_time_ms" json:"response_time_ms"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// Detail joins a prompt with its owner and category names.
type Detail struct {
	Prompt
	UserName        *string `db:"user_name" json:"user_name"`
	UserEmail       *string `db:"user_email" json:"user_email"`
	CategoryName    *string `db:"category_name" json:"category_name"`
	SubCategoryName *string `db:"sub_category_name" json:"sub_category_name"`
}

type UserStats struct {
	TotalPrompts          int        `db:"total_prompts" json:"total_prompts"`
	AverageResponseTimeMs *float64   `db:"average_response_time_ms" json:"average_response_time_ms"`
	LastPromptAt          *time.Time `db:"last_prompt_at" json:"last_prompt_at"`
}

// Page is a slice of prompts plus paging totals.
type Page struct {
	Prompts    []Detail `json:"prompts"`
	Total      int      `json:"total"`
	Page       int      `json:"page"`
	Size       int      `json:"size"`
	TotalPages int      `json:"total_pages"`
}
