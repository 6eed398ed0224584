package entity

import "time"

// Category is a top-level learning area. Subcategories hang off it.
type Category struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description"`
	IsActive    bool      `db:"is_active" json:"is_active"`
	CreatedBy   *int64    `db:"created_by" json:"created_by"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

type SubCategory struct {
	ID          int64     `db:"id" json:"id"`
	CategoryID  int64     `db:"category_id" json:"category_id"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description"`
	IsActive    bool      `db:"is_active" json:"is_active"`
	CreatedBy   *int64    `db:"created_by" json:"created_by"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// WithSubCategories is a category together with its subcategories.
type WithSubCategories struct {
	Category
	SubCategories []SubCategory `json:"subcategories"`
}

type Stats struct {
	TotalCategories     int `db:"total_categories" json:"total_categories"`
	ActiveCategories    int `db:"active_categories" json:"active_categories"`
	TotalSubCategories  int `db:"total_subcategories" json:"total_subcategories"`
	ActiveSubCategories int `db:"active_subcategories" json:"active_subcategories"`
}

// Default is a seed category with its subcategory names.
type Default struct {
	Name          string
	Description   string
	SubCategories []string
}

var Defaults = []Default{
	{
		Name:          "Technology",
		Description:   "Programming, software development, and tech topics",
		SubCategories: []string{"Python Programming", "Web Development", "Data Science", "Machine Learning"},
	},
	{
		Name:          "Science",
		Description:   "Natural sciences, physics, chemistry, biology",
		SubCategories: []string{"Physics", "Chemistry", "Biology", "Mathematics"},
	},
	{
		Name:          "Language",
		Description:   "Language learning and linguistics",
		SubCategories: []string{"English", "Spanish", "French", "Hebrew"},
	},
}
