package transport

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CreateProductRequest struct {
	Name        string          `json:"name"        validate:"required,max=100"`
	Description string          `json:"description" validate:"required,max=2000"`
	Price       decimal.Decimal `json:"price"`
	Category    uuid.UUID       `json:"category"    validate:"required"`
	Stock       *int            `json:"stock"       validate:"required,min=0"`
	Images      []string        `json:"images"      validate:"omitempty,dive,max=500"`
	Features    []string        `json:"features"    validate:"omitempty,dive,max=200"`
}

type UpdateProductRequest struct {
	Name        *string          `json:"name"        validate:"omitempty,max=100"`
	Description *string          `json:"description" validate:"omitempty,max=2000"`
	Price       *decimal.Decimal `json:"price"`
	Category    *uuid.UUID       `json:"category"`
	Stock       *int             `json:"stock"       validate:"omitempty,min=0"`
	Images      []string         `json:"images"      validate:"omitempty,dive,max=500"`
	Features    []string         `json:"features"    validate:"omitempty,dive,max=200"`
}

type ProductQuery struct {
	Page     int    `query:"page"`
	Limit    int    `query:"limit"`
	Category string `query:"category"`
	Status   string `query:"status"`
	MinPrice string `query:"minPrice"`
	MaxPrice string `query:"maxPrice"`
	Search   string `query:"search"`
	Sort     string `query:"sort"`
}

type SearchQuery struct {
	Q     string `query:"q"     validate:"required,max=200"`
	Page  int    `query:"page"`
	Limit int    `query:"limit"`
}

type RatingRequest struct {
	Rating int    `json:"rating" validate:"required,min=1,max=5"`
	Review string `json:"review" validate:"max=500"`
}

type UpdateRatingRequest struct {
	Rating *int    `json:"rating" validate:"omitempty,min=1,max=5"`
	Review *string `json:"review" validate:"omitempty,max=500"`
}

type CreateCategoryRequest struct {
	Name           string     `json:"name"           validate:"required,max=50"`
	Description    string     `json:"description"    validate:"max=500"`
	Image          string     `json:"image"          validate:"max=500"`
	ParentCategory *uuid.UUID `json:"parentCategory"`
	Status         string     `json:"status"         validate:"omitempty,oneof=Active Inactive"`
	Featured       bool       `json:"featured"`
}

type UpdateCategoryRequest struct {
	Name           *string    `json:"name"           validate:"omitempty,max=50"`
	Description    *string    `json:"description"    validate:"omitempty,max=500"`
	Image          *string    `json:"image"          validate:"omitempty,max=500"`
	ParentCategory *uuid.UUID `json:"parentCategory"`
	Status         *string    `json:"status"         validate:"omitempty,oneof=Active Inactive"`
	Featured       *bool      `json:"featured"`
}

type CategoryQuery struct {
	Page     int    `query:"page"`
	Limit    int    `query:"limit"`
	Search   string `query:"search"`
	Status   string `query:"status"   validate:"omitempty,oneof=Active Inactive"`
	Featured string `query:"featured" validate:"omitempty,oneof=true false"`
	Parent   string `query:"parent"`
	Sort     string `query:"sort"`
}
