package models

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ProductStatus string

const (
	InStock    ProductStatus = "In Stock"
	OutOfStock ProductStatus = "Out of Stock"
)

func StatusForStock(stock int) ProductStatus {
	if stock > 0 {
		return InStock
	}
	return OutOfStock
}

type Product struct {
	ID            uuid.UUID       `gorm:"primaryKey"                 json:"id"`
	Name          string          `gorm:"size:100;not null;index"    json:"name"`
	Description   string          `gorm:"size:2000;not null"         json:"description"`
	Price         decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	CategoryID    uuid.UUID       `gorm:"index;not null"             json:"category"`
	Stock         int             `gorm:"not null;check:stock >= 0"  json:"stock"`
	Images        Strings         `json:"images"`
	Features      Strings         `json:"features"`
	Status        ProductStatus   `gorm:"size:20;not null;index"     json:"status"`
	Ratings       []Rating        `gorm:"constraint:OnDelete:CASCADE;" json:"ratings,omitempty"`
	AverageRating float64         `gorm:"not null;default:0"         json:"averageRating"`
	TotalReviews  int             `gorm:"not null;default:0"         json:"totalReviews"`
	CreatedAt     time.Time       `gorm:"index"                      json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

func (p *Product) BeforeSave(*gorm.DB) error {
	p.Status = StatusForStock(p.Stock)
	return nil
}

// RecalculateRatings refreshes the aggregates from the loaded ratings.
func (p *Product) RecalculateRatings() {
	p.TotalReviews = len(p.Ratings)
	if p.TotalReviews == 0 {
		p.AverageRating = 0
		return
	}
	sum := 0
	for _, r := range p.Ratings {
		sum += r.Rating
	}
	avg := float64(sum) / float64(p.TotalReviews)
	p.AverageRating = float64(int(avg*10+0.5)) / 10
}

type Rating struct {
	ID        uuid.UUID `gorm:"primaryKey"                                   json:"id"`
	ProductID uuid.UUID `gorm:"not null;uniqueIndex:idx_rating_product_user" json:"product"`
	UserID    uuid.UUID `gorm:"not null;uniqueIndex:idx_rating_product_user" json:"user"`
	Rating    int       `gorm:"not null;check:rating BETWEEN 1 AND 5"        json:"rating"`
	Review    string    `gorm:"size:500"                                     json:"review,omitempty"`
	Date      time.Time `gorm:"not null"                                     json:"date"`
}

func (Rating) TableName() string { return "product_ratings" }

func (r *Rating) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.Date.IsZero() {
		r.Date = time.Now().UTC()
	}
	return nil
}

type CategoryStatus string

const (
	CategoryActive   CategoryStatus = "Active"
	CategoryInactive CategoryStatus = "Inactive"
)

type Category struct {
	ID           uuid.UUID      `gorm:"primaryKey"                          json:"id"`
	Name         string         `gorm:"size:50;uniqueIndex;not null"        json:"name"`
	Description  string         `gorm:"size:500"                            json:"description"`
	Image        string         `json:"image,omitempty"`
	Slug         string         `gorm:"size:80;uniqueIndex;not null"        json:"slug"`
	ParentID     *uuid.UUID     `gorm:"index"                               json:"parentCategory,omitempty"`
	Status       CategoryStatus `gorm:"size:20;not null;default:Active"     json:"status"`
	Featured     bool           `gorm:"not null;default:false"              json:"featured"`
	ProductCount int            `gorm:"not null;default:0"                  json:"productCount"`
	Children     []*Category    `gorm:"-"                                   json:"children,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

func (c *Category) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

func (c *Category) BeforeSave(*gorm.DB) error {
	c.Slug = Slugify(c.Name)
	if c.Status == "" {
		c.Status = CategoryActive
	}
	return nil
}

var slugSeparators = regexp.MustCompile(`[^a-z0-9]+`)

func Slugify(name string) string {
	s := slugSeparators.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(s, "-")
}
