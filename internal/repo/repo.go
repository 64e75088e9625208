package repo

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

var (
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrHasDependents     = errors.New("has dependents")
	ErrAlreadyRefunded   = errors.New("order already refunded")
)

type GormRepo struct {
	DB *gorm.DB
}

func New(db *gorm.DB) *GormRepo {
	return &GormRepo{DB: db}
}

// Page is a limit/offset window over a list query.
type Page struct {
	Offset int
	Limit  int
}

// orderBy turns "field:desc", "-field" or "field" into an ORDER BY clause
// restricted to the allowed mapping of API field to column.
func orderBy(sort string, allowed map[string]string, def string) string {
	sort = strings.TrimSpace(sort)
	if sort == "" {
		return def
	}
	dir := "ASC"
	field := sort
	switch {
	case strings.HasPrefix(sort, "-"):
		field, dir = sort[1:], "DESC"
	case strings.Contains(sort, ":"):
		parts := strings.SplitN(sort, ":", 2)
		field = parts[0]
		if strings.EqualFold(parts[1], "desc") {
			dir = "DESC"
		}
	}
	col, ok := allowed[field]
	if !ok {
		return def
	}
	return col + " " + dir
}

// likeEscape avoids backslash, which MySQL and Postgres quote differently.
const likeEscape = "!"

func likePattern(q string) string {
	q = strings.ToLower(strings.TrimSpace(q))
	q = strings.NewReplacer(likeEscape, likeEscape+likeEscape, "%", likeEscape+"%", "_", likeEscape+"_").Replace(q)
	return "%" + q + "%"
}

// ilike matches LOWER(column) against a likePattern, any of columns.
func ilike(columns ...string) string {
	parts := make([]string, len(columns))
	for i, col := range columns {
		parts[i] = "LOWER(" + col + ") LIKE ? ESCAPE '" + likeEscape + "'"
	}
	return strings.Join(parts, " OR ")
}
