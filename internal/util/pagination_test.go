package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculate(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name               string
		page, size         int
		wantOffset, wantLn int
	}{
		{"defaults", 0, 0, 0, DefaultPageSize},
		{"third page", 3, 20, 40, 20},
		{"too large", 2, 500, DefaultPageSize, DefaultPageSize},
		{"negative page", -4, 5, 0, 5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			off, lim := Calculate(tc.page, tc.size)
			assert.Equal(t, tc.wantOffset, off)
			assert.Equal(t, tc.wantLn, lim)
		})
	}
}

func TestNewPagination(t *testing.T) {
	t.Parallel()
	assert.Equal(t, Pagination{Page: 3, Limit: 10, Total: 21, Pages: 3}, NewPagination(20, 10, 21))
	assert.Equal(t, Pagination{Page: 1, Limit: 10, Total: 0, Pages: 0}, NewPagination(0, 10, 0))
}

