package openlibrary

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeWorkID(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"full key", "/works/OL45883W", "OL45883W"},
		{"bare id", "OL45883W", "OL45883W"},
		{"leading slash only", "/OL45883W", "OL45883W"},
		{"whitespace", "  /works/OL45883W ", "OL45883W"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeWorkID(tt.in))
		})
	}
}

func TestNormalizeWorkIDIdempotent(t *testing.T) {
	once := NormalizeWorkID("/works/OL45883W")
	assert.Equal(t, once, NormalizeWorkID(once))
}
