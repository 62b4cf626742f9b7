package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToSnakeCase(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"book", "book"},
		{"BookCategory", "book_category"},
		{"HTTPRequest", "http_request"},
		{"job-run", "job_run"},
		{`Demo\Plugin`, "demo_plugin"},
		{"  spaced  name ", "spaced_name"},
		{"__book__", "book"},
		{"post2Type", "post2_type"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ToSnakeCase(tt.input))
		})
	}
}

func TestToPascalCase(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"book", "Book"},
		{"job-run", "JobRun"},
		{"book_category", "BookCategory"},
		{"alreadyCamel", "AlreadyCamel"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ToPascalCase(tt.input))
		})
	}
}
