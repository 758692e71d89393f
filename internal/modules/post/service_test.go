package post

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeSlug(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"hello-world", "hello-world"},
		{"Hello World", "hello-world"},
		{"  My First Post!  ", "my-first-post"},
		{"a--b---c", "a-b-c"},
		{"Édition spéciale", "dition-sp-ciale"},
		{"---", ""},
		{"", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizeSlug(tc.in), "input %q", tc.in)
	}
}
