package utils

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSecureFilename(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"photo.jpg", "photo.jpg"},
		{"My cool photo.png", "My_cool_photo.png"},
		{"../../etc/passwd.png", "etc_passwd.png"},
		{`C:\Users\me\cat.gif`, "C_Users_me_cat.gif"},
		{"i contain cool ümläuts.txt", "i_contain_cool_umlauts.txt"},
		{"café.jpeg", "cafe.jpeg"},
		{"  .hidden  ", "hidden"},
		{"a$b%c&d.png", "abcd.png"},
		{"../..", ""},
		{"日本語", ""},
		{"", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, SecureFilename(tc.in), "input %q", tc.in)
	}
}

func TestSecureFilenameStaysFlat(t *testing.T) {
	for _, in := range []string{"../../etc/passwd.png", `..\..\boot.ini`, "/abs/path/x.jpg", "a/../../b.png"} {
		got := SecureFilename(in)
		assert.NotEmpty(t, got)
		assert.NotContains(t, got, "/")
		assert.NotContains(t, got, `\`)
		assert.Equal(t, got, filepath.Base(got))
		assert.False(t, strings.HasPrefix(got, "."), "got %q", got)
	}
}

func TestStripMarkup(t *testing.T) {
	assert.Equal(t, "boom", StripMarkup("<b>boom</b>"))
	assert.Equal(t, "plain text", StripMarkup("plain text"))
	assert.Equal(t, `duplicate key "item_pkey"`, StripMarkup(`duplicate key "item_pkey"<script>x</script>`))
}
