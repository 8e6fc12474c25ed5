package binding

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, time.March, 5, 14, 7, 9, 0, time.UTC)

func env(vals map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := vals[k]
		return v, ok
	}
}

func TestExpand(t *testing.T) {
	ctx := Context{Counter: 7, Now: fixedNow, Env: env(map[string]string{"SITE": "Lab 2"})}
	cases := []struct {
		in, want string
	}{
		{"plain text", "plain text"},
		{"", ""},
		{"No. {{counter}}", "No. 7"},
		{"{{ counter }}", "7"},
		{"{{datetime}}", "2024-03-05 14:07:09"},
		{"{{datetime:%d.%m.%Y}}", "05.03.2024"},
		{"at {{datetime:%H:%M}} on {{datetime:%a}}", "at 14:07 on Tue"},
		{"{{env:SITE}}/{{counter}}", "Lab 2/7"},
		{"{{env:MISSING}}!", "!"},
		{"{{unknown}}", "{{unknown}}"},
		{"{{counter", "{{counter"},
		{"a {{counter}} b {{counter", "a 7 b {{counter"},
		{"{single} braces }", "{single} braces }"},
		{"{{counter:5}}", "{{counter:5}}"},
		{"line1\n{{counter}}", "line1\n7"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Expand(tc.in, ctx), tc.in)
	}
}

func TestExpandUUID(t *testing.T) {
	re := regexp.MustCompile(`^id-[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)
	a := Expand("id-{{uuid}}", Context{})
	b := Expand("id-{{uuid}}", Context{})
	assert.Regexp(t, re, a)
	assert.NotEqual(t, a, b)
}

func TestStrftime(t *testing.T) {
	tests := []struct {
		format, want string
	}{
		{"%FT%T", "2024-03-05T14:07:09"},
		{"%j 100%%", "065 100%"},
		{"%B %y %I%p", "March 24 02PM"},
		{"%D", "03/05/24"},
		{"%x", "03/05/24"},
		{"%c", "Tue Mar  5 14:07:09 2024"},
	}
	for _, tt := range tests {
		got, err := Strftime(fixedNow, tt.format)
		require.NoError(t, err, tt.format)
		assert.Equal(t, tt.want, got, tt.format)
	}

	for _, bad := range []string{"%Q", "trailing %"} {
		_, err := Strftime(fixedNow, bad)
		assert.Error(t, err, bad)
	}
}

func TestExpandBadDatetimeFormat(t *testing.T) {
	ctx := Context{Now: fixedNow}
	assert.Equal(t, "{{datetime:%Q}} ok", Expand("{{datetime:%Q}} ok", ctx))
}

func TestHasPlaceholders(t *testing.T) {
	assert.True(t, HasPlaceholders("x {{counter}}"))
	assert.False(t, HasPlaceholders("x {counter}"))
}
