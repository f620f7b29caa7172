package watcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventTypeString(t *testing.T) {
	testCases := []struct {
		eventType EventType
		expected  string
	}{
		{EventTypeCreated, "created"},
		{EventTypeModified, "modified"},
		{EventTypeDeleted, "deleted"},
		{EventTypeRenamed, "renamed"},
		{EventType(42), "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.eventType.String())
		})
	}
}

func TestIgnoreFilter(t *testing.T) {
	filter := IgnoreFilter([]string{".git", "node_modules", "dist/"})

	assert.True(t, filter("src/posts/hello.md"))
	assert.False(t, filter(".git/HEAD"))
	assert.False(t, filter("src/node_modules/react/index.js"))
	assert.False(t, filter("dist"))
	assert.True(t, filter("distance.md"))
}

func TestNoTempFilter(t *testing.T) {
	assert.True(t, NoTempFilter("src/main.go"))
	for _, p := range []string{"src/main.go~", "src/.main.go.swp", "src/.#main.go", "src/4913"} {
		assert.False(t, NoTempFilter(p), p)
	}
}

func TestMatches(t *testing.T) {
	patterns := []string{"*.go", "isle.yml", "src/styles/*.css"}

	assert.True(t, Matches(patterns, "cmd/root.go"))
	assert.True(t, Matches(patterns, "isle.yml"))
	assert.True(t, Matches(patterns, "src/styles/global.css"))
	assert.False(t, Matches(patterns, "src/components/card.module.css"))
	assert.False(t, Matches(patterns, "src/posts/hello.md"))
	assert.False(t, Matches(nil, "main.go"))
}
