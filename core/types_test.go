package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStore_TypedAccess(t *testing.T) {
	s := NewStore()
	s.Set("name", "doc.md")
	s.Set("pages", 12)

	name, ok := Get[string](s, "name")
	assert.True(t, ok)
	assert.Equal(t, "doc.md", name)

	_, ok = Get[string](s, "pages")
	assert.False(t, ok, "wrong type is reported as missing")

	assert.Equal(t, 12, GetOr(s, "pages", 0))
	assert.Equal(t, 7, GetOr(s, "missing", 7))

	s.Delete("name")
	_, ok = Get[string](s, "name")
	assert.False(t, ok)

	var nilStore *Store
	_, ok = Get[int](nilStore, "x")
	assert.False(t, ok)

	var zero Store
	zero.Set("k", 1)
	assert.Equal(t, 1, GetOr(&zero, "k", 0))
}

func TestParams_MergeOverParent(t *testing.T) {
	ctx := context.Background()
	assert.NotNil(t, ParamsFromContext(ctx))

	parent := WithParams(ctx, Params{"lang": "en", "style": "short"})
	child := WithParams(parent, Params{"style": "long", "file": "a.txt"})

	assert.Equal(t, Params{"lang": "en", "style": "long", "file": "a.txt"}, ParamsFromContext(child))
	assert.Equal(t, Params{"lang": "en", "style": "short"}, ParamsFromContext(parent))
}
