package memdoc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashicorp-forge/casstore/pkg/docid"
)

func TestDocument(t *testing.T) {
	key := docid.NewKey(7, 42, docid.InitialVariant)
	d := New(key, "hello world")

	assert.Equal(t, key, d.Key())
	assert.Equal(t, "hello world", d.Text())
	assert.Equal(t, key.String(), d.String())

	require.NoError(t, d.Annotate(Annotation{Layer: "token", Begin: 0, End: 5, Value: "hello"}))
	assert.Error(t, d.Annotate(Annotation{Layer: "token", Begin: 6, End: 12}))
	assert.Error(t, d.Annotate(Annotation{Layer: "token", Begin: 3, End: 2}))

	anns := d.Annotations()
	require.Len(t, anns, 1)
	anns[0].Value = "changed"
	assert.Equal(t, "hello", d.Annotations()[0].Value)
}

func TestDocument_Release(t *testing.T) {
	d := New(docid.Key{}, "")
	assert.False(t, d.IsReleased())

	require.NoError(t, d.Release())
	require.NoError(t, d.Release())
	assert.True(t, d.IsReleased())
	assert.Equal(t, 2, d.Releases())

	errRelease := errors.New("release failed")
	failing := NewFailing(docid.Key{}, errRelease)
	assert.ErrorIs(t, failing.Release(), errRelease)
	assert.Equal(t, 1, failing.Releases())
}
