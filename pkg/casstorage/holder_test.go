package casstorage

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashicorp-forge/casstore/pkg/casstorage/memdoc"
	"github.com/hashicorp-forge/casstore/pkg/docid"
)

var _ Document = (*memdoc.Document)(nil)

func testKey(documentID int64, variant docid.Variant) docid.Key {
	return docid.NewKey(1, documentID, variant)
}

func TestHolderOf(t *testing.T) {
	key := testKey(5, docid.UserVariant("alice"))

	t.Run("successful load", func(t *testing.T) {
		doc := memdoc.New(key, "text")
		h := HolderOf(key, func() (Document, error) { return doc, nil })

		assert.True(t, h.IsDocumentPresent())
		assert.NoError(t, h.Err())
		assert.Equal(t, key, h.Key())

		got, err := h.Document()
		require.NoError(t, err)
		assert.Same(t, doc, got)
	})

	t.Run("failed load", func(t *testing.T) {
		loadErr := errors.New("disk on fire")
		h := HolderOf(key, func() (Document, error) { return nil, loadErr })

		assert.False(t, h.IsDocumentPresent())
		assert.ErrorIs(t, h.Err(), loadErr)
		assert.Contains(t, h.Err().Error(), key.String())
	})

	t.Run("panicking loader", func(t *testing.T) {
		h := HolderOf(key, func() (Document, error) { panic("boom") })

		assert.False(t, h.IsDocumentPresent())
		require.Error(t, h.Err())
		assert.Contains(t, h.Err().Error(), "boom")
	})

	t.Run("loader returning nothing", func(t *testing.T) {
		h := HolderOf(key, func() (Document, error) { return nil, nil })

		assert.False(t, h.IsDocumentPresent())
		assert.Error(t, h.Err())
	})

	t.Run("nil loader", func(t *testing.T) {
		h := HolderOf(key, nil)

		assert.False(t, h.IsDocumentPresent())
		assert.ErrorIs(t, h.Err(), ErrInvalidArgument)
	})
}

func TestHolderOfWithRetry(t *testing.T) {
	key := testKey(5, docid.InitialVariant)

	t.Run("succeeds after transient failures", func(t *testing.T) {
		doc := memdoc.New(key, "text")
		attempts := 0
		load := func() (Document, error) {
			attempts++
			if attempts < 3 {
				return nil, errors.New("transient")
			}
			return doc, nil
		}

		h := HolderOfWithRetry(context.Background(), key, load, &backoff.ZeroBackOff{})

		assert.Equal(t, 3, attempts)
		assert.True(t, h.IsDocumentPresent())
		assert.NoError(t, h.Err())
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		attempts := 0
		loadErr := errors.New("still broken")
		load := func() (Document, error) {
			attempts++
			return nil, loadErr
		}

		h := HolderOfWithRetry(context.Background(), key, load,
			backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 2))

		assert.Equal(t, 3, attempts)
		assert.False(t, h.IsDocumentPresent())
		assert.ErrorIs(t, h.Err(), loadErr)
	})

	t.Run("permanent errors stop retrying", func(t *testing.T) {
		attempts := 0
		notFound := errors.New("not found")
		load := func() (Document, error) {
			attempts++
			return nil, backoff.Permanent(notFound)
		}

		h := HolderOfWithRetry(context.Background(), key, load, &backoff.ZeroBackOff{})

		assert.Equal(t, 1, attempts)
		assert.ErrorIs(t, h.Err(), notFound)
	})

	t.Run("nil context", func(t *testing.T) {
		doc := memdoc.New(key, "")

		//nolint:staticcheck // nil context is tolerated
		h := HolderOfWithRetry(nil, key, func() (Document, error) { return doc, nil }, &backoff.ZeroBackOff{})

		assert.NoError(t, h.Err())
		assert.Same(t, doc, h.MustDocument())
	})

	t.Run("nil backoff policy", func(t *testing.T) {
		called := false
		var h *Holder
		assert.NotPanics(t, func() {
			h = HolderOfWithRetry(context.Background(), key, func() (Document, error) {
				called = true
				return memdoc.New(key, ""), nil
			}, nil)
		})

		assert.False(t, called)
		assert.False(t, h.IsDocumentPresent())
		assert.ErrorIs(t, h.Err(), ErrInvalidArgument)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		h := HolderOfWithRetry(ctx, key, func() (Document, error) {
			return nil, errors.New("transient")
		}, &backoff.ZeroBackOff{})

		assert.False(t, h.IsDocumentPresent())
		assert.Error(t, h.Err())
	})
}

func TestHolder_Document(t *testing.T) {
	key := testKey(1, docid.CurationVariant)

	t.Run("no document", func(t *testing.T) {
		h := &Holder{key: key}

		_, err := h.Document()
		assert.ErrorIs(t, err, ErrDocumentNotSet)
		assert.ErrorIs(t, err, ErrIllegalState)
		assert.Panics(t, func() { h.MustDocument() })
	})

	t.Run("load error is wrapped", func(t *testing.T) {
		loadErr := errors.New("corrupt")
		h := HolderOf(key, func() (Document, error) { return nil, loadErr })

		_, err := h.Document()
		assert.ErrorIs(t, err, ErrDocumentNotSet)
		assert.ErrorIs(t, err, loadErr)
	})

	t.Run("document present", func(t *testing.T) {
		doc := memdoc.New(key, "")
		h := NewHolder(key, doc)

		assert.NotPanics(t, func() {
			assert.Same(t, doc, h.MustDocument())
		})
	})
}

func TestHolder_SetDocument(t *testing.T) {
	key := testKey(1, docid.InitialVariant)

	t.Run("clears load error", func(t *testing.T) {
		h := HolderOf(key, func() (Document, error) { return nil, errors.New("fail") })
		doc := memdoc.New(key, "upgraded")

		require.NoError(t, h.SetDocument(doc))

		assert.True(t, h.IsDocumentPresent())
		assert.NoError(t, h.Err())
		assert.Same(t, doc, h.MustDocument())
	})

	t.Run("rejects nil", func(t *testing.T) {
		h := NewHolder(key, memdoc.New(key, ""))

		err := h.SetDocument(nil)
		assert.ErrorIs(t, err, ErrInvalidArgument)
		assert.True(t, h.IsDocumentPresent())
	})
}

func TestHolder_Flags(t *testing.T) {
	h := NewHolder(testKey(1, docid.InitialVariant), memdoc.New(docid.Key{}, ""))

	assert.False(t, h.IsTypeSystemOutdated())
	assert.False(t, h.IsDeleted())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.SetTypeSystemOutdated(true)
			h.SetDeleted(true)
			_ = h.IsTypeSystemOutdated()
			_ = h.IsDeleted()
		}()
	}
	wg.Wait()

	assert.True(t, h.IsTypeSystemOutdated())
	assert.True(t, h.IsDeleted())

	h.SetTypeSystemOutdated(false)
	h.SetDeleted(false)
	assert.False(t, h.IsTypeSystemOutdated())
	assert.False(t, h.IsDeleted())
}

func TestHolder_String(t *testing.T) {
	key := testKey(1, docid.InitialVariant)

	assert.Contains(t, NewHolder(key, memdoc.New(key, "")).String(), "present")
	assert.Contains(t, HolderOf(key, func() (Document, error) { return nil, errors.New("x") }).String(), "failed")
	assert.Contains(t, (&Holder{key: key}).String(), "empty")
}
