package hasher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"revhash/internal/asset"
)

func TestDigest(t *testing.T) {
	content := []byte("body { color: red; }")

	t.Run("sha256 of name, content and salt", func(t *testing.T) {
		assert.Equal(t, "02bc53d716", Digest(SHA256, "style.css", content, ""))
		assert.Equal(t, "4e879958d3", Digest(SHA256, "style.css", content, "v2"))
	})

	t.Run("deterministic", func(t *testing.T) {
		for _, alg := range []Algorithm{SHA256, BLAKE3} {
			a := Digest(alg, "app.js", content, "salt")
			b := Digest(alg, "app.js", content, "salt")
			assert.Equal(t, a, b)
			assert.Len(t, a, HashLength)
		}
	})

	t.Run("algorithms differ", func(t *testing.T) {
		assert.NotEqual(t,
			Digest(SHA256, "app.js", content, ""),
			Digest(BLAKE3, "app.js", content, ""))
	})
}

func TestHasher_Hash(t *testing.T) {
	h, err := New(Options{Salt: "v2"})
	require.NoError(t, err)

	rec := asset.NewRecord("css/style.css", []byte("body { color: red; }"))
	name, err := h.Hash(rec)
	require.NoError(t, err)

	assert.Equal(t, "style_4e879958d3.css", name)
	assert.Equal(t, name, rec.FinalName)
	assert.Equal(t, "css/style_4e879958d3.css", rec.OutputPath)
	assert.Equal(t, "css/style.css", rec.RelativePath)
	assert.Equal(t, 1, h.Count())

	t.Run("second hash is refused", func(t *testing.T) {
		_, err := h.Hash(rec)
		assert.ErrorIs(t, err, ErrAlreadyHashed)
		assert.Equal(t, "style_4e879958d3.css", rec.FinalName)
		assert.Equal(t, 1, h.Count())
	})
}

func TestHasher_Template(t *testing.T) {
	h, err := New(Options{Template: "{hash}/{filename}{extension}"})
	require.NoError(t, err)

	rec := asset.NewRecord("Logo.PNG", []byte{0x89, 'P', 'N', 'G'})
	name, err := h.Hash(rec)
	require.NoError(t, err)

	hash := Digest(SHA256, "Logo.PNG", rec.Content, "")
	assert.Equal(t, hash+"/Logo.png", name)
}

func TestNew_Invalid(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{name: "template without hash", opts: Options{Template: "{filename}{extension}"}},
		{name: "unknown algorithm", opts: Options{Algorithm: "md5"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opts)
			assert.Error(t, err)
		})
	}
}
