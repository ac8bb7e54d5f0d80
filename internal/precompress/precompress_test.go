package precompress

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompressor_RoundTrip(t *testing.T) {
	c, err := New(Options{Codecs: []string{Gzip, Zstd}})
	require.NoError(t, err)

	content := []byte(strings.Repeat("body { color: red; }\n", 200))
	for _, codec := range []string{Gzip, Zstd} {
		t.Run(codec, func(t *testing.T) {
			data, err := c.Compress(codec, content)
			require.NoError(t, err)
			assert.Less(t, len(data), len(content))

			out, err := Decompress(codec, data)
			require.NoError(t, err)
			assert.Equal(t, content, out)
		})
	}
}

func TestCompressor_Variants(t *testing.T) {
	opts := DefaultOptions()
	opts.Codecs = []string{Zstd, Gzip}
	c, err := New(opts)
	require.NoError(t, err)

	big := []byte(strings.Repeat("x", 4096))

	variants, err := c.Variants("app_0123456789.js", big)
	require.NoError(t, err)
	require.Len(t, variants, 2)
	assert.Equal(t, ".zst", variants[0].Suffix)
	assert.Equal(t, ".gz", variants[1].Suffix)

	t.Run("too small", func(t *testing.T) {
		v, err := c.Variants("app.js", []byte("1"))
		require.NoError(t, err)
		assert.Empty(t, v)
	})

	t.Run("already compressed format", func(t *testing.T) {
		v, err := c.Variants("logo.PNG", big)
		require.NoError(t, err)
		assert.Empty(t, v)
	})
}

func TestCompressor_Disabled(t *testing.T) {
	var nilc *Compressor
	assert.False(t, nilc.Enabled())
	v, err := nilc.Variants("app.js", []byte(strings.Repeat("x", 4096)))
	require.NoError(t, err)
	assert.Empty(t, v)

	c, err := New(DefaultOptions())
	require.NoError(t, err)
	assert.False(t, c.Enabled())
}

func TestNew_UnknownCodec(t *testing.T) {
	_, err := New(Options{Codecs: []string{"brotli"}})
	assert.Error(t, err)

	_, err = Decompress("brotli", nil)
	assert.Error(t, err)
}
