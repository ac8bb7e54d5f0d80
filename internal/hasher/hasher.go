// internal/hasher/hasher.go
package hasher

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/zeebo/blake3"

	"revhash/internal/asset"
)

// HashLength is the number of hex characters kept from the digest.
const HashLength = 10

const DefaultTemplate = "{filename}_{hash}{extension}"

type Algorithm string

const (
	SHA256 Algorithm = "sha256"
	BLAKE3 Algorithm = "blake3"
)

var ErrAlreadyHashed = errors.New("record already hashed")

// Options configures naming.
type Options struct {
	Template  string
	Salt      string
	Algorithm Algorithm
}

// Hasher assigns final names and counts how many it assigned.
type Hasher struct {
	template  string
	salt      string
	algorithm Algorithm
	count     int
}

func New(opts Options) (*Hasher, error) {
	if opts.Template == "" {
		opts.Template = DefaultTemplate
	}
	if !strings.Contains(opts.Template, "{hash}") {
		return nil, fmt.Errorf("naming template %q has no {hash} placeholder", opts.Template)
	}
	if opts.Algorithm == "" {
		opts.Algorithm = SHA256
	}
	if opts.Algorithm != SHA256 && opts.Algorithm != BLAKE3 {
		return nil, fmt.Errorf("unknown hash algorithm %q", opts.Algorithm)
	}

	return &Hasher{
		template:  opts.Template,
		salt:      opts.Salt,
		algorithm: opts.Algorithm,
	}, nil
}

// Digest hashes name, content and salt, in that order, and returns the
// first HashLength hex characters.
func Digest(algorithm Algorithm, name string, content []byte, salt string) string {
	var sum [32]byte
	switch algorithm {
	case BLAKE3:
		h := blake3.New()
		h.Write([]byte(name))
		h.Write(content)
		h.Write([]byte(salt))
		copy(sum[:], h.Sum(nil))
	default:
		h := sha256.New()
		h.Write([]byte(name))
		h.Write(content)
		h.Write([]byte(salt))
		copy(sum[:], h.Sum(nil))
	}
	return hex.EncodeToString(sum[:])[:HashLength]
}

// Render fills the naming template.
func (h *Hasher) Render(stem, extension, hash string) string {
	return strings.NewReplacer(
		"{filename}", stem,
		"{extension}", extension,
		"{hash}", hash,
	).Replace(h.template)
}

// Hash names rec from its current content. It must run after every
// rewrite of rec is done, and only once per record.
func (h *Hasher) Hash(rec *asset.Record) (string, error) {
	if rec.Hashed() {
		return "", fmt.Errorf("hashing %s: %w", rec.RelativePath, ErrAlreadyHashed)
	}

	hash := Digest(h.algorithm, rec.Name, rec.Content, h.salt)
	name := h.Render(rec.Stem(), rec.Extension, hash)

	rec.FinalName = name
	rec.OutputPath = path.Join(path.Dir(rec.RelativePath), name)
	h.count++

	return name, nil
}

// Count returns how many records this hasher has named.
func (h *Hasher) Count() int {
	return h.count
}
