package embedding

import (
	"context"
	"encoding/binary"
	"math"
	"strings"
	"unicode"

	"golang.org/x/crypto/blake2b"
)

// HashModelName identifies vectors produced by HashProvider.
const HashModelName = "hash-bow"

// HashProvider is a deterministic, offline embedder. Each lower-cased word is
// hashed to a signed bucket and the bucket counts are L2-normalized, so texts
// sharing vocabulary have high cosine similarity. Empty text (or text with no
// words) yields the zero vector.
type HashProvider struct {
	dimensions int
}

// NewHashProvider returns a HashProvider with the given dimensions
// (DefaultDimensions when dims <= 0).
func NewHashProvider(dims int) *HashProvider {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	return &HashProvider{dimensions: dims}
}

// Embed returns the hashed bag-of-words vector for text.
func (h *HashProvider) Embed(ctx context.Context, text string) (Embedding, error) {
	if err := ctx.Err(); err != nil {
		return Embedding{}, wrapEncoding(HashModelName, 1, err)
	}

	vec := make([]float32, h.dimensions)
	for _, tok := range tokenize(text) {
		sum := blake2b.Sum256([]byte(tok))
		bucket := binary.LittleEndian.Uint64(sum[:8]) % uint64(h.dimensions)
		if sum[8]&1 == 0 {
			vec[bucket]++
		} else {
			vec[bucket]--
		}
	}
	normalizeL2(vec)
	return Embedding{Vector: vec}, nil
}

// EmbedBatch embeds each text in order.
func (h *HashProvider) EmbedBatch(ctx context.Context, texts []string) ([]Embedding, error) {
	return embedEach(ctx, h, texts)
}

// ModelName returns HashModelName.
func (h *HashProvider) ModelName() string {
	return HashModelName
}

// Dimensions returns the vector dimensions.
func (h *HashProvider) Dimensions() int {
	return h.dimensions
}

// tokenize splits text into lower-case words of letters and digits.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// normalizeL2 scales x in place to unit L2 norm. The zero vector is left unchanged.
func normalizeL2(x []float32) {
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	norm := 1.0 / math.Sqrt(sum)
	for i := range x {
		x[i] = float32(float64(x[i]) * norm)
	}
}
