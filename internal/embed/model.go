// Package embed loads a frozen word-embedding artifact and pools token
// vectors into a document vector.
//
// The artifact is a word2vec binary file: an ASCII header "<vocab> <dim>\n"
// followed by one record per word, "<word> " and dim little-endian float32
// values, optionally terminated by a newline.
//
// Pooling is fixed: each word is lower-cased and stripped of surrounding
// punctuation, every vector found is L2-normalized, and the document vector
// is the mean of those unit vectors. Words missing from the vocabulary are
// skipped; a text with no known word maps to the zero vector.
package embed

import (
	"bufio"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"unicode"

	"github.com/ppiankov/taieye/internal/model"
)

const (
	maxWordBytes = 1024
	maxDim       = 1 << 16
	maxVocab     = 1 << 24
)

// Model is a read-only word-embedding table
type Model struct {
	dim     int
	vectors map[string][]float32
	version string
}

// Load reads a word2vec binary artifact from path.
// Any failure is reported as model.ErrModelUnavailable.
func Load(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open embedding %s: %v", model.ErrModelUnavailable, path, err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("%w: stat embedding %s: %v", model.ErrModelUnavailable, path, err)
	}

	hash := sha256.New()
	m, err := read(io.TeeReader(f, hash), info.Size())
	if err != nil {
		return nil, fmt.Errorf("%w: read embedding %s: %v", model.ErrModelUnavailable, path, err)
	}
	// drain any trailing bytes so the version covers the whole file
	if _, err := io.Copy(hash, f); err != nil {
		return nil, fmt.Errorf("%w: hash embedding %s: %v", model.ErrModelUnavailable, path, err)
	}

	m.version = "sha256:" + hex.EncodeToString(hash.Sum(nil))[:16]
	return m, nil
}

// Read parses a word2vec binary stream
func Read(r io.Reader) (*Model, error) {
	return read(r, -1)
}

// read parses a stream whose total size is known when size >= 0. The header
// is validated against that size before any vector is allocated.
func read(r io.Reader, size int64) (*Model, error) {
	br := bufio.NewReader(r)

	header, err := br.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	var vocab, dim int
	if _, err := fmt.Sscanf(strings.TrimSpace(header), "%d %d", &vocab, &dim); err != nil {
		return nil, fmt.Errorf("parse header %q: %w", strings.TrimSpace(header), err)
	}
	if vocab < 0 || vocab > maxVocab || dim <= 0 || dim > maxDim {
		return nil, fmt.Errorf("invalid header: vocab=%d dim=%d", vocab, dim)
	}
	// every record holds at least a one-byte word, a space and the vector
	if size >= 0 && int64(vocab)*(int64(dim)*4+2) > size-int64(len(header)) {
		return nil, fmt.Errorf("header declares %d x %d vectors but file has %d bytes", vocab, dim, size)
	}

	m := &Model{
		dim:     dim,
		vectors: make(map[string][]float32, min(vocab, 1<<16)),
	}

	for i := 0; i < vocab; i++ {
		word, err := readWord(br)
		if err != nil {
			return nil, fmt.Errorf("read word %d: %w", i, err)
		}
		vec := make([]float32, dim)
		if err := binary.Read(br, binary.LittleEndian, vec); err != nil {
			return nil, fmt.Errorf("read vector for %q: %w", word, err)
		}
		m.vectors[word] = vec
	}

	return m, nil
}

// readWord reads bytes up to a space, skipping leading newlines
func readWord(br *bufio.Reader) (string, error) {
	var sb strings.Builder
	for {
		b, err := br.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", io.ErrUnexpectedEOF
			}
			return "", err
		}
		if b == ' ' {
			break
		}
		if b == '\n' && sb.Len() == 0 {
			continue
		}
		sb.WriteByte(b)
		if sb.Len() > maxWordBytes {
			return "", fmt.Errorf("word exceeds %d bytes", maxWordBytes)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("empty word")
	}
	return sb.String(), nil
}

// Write serializes vectors in word2vec binary form, sorted by the given word order
func Write(w io.Writer, dim int, words []string, vectors map[string][]float32) error {
	if _, err := fmt.Fprintf(w, "%d %d\n", len(words), dim); err != nil {
		return err
	}
	for _, word := range words {
		vec := vectors[word]
		if len(vec) != dim {
			return fmt.Errorf("%w: vector for %q has %d dims, want %d", model.ErrSchemaMismatch, word, len(vec), dim)
		}
		if _, err := io.WriteString(w, word+" "); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, vec); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
	}
	return nil
}

// Dim returns the vector dimension
func (m *Model) Dim() int {
	return m.dim
}

// Version identifies the artifact the model was loaded from
func (m *Model) Version() string {
	if m.version == "" {
		return "in-memory"
	}
	return m.version
}

// VocabSize returns the number of words in the table
func (m *Model) VocabSize() int {
	return len(m.vectors)
}

// Embed pools the vectors of the words in text into one document vector
func (m *Model) Embed(text string) []float32 {
	sum := make([]float64, m.dim)
	found := 0

	for _, tok := range strings.Fields(text) {
		vec, ok := m.vectors[normalize(tok)]
		if !ok {
			continue
		}
		var norm float64
		for _, x := range vec {
			norm += float64(x) * float64(x)
		}
		if norm == 0 {
			continue
		}
		norm = math.Sqrt(norm)
		for i, x := range vec {
			sum[i] += float64(x) / norm
		}
		found++
	}

	out := make([]float32, m.dim)
	if found == 0 {
		return out
	}
	for i := range sum {
		out[i] = float32(sum[i] / float64(found))
	}
	return out
}

// normalize lower-cases a token and strips surrounding punctuation
func normalize(tok string) string {
	return strings.TrimFunc(strings.ToLower(tok), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
