package document

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
)

const (
	proofMaxSide     = 1600
	proofJPEGQuality = 85
)

// ProofStore keeps one normalised payment screenshot per ticket under
// <dir>/proofs.  A later upload for the same ticket replaces the earlier one.
type ProofStore struct {
	dir      string
	maxBytes int64
}

// NewProofStore returns a ProofStore rooted at dir.  Uploads larger than
// maxBytes are rejected with ErrTooLarge.
func NewProofStore(dir string, maxBytes int64) *ProofStore {
	return &ProofStore{dir: filepath.Join(dir, "proofs"), maxBytes: maxBytes}
}

// Save validates, normalises and stores the upload, returning the path of
// the stored JPEG.
func (s *ProofStore) Save(ticket string, src io.Reader) (string, error) {
	raw, err := readLimited(src, s.maxBytes)
	if err != nil {
		return "", err
	}
	img, err := decodeImage(raw)
	if err != nil {
		return "", err
	}
	img = downscaleIfNeeded(img, proofMaxSide, proofMaxSide)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(proofJPEGQuality)); err != nil {
		return "", fmt.Errorf("proof: encode: %w", err)
	}
	path := filepath.Join(s.dir, safeName(ticket)+".jpg")
	if err := writeFileAtomic(path, buf.Bytes()); err != nil {
		return "", fmt.Errorf("proof: write: %w", err)
	}
	return path, nil
}

// writeFileAtomic writes data next to path and renames it into place so a
// reader never sees a half-written file.
func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// safeName strips anything that could escape the storage directory.
func safeName(ticket string) string {
	out := make([]rune, 0, len(ticket))
	for _, r := range ticket {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return "_"
	}
	return string(out)
}
