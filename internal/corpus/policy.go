package corpus

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"grocerai/internal/domain"
)

// Policy is the loaded policy document with its content fingerprint.
type Policy struct {
	Document    domain.Document
	Fingerprint string
}

// LoadPolicy reads a plain-text, markdown or PDF policy document.
func LoadPolicy(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var text string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		text, err = pdfText(data)
		if err != nil {
			return nil, fmt.Errorf("extracting %s: %w", path, err)
		}
	default:
		text = string(data)
	}

	sum := sha256.Sum256(data)
	return &Policy{
		Document: domain.Document{
			ID:      "policies",
			Path:    path,
			Content: text,
		},
		Fingerprint: fmt.Sprintf("bytes=%d;sha256=%s", len(data), hex.EncodeToString(sum[:])),
	}, nil
}

func pdfText(data []byte) (string, error) {
	rdr, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	plain, err := rdr.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}
