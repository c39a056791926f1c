package tokens

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

const defaultEncoding = "cl100k_base"

// Tiktoken estimates token counts using a real BPE encoding. The encoding
// is loaded once at construction; Estimate itself never performs I/O.
type Tiktoken struct {
	enc *tiktoken.Tiktoken
}

// NewTiktoken creates an estimator backed by the cl100k_base encoding.
func NewTiktoken() (*Tiktoken, error) {
	enc, err := tiktoken.GetEncoding(defaultEncoding)
	if err != nil {
		return nil, fmt.Errorf("loading %s encoding: %w", defaultEncoding, err)
	}

	return &Tiktoken{enc: enc}, nil
}

// Estimate returns the exact cl100k_base token count for text.
func (t *Tiktoken) Estimate(text string) int {
	if text == "" {
		return 0
	}
	return len(t.enc.Encode(text, nil, nil))
}
