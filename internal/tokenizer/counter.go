package tokenizer

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// Counter counts prompt tokens with tiktoken, falling back to a len/4
// estimate for models without a known encoding or when the encoding
// cannot be loaded.
type Counter struct {
	mu        sync.RWMutex
	encodings map[string]*tiktoken.Tiktoken
	failed    map[string]bool
}

// NewCounter creates a new token counter.
func NewCounter() *Counter {
	return &Counter{
		encodings: make(map[string]*tiktoken.Tiktoken),
		failed:    make(map[string]bool),
	}
}

// modelEncoding maps model prefixes to tiktoken encoding names.
var modelEncoding = []struct {
	prefix   string
	encoding string
}{
	{"gpt-5", "o200k_base"},
	{"gpt-4o", "o200k_base"},
	{"gpt-4.1", "o200k_base"},
	{"o1", "o200k_base"},
	{"o3", "o200k_base"},
	{"o4", "o200k_base"},
	{"gpt-3.5", "cl100k_base"},
}

// EncodingForModel returns the tiktoken encoding name for a model id, or ""
// when the model is not known.
func EncodingForModel(model string) string {
	for _, m := range modelEncoding {
		if strings.HasPrefix(model, m.prefix) {
			return m.encoding
		}
	}
	return ""
}

func (c *Counter) getEncoding(model string) *tiktoken.Tiktoken {
	encName := EncodingForModel(model)
	if encName == "" {
		return nil
	}

	c.mu.RLock()
	enc, ok := c.encodings[encName]
	failed := c.failed[encName]
	c.mu.RUnlock()
	if ok {
		return enc
	}
	if failed {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Double-check after acquiring write lock.
	if enc, ok := c.encodings[encName]; ok {
		return enc
	}
	if c.failed[encName] {
		return nil
	}

	enc, err := tiktoken.GetEncoding(encName)
	if err != nil {
		// The BPE ranks are fetched on first use; remember the failure so
		// offline deployments do not retry on every request.
		c.failed[encName] = true
		return nil
	}
	c.encodings[encName] = enc
	return enc
}

// CountText returns the token count of text for the given model.
func (c *Counter) CountText(model, text string) int {
	enc := c.getEncoding(model)
	if enc == nil {
		return Estimate(text)
	}
	return len(enc.Encode(text, nil, nil))
}

// Estimate is the len/4 heuristic used when no encoding is available.
func Estimate(text string) int {
	return len(text) / 4
}
