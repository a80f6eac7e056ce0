package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodingForModel(t *testing.T) {
	tests := map[string]string{
		"gpt-4o-mini":   "o200k_base",
		"gpt-4o":        "o200k_base",
		"gpt-4.1-nano":  "o200k_base",
		"gpt-5.2-pro":   "o200k_base",
		"o1-mini":       "o200k_base",
		"o4-mini":       "o200k_base",
		"gpt-3.5-turbo": "cl100k_base",
		"llama3":        "",
	}

	for model, want := range tests {
		t.Run(model, func(t *testing.T) {
			assert.Equal(t, want, EncodingForModel(model))
		})
	}
}

func TestCounter_CountText_UnknownModel(t *testing.T) {
	counter := NewCounter()

	// Fallback: len("Hello world this is a test") / 4 = 26/4 = 6
	assert.Equal(t, 6, counter.CountText("unknown-model", "Hello world this is a test"))
	assert.Equal(t, 0, counter.CountText("unknown-model", ""))
}

func TestCounter_CountText_KnownModel(t *testing.T) {
	counter := NewCounter()

	// Works with or without network access: either tiktoken or the estimate.
	tokens := counter.CountText("gpt-4o-mini", "Hello, how are you doing today?")
	assert.Greater(t, tokens, 0)
	assert.Less(t, tokens, 20)

	// Second call hits the cached encoding (or cached failure).
	assert.Equal(t, tokens, counter.CountText("gpt-4o", "Hello, how are you doing today?"))
}

func TestCounter_Concurrent(t *testing.T) {
	counter := NewCounter()

	done := make(chan int)
	for i := 0; i < 10; i++ {
		go func() {
			done <- counter.CountText("unknown-model", "twelve chars")
		}()
	}
	for i := 0; i < 10; i++ {
		assert.Equal(t, 3, <-done)
	}
}
