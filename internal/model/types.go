package model

import (
	"context"
	"errors"

	"github.com/basaa-mt/translator-api/internal/quality"
)

// ErrNotLoaded is returned by Generate while the model is unavailable.
var ErrNotLoaded = errors.New("model not loaded")

// Adapter is the pretrained seq2seq model behind the service. Generate
// receives the marker-prefixed input and returns decoded text with special
// tokens removed. Implementations must be safe for concurrent use.
type Adapter interface {
	Generate(ctx context.Context, input string, params quality.Params) (string, error)
	Loaded() bool
}

// generateRequest follows the Hugging Face inference payload.
type generateRequest struct {
	Inputs     string             `json:"inputs"`
	Parameters generateParameters `json:"parameters"`
}

type generateParameters struct {
	MaxLength                 int  `json:"max_length"`
	NumBeams                  int  `json:"num_beams"`
	EarlyStopping             bool `json:"early_stopping"`
	NoRepeatNgramSize         int  `json:"no_repeat_ngram_size"`
	Truncation                bool `json:"truncation"`
	SkipSpecialTokens         bool `json:"skip_special_tokens"`
	CleanUpTokenizationSpaces bool `json:"clean_up_tokenization_spaces"`
}

// generation is one element of the server response. Translation pipelines
// answer with translation_text, text2text ones with generated_text.
type generation struct {
	TranslationText string `json:"translation_text,omitempty"`
	GeneratedText   string `json:"generated_text,omitempty"`
}

func (g generation) text() string {
	if g.TranslationText != "" {
		return g.TranslationText
	}
	return g.GeneratedText
}

type serverError struct {
	Error string `json:"error"`
}

// Status is the model state reported on /stats.
type Status struct {
	Loaded    bool   `json:"loaded"`
	ModelPath string `json:"model_path"`
	LastError string `json:"last_error,omitempty"`
}
