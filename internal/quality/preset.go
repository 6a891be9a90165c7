// Package quality maps quality labels to generation parameters.
package quality

// Label names a quality preset.
type Label string

const (
	Fast     Label = "fast"
	Balanced Label = "balanced"
	Best     Label = "best"
)

// Default is used when a request omits the quality field.
const Default = Balanced

// Params is the generation bundle handed to the model adapter.
type Params struct {
	NumBeams          int  `json:"num_beams"`
	MaxLength         int  `json:"max_length"`
	NoRepeatNgramSize int  `json:"no_repeat_ngram_size"`
	EarlyStopping     bool `json:"early_stopping"`
}

var presets = map[Label]Params{
	Fast: {
		NumBeams:          1,
		MaxLength:         80,
		NoRepeatNgramSize: 1,
		EarlyStopping:     false,
	},
	Balanced: {
		NumBeams:          4,
		MaxLength:         100,
		NoRepeatNgramSize: 2,
		EarlyStopping:     true,
	},
	Best: {
		NumBeams:          6,
		MaxLength:         120,
		NoRepeatNgramSize: 3,
		EarlyStopping:     true,
	},
}

// Lookup returns the parameters for label. Unknown labels get the balanced
// bundle; this never fails.
func Lookup(label string) Params {
	if p, ok := presets[Label(label)]; ok {
		return p
	}
	return presets[Balanced]
}

// Known reports whether label names one of the fixed presets.
func Known(label string) bool {
	_, ok := presets[Label(label)]
	return ok
}
