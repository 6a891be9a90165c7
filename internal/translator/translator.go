// Package translator runs the translation pipeline: marker prefixing, model
// generation, marker stripping and post-editing, with a bounded cache in
// front for short inputs.
package translator

import (
	"context"
	"strings"
	"sync/atomic"
	"unicode/utf8"

	"github.com/abadojack/whatlanggo"
	"github.com/basaa-mt/translator-api/internal/cache"
	"github.com/basaa-mt/translator-api/internal/direction"
	"github.com/basaa-mt/translator-api/internal/model"
	"github.com/basaa-mt/translator-api/internal/postedit"
	"github.com/basaa-mt/translator-api/internal/quality"
	"github.com/basaa-mt/translator-api/pkg/log"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/language"
)

// DefaultMaxCachedLen is the input length (in characters, untrimmed) from
// which the cache is bypassed.
const DefaultMaxCachedLen = 100

// Key identifies a cache entry. Matching is exact: no trimming or case folding.
type Key struct {
	Text      string
	Direction direction.Direction
	Quality   string
}

func (k Key) String() string {
	return string(k.Direction) + "\x00" + k.Quality + "\x00" + k.Text
}

type Translator struct {
	adapter      model.Adapter
	cache        *cache.LRU[Key, string]
	maxCachedLen int

	group singleflight.Group

	langMismatches atomic.Uint64
}

type Option func(*Translator)

// WithCache replaces the default 1000-entry cache.
func WithCache(c *cache.LRU[Key, string]) Option {
	return func(t *Translator) {
		t.cache = c
	}
}

// WithMaxCachedLen sets the length threshold below which results are cached.
func WithMaxCachedLen(n int) Option {
	return func(t *Translator) {
		if n > 0 {
			t.maxCachedLen = n
		}
	}
}

func New(adapter model.Adapter, opts ...Option) *Translator {
	t := &Translator{
		adapter:      adapter,
		maxCachedLen: DefaultMaxCachedLen,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.cache == nil {
		t.cache = cache.NewLRU[Key, string](cache.DefaultCapacity)
	}
	return t
}

// Translate picks the cached path for short inputs and the direct path
// otherwise. The quality label is passed through as given; unknown labels
// use the balanced preset but keep their own cache entries.
func (t *Translator) Translate(ctx context.Context, text string, d direction.Direction, q string) (string, error) {
	if utf8.RuneCountInString(text) < t.maxCachedLen {
		return t.cached(ctx, Key{Text: text, Direction: d, Quality: q})
	}
	return t.TranslateDirect(ctx, text, d, q)
}

func (t *Translator) cached(ctx context.Context, key Key) (string, error) {
	if v, ok := t.cache.Get(key); ok {
		log.Debug("Cache hit for %s", key.Direction)
		return v, nil
	}

	// Concurrent misses on the same key share one model call. The call runs
	// detached from the caller that started it; each caller only stops
	// waiting on its own context.
	ch := t.group.DoChan(key.String(), func() (any, error) {
		if v, ok := t.cache.Get(key); ok {
			return v, nil
		}
		out, err := t.TranslateDirect(context.WithoutCancel(ctx), key.Text, key.Direction, key.Quality)
		if err != nil {
			return "", err
		}
		t.cache.Add(key, out)
		return out, nil
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// TranslateDirect runs the pipeline without consulting the cache.
func (t *Translator) TranslateDirect(ctx context.Context, text string, d direction.Direction, q string) (string, error) {
	if !d.Valid() {
		return "", NewError(ErrValidation, direction.ErrInvalid.Error()).WithContext("direction", string(d))
	}

	if !quality.Known(q) {
		log.Debug("Unknown quality %q, using %s", q, quality.Default)
	}
	params := quality.Lookup(q)
	text = strings.TrimSpace(text)
	if sourceMismatch(text, d) {
		t.langMismatches.Add(1)
	}

	input := d.Prefix() + text

	var result string
	err := SafeExecute(func() error {
		out, err := t.adapter.Generate(ctx, input, params)
		if err != nil {
			return err
		}
		result = out
		return nil
	})
	if err != nil {
		return "", classify(err).
			WithContext("direction", string(d)).
			WithContext("quality", q)
	}

	result = stripMarker(result, d)
	return postedit.Clean(result, d), nil
}

// stripMarker drops the target marker when the model echoes it back.
func stripMarker(text string, d direction.Direction) string {
	if strings.HasPrefix(text, d.Prefix()) {
		return text[len(d.Prefix()):]
	}
	return strings.TrimPrefix(text, d.Marker())
}

// CacheStats exposes cache counters for the stats endpoint.
func (t *Translator) CacheStats() cache.Stats {
	return t.cache.Stats()
}

// LanguageMismatches counts inputs that did not look like the source
// language of their direction.
func (t *Translator) LanguageMismatches() uint64 {
	return t.langMismatches.Load()
}

// sourceMismatch reports input that does not look like the source language.
// Basaa is not in the detector's language set, so a Basaa source can only be
// flagged when the input is confidently the target language.
func sourceMismatch(text string, d direction.Direction) bool {
	if text == "" {
		return false
	}
	info := whatlanggo.Detect(text)
	if !info.IsReliable() {
		return false
	}
	detected := info.Lang.Iso6393()
	src, _ := d.Source().Base()
	tgt, _ := d.Target().Base()
	switch {
	case detected == tgt.ISO3():
		log.Warn("Input for %s looks like %s", d, d.Target())
		return true
	case d.Source() == language.French && detected != src.ISO3():
		log.Warn("Input for %s detected as %s", d, info.Lang.String())
		return true
	}
	return false
}
