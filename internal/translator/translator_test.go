package translator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/basaa-mt/translator-api/internal/cache"
	"github.com/basaa-mt/translator-api/internal/direction"
	"github.com/basaa-mt/translator-api/internal/model"
	"github.com/basaa-mt/translator-api/internal/quality"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAdapter struct {
	calls atomic.Int32

	mu         sync.Mutex
	lastInput  string
	lastParams quality.Params

	generate    func(input string) (string, error)
	generateCtx func(ctx context.Context, input string) (string, error)
}

func (f *fakeAdapter) Generate(ctx context.Context, input string, params quality.Params) (string, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.lastInput = input
	f.lastParams = params
	f.mu.Unlock()
	if f.generateCtx != nil {
		return f.generateCtx(ctx, input)
	}
	if f.generate != nil {
		return f.generate(input)
	}
	// echo the input without its marker
	_, rest, _ := strings.Cut(input, " ")
	return rest, nil
}

func (f *fakeAdapter) Loaded() bool { return true }

func TestTranslate_PrefixesMarkerAndPostEdits(t *testing.T) {
	adapter := &fakeAdapter{generate: func(string) (string, error) { return "mbolo", nil }}
	tr := New(adapter)

	out, err := tr.Translate(context.Background(), "  bonjour ", direction.FrenchToBasaa, "fast")
	require.NoError(t, err)

	assert.Equal(t, "Mbolo.", out)
	assert.Equal(t, ">>bs<< bonjour", adapter.lastInput)
	assert.Equal(t, quality.Lookup("fast"), adapter.lastParams)
	assert.Equal(t, 1, adapter.lastParams.NumBeams)
	assert.Equal(t, 80, adapter.lastParams.MaxLength)
}

func TestTranslate_StripsEchoedMarker(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   string
	}{
		{name: "marker with space", output: ">>fr<< merci", want: "Merci."},
		{name: "bare marker", output: ">>fr<<merci", want: "Merci."},
		{name: "no marker", output: "merci", want: "Merci."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adapter := &fakeAdapter{generate: func(string) (string, error) { return tt.output, nil }}
			out, err := New(adapter).TranslateDirect(context.Background(), "a ŋga", direction.BasaaToFrench, "best")
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestTranslate_UnknownQualityUsesBalanced(t *testing.T) {
	adapter := &fakeAdapter{}
	_, err := New(adapter).Translate(context.Background(), "bonjour", direction.FrenchToBasaa, "ultra")
	require.NoError(t, err)
	assert.Equal(t, quality.Lookup("balanced"), adapter.lastParams)
}

func TestTranslate_CachesShortInputs(t *testing.T) {
	adapter := &fakeAdapter{}
	tr := New(adapter)
	ctx := context.Background()

	first, err := tr.Translate(ctx, "bonjour", direction.FrenchToBasaa, "fast")
	require.NoError(t, err)
	second, err := tr.Translate(ctx, "bonjour", direction.FrenchToBasaa, "fast")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), adapter.calls.Load())

	// keys are exact: whitespace, quality and direction all count
	_, _ = tr.Translate(ctx, "bonjour ", direction.FrenchToBasaa, "fast")
	_, _ = tr.Translate(ctx, "bonjour", direction.FrenchToBasaa, "best")
	_, _ = tr.Translate(ctx, "bonjour", direction.BasaaToFrench, "fast")
	assert.Equal(t, int32(4), adapter.calls.Load())
	assert.Equal(t, 4, tr.CacheStats().Size)
}

func TestTranslate_LongInputsBypassCache(t *testing.T) {
	adapter := &fakeAdapter{}
	tr := New(adapter)
	long := strings.Repeat("a", DefaultMaxCachedLen)

	for i := 0; i < 3; i++ {
		_, err := tr.Translate(context.Background(), long, direction.FrenchToBasaa, "fast")
		require.NoError(t, err)
	}

	assert.Equal(t, int32(3), adapter.calls.Load())
	assert.Equal(t, 0, tr.CacheStats().Size)

	// the threshold counts characters: 99 two-byte runes are still cached
	short := strings.Repeat("é", DefaultMaxCachedLen-1)
	_, _ = tr.Translate(context.Background(), short, direction.FrenchToBasaa, "fast")
	_, _ = tr.Translate(context.Background(), short, direction.FrenchToBasaa, "fast")
	assert.Equal(t, int32(4), adapter.calls.Load())
}

func TestTranslate_EvictsLeastRecentlyUsed(t *testing.T) {
	adapter := &fakeAdapter{}
	tr := New(adapter, WithCache(cache.NewLRU[Key, string](2)))
	ctx := context.Background()

	_, _ = tr.Translate(ctx, "un", direction.FrenchToBasaa, "fast")
	_, _ = tr.Translate(ctx, "deux", direction.FrenchToBasaa, "fast")
	_, _ = tr.Translate(ctx, "trois", direction.FrenchToBasaa, "fast")
	require.Equal(t, int32(3), adapter.calls.Load())

	_, _ = tr.Translate(ctx, "un", direction.FrenchToBasaa, "fast")
	assert.Equal(t, int32(4), adapter.calls.Load())
}

func TestTranslate_ErrorsPropagateAndAreNotCached(t *testing.T) {
	boom := errors.New("boom")
	fail := true
	adapter := &fakeAdapter{generate: func(string) (string, error) {
		if fail {
			return "", boom
		}
		return "ok", nil
	}}
	tr := New(adapter)

	_, err := tr.Translate(context.Background(), "x", direction.BasaaToFrench, "fast")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.True(t, IsKind(err, ErrGeneration))
	assert.Contains(t, err.Error(), "boom")

	fail = false
	out, err := tr.Translate(context.Background(), "x", direction.BasaaToFrench, "fast")
	require.NoError(t, err)
	assert.Equal(t, "Ok.", out)
}

func TestTranslate_ModelNotLoaded(t *testing.T) {
	adapter := &fakeAdapter{generate: func(string) (string, error) { return "", model.ErrNotLoaded }}
	_, err := New(adapter).Translate(context.Background(), "x", direction.FrenchToBasaa, "fast")
	assert.ErrorIs(t, err, model.ErrNotLoaded)
	assert.True(t, IsKind(err, ErrModelNotLoaded))
}

func TestTranslate_AdapterPanicBecomesError(t *testing.T) {
	adapter := &fakeAdapter{generate: func(string) (string, error) { panic("tensor shape mismatch") }}
	_, err := New(adapter).TranslateDirect(context.Background(), "x", direction.FrenchToBasaa, "fast")
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrUnknown))
	assert.Contains(t, err.Error(), "tensor shape mismatch")
}

func TestTranslateDirect_RejectsInvalidDirection(t *testing.T) {
	adapter := &fakeAdapter{}
	_, err := New(adapter).TranslateDirect(context.Background(), "x", direction.Direction("en→fr"), "fast")
	assert.True(t, IsKind(err, ErrValidation))
	assert.Equal(t, int32(0), adapter.calls.Load())
}

func TestTranslate_ConcurrentMissesShareOneCall(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	adapter := &fakeAdapter{generate: func(string) (string, error) {
		once.Do(func() { close(started) })
		<-release
		return "mbolo", nil
	}}
	tr := New(adapter)

	const n = 8
	results := make([]string, n)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], _ = tr.Translate(context.Background(), "bonjour", direction.FrenchToBasaa, "fast")
	}()
	<-started
	for i := 1; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = tr.Translate(context.Background(), "bonjour", direction.FrenchToBasaa, "fast")
		}(i)
	}
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), adapter.calls.Load())
	for _, r := range results {
		assert.Equal(t, "Mbolo.", r)
	}
}

func TestTranslate_CancelledCallerDoesNotFailOthers(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	adapter := &fakeAdapter{generateCtx: func(ctx context.Context, _ string) (string, error) {
		once.Do(func() { close(started) })
		select {
		case <-release:
			return "mbolo", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}}
	tr := New(adapter)

	ctxA, cancelA := context.WithCancel(context.Background())
	defer cancelA()
	errA := make(chan error, 1)
	go func() {
		_, err := tr.Translate(ctxA, "bonjour", direction.FrenchToBasaa, "fast")
		errA <- err
	}()
	<-started

	type result struct {
		out string
		err error
	}
	resB := make(chan result, 1)
	go func() {
		out, err := tr.Translate(context.Background(), "bonjour", direction.FrenchToBasaa, "fast")
		resB <- result{out, err}
	}()

	// A gives up while the shared call is still running
	cancelA()
	assert.ErrorIs(t, <-errA, context.Canceled)

	close(release)
	b := <-resB
	require.NoError(t, b.err)
	assert.Equal(t, "Mbolo.", b.out)
	assert.Equal(t, int32(1), adapter.calls.Load())

	// the detached call still filled the cache
	out, err := tr.Translate(ctxA, "bonjour", direction.FrenchToBasaa, "fast")
	require.NoError(t, err)
	assert.Equal(t, "Mbolo.", out)
}

func TestTranslate_CountsLanguageMismatches(t *testing.T) {
	tr := New(&fakeAdapter{})
	ctx := context.Background()

	_, err := tr.TranslateDirect(ctx, "Bonjour, je voudrais savoir où se trouve la gare la plus proche, s'il vous plaît.", direction.FrenchToBasaa, "fast")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), tr.LanguageMismatches())

	// French sent as Basaa source
	_, err = tr.TranslateDirect(ctx, "Bonjour, je voudrais savoir où se trouve la gare la plus proche, s'il vous plaît.", direction.BasaaToFrench, "fast")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), tr.LanguageMismatches())

	// English sent as French source
	_, err = tr.TranslateDirect(ctx, "The weather is very nice today and we would like to walk along the river with our friends.", direction.FrenchToBasaa, "fast")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), tr.LanguageMismatches())
}

func TestError_Format(t *testing.T) {
	err := WrapError(errors.New("cause"), ErrGeneration, "failed").
		WithContext("quality", "fast").
		WithContext("direction", "fr→bs")
	assert.Equal(t, "[Generation] failed | context: direction=fr→bs, quality=fast | cause: cause", err.Error())
}
