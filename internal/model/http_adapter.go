package model

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/basaa-mt/translator-api/internal/quality"
	"github.com/basaa-mt/translator-api/pkg/log"
)

// Files a MarianMT checkpoint directory must contain. At least one of the
// tokenizer files is required.
var (
	requiredModelFiles = []string{"config.json"}
	tokenizerFiles     = []string{"source.spm", "tokenizer_config.json", "vocab.json"}
)

// HTTPAdapter runs inference through a local model server that has the
// checkpoint at Config.ModelPath loaded. Thread-safe for concurrent use.
type HTTPAdapter struct {
	config     *Config
	httpClient *http.Client
	baseURL    string

	mu      sync.RWMutex
	loaded  bool
	lastErr error
}

// NewHTTPAdapter creates an adapter. It does not touch the model; call Load.
func NewHTTPAdapter(config *Config) (*HTTPAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &HTTPAdapter{
		config:  config,
		baseURL: strings.TrimRight(config.ServerURL, "/"),
		httpClient: &http.Client{
			Timeout: config.timeout(),
		},
	}, nil
}

// Load checks the checkpoint directory and that the model server answers.
// On failure the adapter stays unloaded and the error is kept for Status.
func (a *HTTPAdapter) Load(ctx context.Context) error {
	log.Info("Loading model from: %s", a.config.ModelPath)

	err := checkModelDir(a.config.ModelPath)
	if err == nil {
		err = a.probe(ctx)
	}

	a.mu.Lock()
	a.loaded = err == nil
	a.lastErr = err
	a.mu.Unlock()

	if err != nil {
		log.Error("Failed to load model: %v", err)
		logModelDir(a.config.ModelPath)
		return err
	}
	log.Info("Model and tokenizer loaded")
	return nil
}

func (a *HTTPAdapter) Loaded() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.loaded
}

func (a *HTTPAdapter) Status() Status {
	a.mu.RLock()
	defer a.mu.RUnlock()
	st := Status{
		Loaded:    a.loaded,
		ModelPath: a.config.ModelPath,
	}
	if a.lastErr != nil {
		st.LastError = a.lastErr.Error()
	}
	return st
}

// Generate tokenizes, generates and decodes input with the given preset.
func (a *HTTPAdapter) Generate(ctx context.Context, input string, params quality.Params) (string, error) {
	if !a.Loaded() {
		return "", ErrNotLoaded
	}

	request := generateRequest{
		Inputs: input,
		Parameters: generateParameters{
			MaxLength:                 params.MaxLength,
			NumBeams:                  params.NumBeams,
			EarlyStopping:             params.EarlyStopping,
			NoRepeatNgramSize:         params.NoRepeatNgramSize,
			Truncation:                true,
			SkipSpecialTokens:         true,
			CleanUpTokenizationSpaces: true,
		},
	}

	body, err := a.makeRequest(ctx, http.MethodPost, "/generate", request)
	if err != nil {
		return "", fmt.Errorf("generation failed: %w", err)
	}

	text, err := decodeGeneration(body)
	if err != nil {
		return "", fmt.Errorf("decode generation: %w", err)
	}
	return text, nil
}

func (a *HTTPAdapter) probe(ctx context.Context) error {
	if _, err := a.makeRequest(ctx, http.MethodGet, "/health", nil); err != nil {
		return fmt.Errorf("model server unavailable: %w", err)
	}
	return nil
}

// makeRequest makes a raw HTTP request to the model server and returns the body
func (a *HTTPAdapter) makeRequest(ctx context.Context, method, path string, payload interface{}) ([]byte, error) {
	url := a.baseURL + path

	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for key, value := range a.config.GetHeaders() {
		req.Header.Set(key, value)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		if os.IsTimeout(err) {
			return nil, fmt.Errorf("request timed out: %w", err)
		}
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var se serverError
		if json.Unmarshal(responseBody, &se) == nil && se.Error != "" {
			return nil, fmt.Errorf("model server returned %d: %s", resp.StatusCode, se.Error)
		}
		return nil, fmt.Errorf("model server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(responseBody)))
	}
	return responseBody, nil
}

// decodeGeneration accepts either a list of generations (first one wins) or
// a single object.
func decodeGeneration(body []byte) (string, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return "", errors.New("empty response")
	}

	if trimmed[0] == '[' {
		var list []generation
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return "", err
		}
		if len(list) == 0 {
			return "", errors.New("no generations in response")
		}
		return list[0].text(), nil
	}

	var single struct {
		generation
		serverError
	}
	if err := json.Unmarshal(trimmed, &single); err != nil {
		return "", err
	}
	if single.Error != "" {
		return "", errors.New(single.Error)
	}
	return single.text(), nil
}

func checkModelDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("model directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("model path %s is not a directory", dir)
	}

	for _, name := range requiredModelFiles {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			return fmt.Errorf("missing %s in %s", name, dir)
		}
	}
	for _, name := range tokenizerFiles {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return nil
		}
	}
	return fmt.Errorf("no tokenizer found in %s (expected one of %s)", dir, strings.Join(tokenizerFiles, ", "))
}

// logModelDir lists what is actually on disk to help diagnose a failed load.
func logModelDir(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Error("Directory %s does not exist", dir)
		return
	}
	log.Info("Files found in %s:", dir)
	for _, e := range entries {
		log.Info(" - %s", e.Name())
	}
}
