package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/g4mm4p4nd4/Personal-AI-Infrastructure/logger"
	"github.com/g4mm4p4nd4/Personal-AI-Infrastructure/sanitize"
)

const (
	elevenLabsBaseURL = "https://api.elevenlabs.io/v1"

	// ElevenLabsModelMultilingual is the multilingual v2 model.
	ElevenLabsModelMultilingual = "eleven_multilingual_v2"
	// ElevenLabsModelTurbo is the fast turbo v2.5 model.
	ElevenLabsModelTurbo = "eleven_turbo_v2_5"
	// ElevenLabsModelEnglish is the English monolingual v1 model.
	ElevenLabsModelEnglish = "eleven_monolingual_v1"

	// Default timeout for ElevenLabs requests.
	defaultElevenLabsTimeout = 60 * time.Second

	// HTTP status code threshold for server errors.
	elevenLabsServerErrorThreshold = 500

	// Default voice settings.
	elevenLabsDefaultStability       = 0.5
	elevenLabsDefaultSimilarityBoost = 0.75

	// ElevenLabsDefaultVoice is the default voice ID (Rachel).
	ElevenLabsDefaultVoice = "21m00Tcm4TlvDq8ikWAM"
)

// playerCandidate is a local audio player probed for playback.
type playerCandidate struct {
	name string
	args []string
}

// defaultPlayers are probed in order; the first one on PATH wins.
var defaultPlayers = []playerCandidate{
	{name: "afplay"},
	{name: "mpg123", args: []string{"-q"}},
	{name: "mpv", args: []string{"--no-video", "--really-quiet"}},
	{name: "ffplay", args: []string{"-nodisp", "-autoexit", "-loglevel", "quiet"}},
	{name: "play", args: []string{"-q"}},
}

// ElevenLabsProvider synthesizes speech through the ElevenLabs API and
// plays the returned audio with a local player. Unlike the command
// providers it is not native: audio is fetched over HTTP, written to a
// temporary file, and handed to the first player found on PATH.
type ElevenLabsProvider struct {
	apiKey    string
	baseURL   string
	client    *http.Client
	model     string
	runner    CommandRunner
	available atomic.Bool
}

// ElevenLabsOption configures the ElevenLabs provider.
type ElevenLabsOption func(*ElevenLabsProvider)

// WithElevenLabsBaseURL sets a custom base URL.
func WithElevenLabsBaseURL(url string) ElevenLabsOption {
	return func(p *ElevenLabsProvider) {
		p.baseURL = url
	}
}

// WithElevenLabsClient sets a custom HTTP client.
func WithElevenLabsClient(client *http.Client) ElevenLabsOption {
	return func(p *ElevenLabsProvider) {
		p.client = client
	}
}

// WithElevenLabsModel sets the synthesis model.
func WithElevenLabsModel(model string) ElevenLabsOption {
	return func(p *ElevenLabsProvider) {
		p.model = model
	}
}

// WithElevenLabsRunner sets the command runner used for player probing
// and playback.
func WithElevenLabsRunner(runner CommandRunner) ElevenLabsOption {
	return func(p *ElevenLabsProvider) {
		p.runner = runner
	}
}

// NewElevenLabs creates an ElevenLabs provider.
func NewElevenLabs(apiKey string, opts ...ElevenLabsOption) *ElevenLabsProvider {
	p := &ElevenLabsProvider{
		apiKey:  apiKey,
		baseURL: elevenLabsBaseURL,
		client:  &http.Client{Timeout: defaultElevenLabsTimeout},
		model:   ElevenLabsModelMultilingual,
		runner:  NewExecRunner(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the provider identifier.
func (p *ElevenLabsProvider) Name() string { return "elevenlabs" }

// Native reports that elevenlabs is a cloud backend.
func (p *ElevenLabsProvider) Native() bool { return false }

// IsAvailable reports whether an API key is configured. No network
// call is made; a bad key surfaces on the first dispatch.
func (p *ElevenLabsProvider) IsAvailable(_ context.Context) bool {
	return p.apiKey != ""
}

// Initialize runs detection and caches the result.
func (p *ElevenLabsProvider) Initialize(ctx context.Context) error {
	p.available.Store(p.IsAvailable(ctx))
	return nil
}

// Available returns the cached detection result.
func (p *ElevenLabsProvider) Available() bool {
	return p.available.Load()
}

// elevenLabsRequest is the request body for the ElevenLabs TTS API.
type elevenLabsRequest struct {
	Text          string                   `json:"text"`
	ModelID       string                   `json:"model_id,omitempty"`
	VoiceSettings *elevenLabsVoiceSettings `json:"voice_settings,omitempty"`
}

// elevenLabsVoiceSettings configures voice parameters.
type elevenLabsVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// Speak synthesizes text through the API, writes the audio to a
// temporary file, and plays it with the first available local player.
// The temporary file is removed after playback regardless of outcome.
func (p *ElevenLabsProvider) Speak(ctx context.Context, text string, opts SpeakOptions) error {
	if !p.Available() {
		return ErrProviderUnavailable
	}

	cleaned := sanitize.Clean(text)
	if cleaned == "" {
		return ErrEmptyText
	}

	voice := opts.Voice
	if voice == "" {
		voice = ElevenLabsDefaultVoice
	}

	audio, err := p.synthesize(ctx, cleaned, voice)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp("", "pai-tts-*.mp3")
	if err != nil {
		return NewSpeechError(p.Name(), "", "failed to create temp file", err, false)
	}
	if _, err := tmp.Write(audio); err != nil {
		tmp.Close()
		p.removeTemp(tmp.Name())
		return NewSpeechError(p.Name(), "", "failed to write audio", err, false)
	}
	if err := tmp.Close(); err != nil {
		p.removeTemp(tmp.Name())
		return NewSpeechError(p.Name(), "", "failed to write audio", err, false)
	}

	player, playerArgs, err := p.findPlayer()
	if err != nil {
		p.removeTemp(tmp.Name())
		return err
	}

	res, runErr := p.runner.Run(ctx, player, append(playerArgs, tmp.Name())...)
	p.removeTemp(tmp.Name())
	if runErr != nil {
		return NewSpeechError(p.Name(), "", fmt.Sprintf("failed to run %s", player), runErr, false)
	}
	if res.ExitCode != 0 {
		msg := fmt.Sprintf("%s exited with code %d", player, res.ExitCode)
		if s := strings.TrimSpace(res.Stderr); s != "" {
			msg += ": " + s
		}
		return NewSpeechError(p.Name(), fmt.Sprintf("%d", res.ExitCode), msg, nil, false)
	}
	return nil
}

// synthesize posts text to the API and returns the MP3 audio bytes.
func (p *ElevenLabsProvider) synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	reqBody := elevenLabsRequest{
		Text:    text,
		ModelID: p.model,
		VoiceSettings: &elevenLabsVoiceSettings{
			Stability:       elevenLabsDefaultStability,
			SimilarityBoost: elevenLabsDefaultSimilarityBoost,
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/text-to-speech/%s", p.baseURL, voice)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("xi-api-key", p.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, NewSpeechError(p.Name(), "", "request failed", err, true)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, p.handleError(resp)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewSpeechError(p.Name(), "", "failed to read audio", err, true)
	}
	return audio, nil
}

// elevenLabsErrorResponse represents an error response from ElevenLabs.
type elevenLabsErrorResponse struct {
	Detail struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"detail"`
}

// handleError builds a SpeechError from a non-200 response. The body is
// preserved in the error: structured detail when it parses, raw text
// otherwise.
func (p *ElevenLabsProvider) handleError(resp *http.Response) error {
	retryable := resp.StatusCode == http.StatusTooManyRequests ||
		resp.StatusCode >= elevenLabsServerErrorThreshold

	body, _ := io.ReadAll(resp.Body)

	var errResp elevenLabsErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Detail.Message != "" {
		return NewSpeechError(p.Name(), errResp.Detail.Status, errResp.Detail.Message, nil, retryable)
	}

	msg := fmt.Sprintf("text-to-speech request failed (status %d)", resp.StatusCode)
	if s := strings.TrimSpace(string(body)); s != "" {
		msg += ": " + s
	}
	return NewSpeechError(p.Name(), fmt.Sprintf("%d", resp.StatusCode), msg, nil, retryable)
}

// findPlayer probes PATH for a usable audio player.
func (p *ElevenLabsProvider) findPlayer() (string, []string, error) {
	names := make([]string, 0, len(defaultPlayers))
	for _, c := range defaultPlayers {
		if path, err := p.runner.LookPath(c.name); err == nil {
			return path, c.args, nil
		}
		names = append(names, c.name)
	}
	return "", nil, fmt.Errorf("%w (tried: %s)", ErrNoPlayer, strings.Join(names, ", "))
}

// removeTemp deletes the playback file. Removal failure is not fatal;
// it is logged so leaked files are visible.
func (p *ElevenLabsProvider) removeTemp(path string) {
	if err := os.Remove(path); err != nil {
		logger.Warn("failed to remove temp audio file", "path", path, "error", err)
	}
}

// elevenLabsVoicesResponse is the response from the voices endpoint.
type elevenLabsVoicesResponse struct {
	Voices []struct {
		VoiceID  string            `json:"voice_id"`
		Name     string            `json:"name"`
		Category string            `json:"category"`
		Labels   map[string]string `json:"labels"`
	} `json:"voices"`
}

// Voices queries the account's voice list from the API. Any failure
// yields an empty list; voice enumeration is advisory.
func (p *ElevenLabsProvider) Voices(ctx context.Context) []Voice {
	if !p.Available() {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/voices", nil)
	if err != nil {
		return nil
	}
	req.Header.Set("xi-api-key", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil
	}

	var payload elevenLabsVoicesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil
	}

	voices := make([]Voice, 0, len(payload.Voices))
	for _, v := range payload.Voices {
		lang := v.Labels["language"]
		if lang == "" {
			lang = "en"
		}
		voices = append(voices, Voice{
			ID:       v.VoiceID,
			Name:     v.Name,
			Language: lang,
			Gender:   ParseGender(v.Labels["gender"]),
			Quality:  elevenLabsQuality(v.Category),
		})
	}
	return voices
}

// elevenLabsQuality maps the API's voice category onto quality tiers.
func elevenLabsQuality(category string) Quality {
	switch category {
	case "professional":
		return QualityPremium
	case "cloned", "generated":
		return QualityEnhanced
	default:
		return QualityStandard
	}
}

var _ Provider = (*ElevenLabsProvider)(nil)
