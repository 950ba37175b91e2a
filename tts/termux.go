package tts

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/g4mm4p4nd4/Personal-AI-Infrastructure/sanitize"
)

const (
	termuxCommand = "termux-tts-speak"

	// termux-tts-speak takes rate and pitch as multipliers of the system
	// default, where 1.0 is unchanged. 175 wpm is treated as the baseline
	// speaking rate.
	termuxBaselineWPM = 175
	termuxMinScale    = 0.1
	termuxMaxScale    = 2.0
)

// TermuxProvider speaks through the Termux:API bridge on Android. The
// underlying command forwards to the platform text-to-speech engine.
type TermuxProvider struct {
	runner    CommandRunner
	available atomic.Bool
}

// NewTermux creates the Android provider.
func NewTermux(runner CommandRunner) *TermuxProvider {
	return &TermuxProvider{runner: runner}
}

// Name returns the provider identifier.
func (p *TermuxProvider) Name() string { return "termux" }

// Native reports that termux is a local command backend.
func (p *TermuxProvider) Native() bool { return true }

// IsAvailable reports whether termux-tts-speak is on PATH.
func (p *TermuxProvider) IsAvailable(_ context.Context) bool {
	_, err := p.runner.LookPath(termuxCommand)
	return err == nil
}

// Initialize runs detection and caches the result.
func (p *TermuxProvider) Initialize(ctx context.Context) error {
	p.available.Store(p.IsAvailable(ctx))
	return nil
}

// Available returns the cached detection result.
func (p *TermuxProvider) Available() bool {
	return p.available.Load()
}

// formatScale renders a multiplier with two decimal places.
func formatScale(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// Speak dispatches text to termux-tts-speak. Rate is normalized from
// words per minute to a multiplier; pitch passes through. Both are
// clamped to the engine's accepted range.
func (p *TermuxProvider) Speak(ctx context.Context, text string, opts SpeakOptions) error {
	if !p.Available() {
		return ErrProviderUnavailable
	}

	cleaned := sanitize.Clean(text)
	if cleaned == "" {
		return ErrEmptyText
	}

	var args []string
	if opts.Rate > 0 {
		args = append(args, "-r", formatScale(clamp(opts.Rate/termuxBaselineWPM, termuxMinScale, termuxMaxScale)))
	}
	if opts.Pitch > 0 {
		args = append(args, "-p", formatScale(clamp(opts.Pitch, termuxMinScale, termuxMaxScale)))
	}
	args = append(args, cleaned)

	res, err := p.runner.Run(ctx, termuxCommand, args...)
	if err != nil {
		return NewSpeechError(p.Name(), "", "failed to run termux-tts-speak", err, false)
	}
	if res.ExitCode != 0 {
		msg := fmt.Sprintf("termux-tts-speak exited with code %d", res.ExitCode)
		if s := strings.TrimSpace(res.Stderr); s != "" {
			msg += ": " + s
		}
		return NewSpeechError(p.Name(), strconv.Itoa(res.ExitCode), msg, nil, false)
	}
	return nil
}

// Voices returns a single placeholder entry. The Termux API offers no
// voice enumeration; the engine picks whatever the system configured.
func (p *TermuxProvider) Voices(_ context.Context) []Voice {
	if !p.Available() {
		return nil
	}
	return []Voice{
		{ID: "default", Name: "System TTS", Language: "en", Quality: QualityStandard},
	}
}

var _ Provider = (*TermuxProvider)(nil)
