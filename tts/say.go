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
	sayCommand = "say"

	// say accepts roughly 90..720 words per minute.
	sayMinRate = 90
	sayMaxRate = 720
)

// SayProvider speaks through the macOS `say` command.
type SayProvider struct {
	runner    CommandRunner
	available atomic.Bool
}

// NewSay creates the macOS provider. Like every provider it is constructed
// on all platforms; detection decides usability.
func NewSay(runner CommandRunner) *SayProvider {
	return &SayProvider{runner: runner}
}

// Name returns the provider identifier.
func (p *SayProvider) Name() string { return "say" }

// Native reports that say is a local command backend.
func (p *SayProvider) Native() bool { return true }

// IsAvailable reports whether the say binary is on PATH.
func (p *SayProvider) IsAvailable(_ context.Context) bool {
	_, err := p.runner.LookPath(sayCommand)
	return err == nil
}

// Initialize runs detection and caches the result.
func (p *SayProvider) Initialize(ctx context.Context) error {
	p.available.Store(p.IsAvailable(ctx))
	return nil
}

// Available returns the cached detection result.
func (p *SayProvider) Available() bool {
	return p.available.Load()
}

// Speak invokes say with optional voice and rate flags. The rate is words
// per minute, which say takes directly.
func (p *SayProvider) Speak(ctx context.Context, text string, opts SpeakOptions) error {
	if !p.Available() {
		return ErrProviderUnavailable
	}

	cleaned := sanitize.Clean(text)
	if cleaned == "" {
		return ErrEmptyText
	}

	args := make([]string, 0, 5)
	if opts.Voice != "" {
		args = append(args, "-v", opts.Voice)
	}
	if opts.Rate > 0 {
		args = append(args, "-r", strconv.Itoa(int(clamp(opts.Rate, sayMinRate, sayMaxRate))))
	}
	args = append(args, cleaned)

	res, err := p.runner.Run(ctx, sayCommand, args...)
	if err != nil {
		return NewSpeechError(p.Name(), "", "failed to run say", err, false)
	}
	if res.ExitCode != 0 {
		msg := fmt.Sprintf("say exited with code %d", res.ExitCode)
		if s := strings.TrimSpace(res.Stderr); s != "" {
			msg += ": " + s
		}
		return NewSpeechError(p.Name(), strconv.Itoa(res.ExitCode), msg, nil, false)
	}
	return nil
}

// Voices returns the static say catalogue. The command exposes no voice
// enumeration at the tier this system uses, so the list is hardcoded.
func (p *SayProvider) Voices(_ context.Context) []Voice {
	if !p.Available() {
		return nil
	}
	return []Voice{
		{ID: "Samantha", Name: "Samantha", Language: "en-US", Gender: GenderFemale, Quality: QualityEnhanced},
		{ID: "Alex", Name: "Alex", Language: "en-US", Gender: GenderMale, Quality: QualityStandard},
		{ID: "Ava", Name: "Ava", Language: "en-US", Gender: GenderFemale, Quality: QualityPremium},
		{ID: "Zoe", Name: "Zoe", Language: "en-US", Gender: GenderFemale, Quality: QualityPremium},
		{ID: "Evan", Name: "Evan", Language: "en-US", Gender: GenderMale, Quality: QualityEnhanced},
		{ID: "Fred", Name: "Fred", Language: "en-US", Gender: GenderMale, Quality: QualityStandard},
		{ID: "Victoria", Name: "Victoria", Language: "en-US", Gender: GenderFemale, Quality: QualityStandard},
		{ID: "Daniel", Name: "Daniel", Language: "en-GB", Gender: GenderMale, Quality: QualityStandard},
		{ID: "Karen", Name: "Karen", Language: "en-AU", Gender: GenderFemale, Quality: QualityStandard},
		{ID: "Moira", Name: "Moira", Language: "en-IE", Gender: GenderFemale, Quality: QualityStandard},
		{ID: "Rishi", Name: "Rishi", Language: "en-IN", Gender: GenderMale, Quality: QualityStandard},
		{ID: "Tessa", Name: "Tessa", Language: "en-ZA", Gender: GenderFemale, Quality: QualityStandard},
	}
}

var _ Provider = (*SayProvider)(nil)
