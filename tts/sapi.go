package tts

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/g4mm4p4nd4/Personal-AI-Infrastructure/sanitize"
)

const (
	// System.Speech rates run -10..10; 180 wpm maps to 0 and each step is
	// worth 20 wpm.
	sapiBaselineWPM = 180
	sapiWPMPerStep  = 20
	sapiMinRate     = -10
	sapiMaxRate     = 10

	sapiMaxVolume = 100

	// sapiVoiceScript prints one Name|Culture|Gender line per installed voice.
	sapiVoiceScript = `Add-Type -AssemblyName System.Speech; ` +
		`$synth = New-Object System.Speech.Synthesis.SpeechSynthesizer; ` +
		`$synth.GetInstalledVoices() | ForEach-Object { $v = $_.VoiceInfo; Write-Output "$($v.Name)|$($v.Culture)|$($v.Gender)" }`
)

// SAPIProvider speaks through Windows PowerShell and the System.Speech
// assembly. Each dispatch generates a small script and hands it to the
// scripting host.
type SAPIProvider struct {
	runner    CommandRunner
	available atomic.Bool
}

// NewSAPI creates the Windows provider.
func NewSAPI(runner CommandRunner) *SAPIProvider {
	return &SAPIProvider{runner: runner}
}

// Name returns the provider identifier.
func (p *SAPIProvider) Name() string { return "sapi" }

// Native reports that sapi is a local command backend.
func (p *SAPIProvider) Native() bool { return true }

// findShell locates the PowerShell executable.
func (p *SAPIProvider) findShell() (string, error) {
	if path, err := p.runner.LookPath("powershell.exe"); err == nil {
		return path, nil
	}
	return p.runner.LookPath("powershell")
}

// IsAvailable reports whether a PowerShell host is on PATH.
func (p *SAPIProvider) IsAvailable(_ context.Context) bool {
	_, err := p.findShell()
	return err == nil
}

// Initialize runs detection and caches the result.
func (p *SAPIProvider) Initialize(ctx context.Context) error {
	p.available.Store(p.IsAvailable(ctx))
	return nil
}

// Available returns the cached detection result.
func (p *SAPIProvider) Available() bool {
	return p.available.Load()
}

// sapiRate converts words per minute onto the -10..10 System.Speech scale.
func sapiRate(wpm float64) int {
	return int(clamp(math.Round((wpm-sapiBaselineWPM)/sapiWPMPerStep), sapiMinRate, sapiMaxRate))
}

// escapeQuotes doubles single quotes for PowerShell single-quoted literals.
func escapeQuotes(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// Speak generates a System.Speech script and executes it. Stderr is
// captured and included in errors for diagnostics.
func (p *SAPIProvider) Speak(ctx context.Context, text string, opts SpeakOptions) error {
	if !p.Available() {
		return ErrProviderUnavailable
	}

	cleaned := sanitize.Clean(text)
	if cleaned == "" {
		return ErrEmptyText
	}

	shell, err := p.findShell()
	if err != nil {
		return NewSpeechError(p.Name(), "", "powershell not found", err, false)
	}

	var script strings.Builder
	script.WriteString("Add-Type -AssemblyName System.Speech; ")
	script.WriteString("$synth = New-Object System.Speech.Synthesis.SpeechSynthesizer; ")
	if opts.Voice != "" {
		fmt.Fprintf(&script, "$synth.SelectVoice('%s'); ", escapeQuotes(opts.Voice))
	}
	if opts.Rate > 0 {
		fmt.Fprintf(&script, "$synth.Rate = %d; ", sapiRate(opts.Rate))
	}
	if opts.Volume > 0 {
		fmt.Fprintf(&script, "$synth.Volume = %d; ", int(clamp(opts.Volume, 0, 1)*sapiMaxVolume))
	}
	fmt.Fprintf(&script, "$synth.Speak('%s');", escapeQuotes(cleaned))

	res, err := p.runner.Run(ctx, shell, "-NoProfile", "-Command", script.String())
	if err != nil {
		return NewSpeechError(p.Name(), "", "failed to run powershell", err, false)
	}
	if res.ExitCode != 0 {
		msg := fmt.Sprintf("powershell exited with code %d", res.ExitCode)
		if s := strings.TrimSpace(res.Stderr); s != "" {
			msg += ": " + s
		}
		return NewSpeechError(p.Name(), strconv.Itoa(res.ExitCode), msg, nil, false)
	}
	return nil
}

// Voices queries the installed-voice enumeration and parses its per-line
// output. Malformed lines are skipped; any failure yields an empty list.
func (p *SAPIProvider) Voices(ctx context.Context) []Voice {
	if !p.Available() {
		return nil
	}

	shell, err := p.findShell()
	if err != nil {
		return nil
	}

	res, err := p.runner.Run(ctx, shell, "-NoProfile", "-Command", sapiVoiceScript)
	if err != nil || res.ExitCode != 0 {
		return nil
	}

	var voices []Voice
	for _, line := range strings.Split(res.Stdout, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.Split(line, "|")
		if len(parts) != 3 {
			continue
		}
		voices = append(voices, Voice{
			ID:       parts[0],
			Name:     parts[0],
			Language: parts[1],
			Gender:   ParseGender(parts[2]),
			Quality:  QualityStandard,
		})
	}
	return voices
}

var _ Provider = (*SAPIProvider)(nil)
