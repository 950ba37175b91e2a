// Package tts provides the voice layer: capability detection across
// text-to-speech backends, a uniform speak/list-voices contract, and a
// Manager that selects one active backend at runtime.
//
// # Architecture
//
// The package provides:
//   - Provider interface for speech backends
//   - Four implementations: say (macOS), sapi (Windows PowerShell),
//     termux (Android), elevenlabs (cloud fallback)
//   - Manager owning detection, selection policy, and dispatch
//   - CommandRunner, a small port over process execution so providers can
//     be tested without spawning OS binaries
//
// Every provider is constructed unconditionally regardless of platform;
// only detection decides usability. Providers never receive raw text: all
// dispatch paths clean input through the sanitize package first.
//
// # Usage
//
//	manager := tts.NewManager(tts.WithElevenLabsKey(os.Getenv("ELEVENLABS_API_KEY")))
//	manager.Initialize(ctx)
//	if err := manager.Speak(ctx, "**Hello** world", tts.SpeakOptions{}); err != nil {
//	    log.Fatal(err)
//	}
//
// Selection policy: any available native backend is preferred over the
// cloud fallback; among natives, the first available in construction order
// wins. With no backend available the Manager runs in a degraded state and
// Speak returns ErrNoProvider.
package tts
