package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/koscakluka/ema-voice/core/audio"
	"github.com/koscakluka/ema-voice/core/audio/codec"
	"github.com/koscakluka/ema-voice/core/playback"
	"github.com/koscakluka/ema-voice/core/texttospeech"
)

const fadeOutTimeout = 2 * time.Second

var sayCmd = &cobra.Command{
	Use:   "say TEXT",
	Short: "Speak text through the synthesis chain",
	Long: `Synthesize TEXT with the first configured provider that succeeds and
play it on the default speaker. Useful for checking API keys and voices.

Example:
  ema-voice say "Hello there, how can I help?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSay,
}

func runSay(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	text := strings.TrimSpace(strings.Join(args, " "))
	if text == "" {
		return errors.New("nothing to say")
	}

	device, _, err := openAudioDevice(cfg.Audio)
	if err != nil {
		return fmt.Errorf("failed to open audio device: %w", err)
	}
	defer device.Close()

	providers := newSynthesisProviders(cfg.TTS, device.EncodingInfo().SampleRate)
	localVoice := newLocalVoice(cfg.TTS)
	if len(providers) == 0 && localVoice == nil {
		return errNoSynthesizer
	}

	clip, provider, err := synthesizeClip(ctx, newSynthesisChain(cfg.TTS, providers), localVoice, text, device.EncodingInfo())
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), statusStyle.Render(fmt.Sprintf("· %s, %s", provider, clip.Duration().Round(10*time.Millisecond))))

	return playClip(ctx, playback.NewEngine(device, playbackOptions(cfg.Audio)...), clip)
}

// synthesizeClip runs the chain and falls back to localVoice when every
// provider failed.
func synthesizeClip(ctx context.Context, chain *texttospeech.Chain, localVoice texttospeech.Provider, text string, target audio.EncodingInfo) (*audio.Clip, string, error) {
	outcome, err := chain.Synthesize(ctx, text)
	if err != nil {
		return nil, "", err
	}

	result, provider := outcome.Result, outcome.Provider
	if outcome.LocalFallback {
		if localVoice == nil {
			return nil, "", fmt.Errorf("every provider failed: %w", outcome.Err())
		}
		if result, err = localVoice.Synthesize(ctx, text); err != nil {
			return nil, "", errors.Join(outcome.Err(), fmt.Errorf("%s: %w", localVoice.Name(), err))
		}
		provider = localVoice.Name()
	}

	clip, err := codec.NewDecoder().DecodeFor(ctx, result, target)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode %s audio: %w", provider, err)
	}
	return clip, provider, nil
}

// playClip plays clip to the end, or fades it out when ctx is cancelled.
func playClip(ctx context.Context, engine *playback.Engine, clip *audio.Clip) error {
	done := make(chan struct{})
	if err := engine.Play(ctx, clip, func() { close(done) }); err != nil {
		return err
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		cancelCtx, cancel := context.WithTimeout(context.Background(), fadeOutTimeout)
		defer cancel()
		return engine.Cancel(cancelCtx)
	}
}
