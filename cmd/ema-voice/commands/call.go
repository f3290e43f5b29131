package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	orchestration "github.com/koscakluka/ema-voice/core"
	"github.com/koscakluka/ema-voice/core/conversations"
	"github.com/koscakluka/ema-voice/internal/utils"
)

var (
	callBargeIn  bool
	callKeyboard bool
	callView     string
	callWidth    int
)

var callCmd = &cobra.Command{
	Use:   "call",
	Short: "Start a live voice conversation",
	Long: `Start a live voice conversation on the default microphone and speaker.

The session listens until you finish a sentence, answers it out loud and
listens again. Press Ctrl+C to hang up.

With --keyboard every line typed on stdin is handled as if it had been
spoken, which also interrupts a reply that is being played.`,
	RunE: runCall,
}

func init() {
	callCmd.Flags().BoolVar(&callBargeIn, "barge-in", false, "keep listening while the assistant speaks")
	callCmd.Flags().BoolVar(&callKeyboard, "keyboard", false, "also accept typed input from stdin")
	callCmd.Flags().StringVar(&callView, "view", "", "describe what you are looking at to the assistant")
	callCmd.Flags().IntVar(&callWidth, "width", defaultTranscriptWidth, "transcript wrap width")
}

func runCall(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	device, captureEncoding, err := openAudioDevice(cfg.Audio)
	if err != nil {
		return fmt.Errorf("failed to open audio device: %w", err)
	}
	defer device.Close()

	replies, err := newReplyGenerator(cfg.LLM)
	if err != nil {
		return err
	}
	recognizer, err := newRecognizer(cfg.STT, captureEncoding)
	if err != nil {
		return err
	}

	providers := newSynthesisProviders(cfg.TTS, device.EncodingInfo().SampleRate)
	localVoice := newLocalVoice(cfg.TTS)
	if len(providers) == 0 && localVoice == nil {
		return errNoSynthesizer
	}

	bargeIn := cfg.Session.BargeIn
	if cmd.Flags().Changed("barge-in") {
		bargeIn = callBargeIn
	}

	printer := newTranscriptPrinter(cmd.OutOrStdout(), callWidth)
	failed := make(chan struct{}, 1)

	opts := []orchestration.SessionOption{
		orchestration.WithReplyGenerator(replies),
		orchestration.WithSynthesisChain(newSynthesisChain(cfg.TTS, providers)),
		orchestration.WithAudioOutput(device, playbackOptions(cfg.Audio)...),
		orchestration.WithMicrophone(device),
		orchestration.WithRecognizer(recognizer),
		orchestration.WithBargeIn(bargeIn),
		orchestration.WithResumeDelay(cfg.Session.ResumeDelay),
		orchestration.WithCaptureRestartDelay(cfg.Session.CaptureRestartDelay),
		orchestration.WithEventHandler(printer.handle),
		orchestration.WithEventCallbacks(orchestration.EventCallbacks{
			OnStateChanged: func(_, to orchestration.State) {
				if to != orchestration.StateError {
					return
				}
				select {
				case failed <- struct{}{}:
				default:
				}
			},
		}),
	}
	if localVoice != nil {
		opts = append(opts, orchestration.WithLocalSynthesizer(localVoice))
	}

	session := orchestration.NewSession(opts...)
	defer session.Close()

	if callView != "" {
		session.SetContext(conversations.SessionContext{CurrentView: utils.Ptr(callView)})
	}

	if err := session.Start(ctx); err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	logger.InfoContext(ctx, "call started", "session_id", session.ID(), "barge_in", bargeIn)
	printer.status("listening, press Ctrl+C to hang up")

	if callKeyboard {
		go readTypedInput(ctx, os.Stdin, session, printer)
	}

	select {
	case <-ctx.Done():
		printer.summary(session)
		return nil
	case <-failed:
		return session.LastError()
	}
}

// readTypedInput hands every non-empty line to the session.
func readTypedInput(ctx context.Context, in io.Reader, session *orchestration.Session, printer *transcriptPrinter) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		err := session.HandleTranscript(scanner.Text())
		switch {
		case err == nil, errors.Is(err, orchestration.ErrEmptyTranscript):
		case errors.Is(err, orchestration.ErrSessionClosed):
			return
		default:
			printer.failure("typed input ignored", err)
		}
	}
}
