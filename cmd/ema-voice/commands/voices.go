package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	deepgramtts "github.com/koscakluka/ema-voice/core/texttospeech/deepgram"
)

var voicesCmd = &cobra.Command{
	Use:   "voices",
	Short: "List the Deepgram voices",
	Long: `List the Deepgram voices accepted by tts.deepgram_voice. The configured
voice is marked with an asterisk.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		for _, voice := range deepgramtts.GetAvailableVoices() {
			marker := " "
			if voice.String() == cfg.TTS.DeepgramVoice {
				marker = userLabelStyle.Render("*")
			}
			fmt.Fprintf(out, "%s %s\n", marker, voice)
		}
		return nil
	},
}
