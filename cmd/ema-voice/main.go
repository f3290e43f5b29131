// Command ema-voice runs a live voice conversation with an assistant.
//
// Usage:
//
//	ema-voice [--config FILE] <command> [args]
//
// Commands:
//
//	call    - talk to the assistant through the default microphone and speaker
//	say     - speak a piece of text through the synthesis chain
//	voices  - list the Deepgram voices that can be configured
//
// Configuration is read from ema-voice.yaml in the working directory or the
// user config directory and can be overridden with EMA_ environment
// variables, e.g. EMA_SESSION_BARGE_IN=true.
package main

import (
	"fmt"
	"os"

	"github.com/koscakluka/ema-voice/cmd/ema-voice/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
