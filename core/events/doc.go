// Package events defines the typed session event contract.
//
// Event kinds are grouped by receiver-facing namespaces:
//
//   - session.*
//   - user_input.*
//   - assistant_response.*
//   - assistant_speech.*
//   - assistant_playback.*
//   - turn_state.*
//
// session events
//
//   - SessionStateChanged (session.state_changed): the session moved between
//     states.
//   - SessionFailed (session.failed): an unrecoverable device or permission
//     fault moved the session to its error state.
//
// user_input events
//
//   - UserTranscriptInterimUpdated (user_input.transcript_interim_updated):
//     mutable interim transcript snapshot, never turned into a turn.
//   - UserTranscriptFinal (user_input.transcript_final): terminal transcript
//     for the utterance.
//   - UserCaptureFailed (user_input.capture_failed): recognition failed in a
//     way the user should know about but the session recovers from.
//
// assistant_response events
//
//   - AssistantResponseFinal (assistant_response.final): reply text that was
//     appended to the history.
//   - AssistantResponseFailed (assistant_response.failed): the reply
//     generator failed; no assistant turn was recorded.
//
// assistant_speech events
//
//   - AssistantSpeechSynthesized (assistant_speech.synthesized): audio for the
//     reply is ready; names the provider that produced it.
//   - AssistantSpeechFailed (assistant_speech.failed): every synthesizer
//     failed, the reply stays text only.
//
// assistant_playback events
//
//   - AssistantPlaybackStarted (assistant_playback.started): a clip became
//     audible.
//   - AssistantPlaybackEnded (assistant_playback.ended): the clip played to
//     the end.
//   - AssistantPlaybackInterrupted (assistant_playback.interrupted): the clip
//     was faded out early by a barge-in or by ending the session.
//
// turn_state events
//
//   - TurnStarted (turn_state.started): a final transcript started a turn.
//   - TurnCompleted (turn_state.completed): the turn finished, with or
//     without audio.
//   - TurnCancelled (turn_state.cancelled): the turn was superseded.
package events
