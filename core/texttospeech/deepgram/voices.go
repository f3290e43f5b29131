package deepgram

type deepgramVoice string

const defaultVoice deepgramVoice = "aura-2-thalia-en"

var availableVoices = []deepgramVoice{
	"aura-2-thalia-en",
	"aura-2-andromeda-en",
	"aura-2-helena-en",
	"aura-2-apollo-en",
	"aura-2-arcas-en",
	"aura-2-aries-en",
	"aura-2-asteria-en",
	"aura-2-athena-en",
	"aura-2-luna-en",
	"aura-2-orion-en",
	"aura-2-orpheus-en",
	"aura-2-zeus-en",
}

func GetAvailableVoices() []deepgramVoice {
	return append([]deepgramVoice(nil), availableVoices...)
}

// Voice converts a configured voice name.
func Voice(name string) deepgramVoice {
	return deepgramVoice(name)
}

func (v deepgramVoice) String() string {
	return string(v)
}
