package voice

// Control frame types exchanged as structured text over the channel.
const (
	ControlStart   = "start"
	ControlEnd     = "end"
	ControlTTS     = "tts"
	ControlPartial = "partial"
	ControlFinal   = "final"
	ControlError   = "error"
)

// controlFrame covers both outbound and inbound control messages; unused
// fields are omitted on the wire.
type controlFrame struct {
	Type       string `json:"type"`
	SampleRate int    `json:"sampleRate,omitempty"`
	Text       string `json:"text,omitempty"`
	Message    string `json:"message,omitempty"`
}
