package voicemanager

// Responder is the per-voice collaborator the VoiceManager drives. A real
// implementation owns a pool of tone-generating voice objects; the manager
// never looks inside a VoiceHandle, it only asks the Responder to create,
// move, modulate and destroy them.
//
// Every method here corresponds 1:1 to an operation in the voice-allocation
// and release pipelines; none of them may call back into the VoiceManager.
type Responder interface {
	// SetVoiceEndCallback registers the function the manager calls when a
	// voice ends on its own (envelope completion) or in response to
	// TerminateVoice. The manager calls this once during construction.
	SetVoiceEndCallback(fn func(v VoiceHandle))

	// BeginVoiceCreationTransaction populates buf[0:V] with the polyphony
	// group each voice-entry of this note-on will belong to, and returns V.
	BeginVoiceCreationTransaction(buf []VoiceBeginEntry, port, channel, key int, noteID int32, velocity float32) int

	// InitializeMultipleVoices creates voice objects for the V declared
	// entries, honoring any InitSkip instruction, and writes the launched
	// handles into out. It returns L <= V, the number actually launched.
	InitializeMultipleVoices(voices int, instr []VoiceInitInstruction, out []VoiceInitEntry, port, channel, key int, noteID int32, velocity float32, retune float64) int

	// EndVoiceCreationTransaction signals that the current note-on has
	// finished requesting voices.
	EndVoiceCreationTransaction(port, channel, key int, noteID int32, velocity float32)

	// RetriggerVoiceWithNewNoteID re-fires an already-sounding voice in
	// place (the piano repeated-key mode).
	RetriggerVoiceWithNewNoteID(v VoiceHandle, noteID int32, velocity float32)

	// MoveVoice and MoveAndRetriggerVoice are the mono-legato migration
	// hooks. The core never calls them today (see the mono-steal TODO in
	// noteon.go) but a Responder must still implement them.
	MoveVoice(v VoiceHandle, port, channel, key int, retune float64)
	MoveAndRetriggerVoice(v VoiceHandle, port, channel, key int, retune float64)

	// TerminateVoice hard-stops a voice. The end-callback must follow,
	// synchronously or not — the manager only frees a slot once the
	// callback arrives.
	TerminateVoice(v VoiceHandle)

	// ReleaseVoice enters the voice's release envelope.
	ReleaseVoice(v VoiceHandle, velocity float32)

	// SetNoteExpression, SetVoicePolyphonicParameterModulation and
	// SetVoiceMonophonicParameterModulation deliver routed modulation.
	SetNoteExpression(v VoiceHandle, expression int32, value float64)
	SetVoicePolyphonicParameterModulation(v VoiceHandle, paramID uint32, value float64)
	SetVoiceMonophonicParameterModulation(v VoiceHandle, paramID uint32, value float64)
	SetPolyphonicAftertouch(v VoiceHandle, value int8)

	// Per-voice MPE routing.
	SetVoiceMIDIMPEChannelPitchBend(v VoiceHandle, bend14bit uint16)
	SetVoiceMIDIMPEChannelPressure(v VoiceHandle, pressure int8)
	SetVoiceMIDIMPETimbre(v VoiceHandle, timbre int8)
}

// MonoResponder is the per-channel broadcast collaborator the Router uses
// for plain MIDI1 (and MPE global-channel) traffic.
type MonoResponder interface {
	SetMIDIPitchBend(channel int, value14bit uint16)
	SetMIDIChannelPressure(channel int, value int8)
	SetMIDI1CC(channel int, cc int, value int8)
}
