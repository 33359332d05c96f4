package voicemanager

// The Router (§4.7) dispatches channel-wide and per-voice controller
// traffic according to the configured Dialect. In MIDI1 every message is a
// per-channel broadcast to the MonoResponder. In MIDI1MPE the configured
// global channel still broadcasts, but every other channel is a per-note
// MPE channel: pitch-bend, channel pressure and the configured timbre CC
// are routed individually to each active, gated voice on that (port,
// channel) instead; sustain-held voices that are no longer gated get none.

func (vm *VoiceManager) isMPEMemberChannel(channel int) bool {
	return vm.dialect == MIDI1MPE && channel != vm.mpeGlobalChannel
}

// SetPitchBend applies a 14-bit pitch-bend value (0..16383, center 8192) on
// (port, channel).
func (vm *VoiceManager) SetPitchBend(port, channel int, value14bit uint16) {
	bend := int16(int32(value14bit) - 8192)
	if vm.dialect == MIDI1MPE && channel == vm.mpeGlobalChannel {
		vm.globalPitchBend = bend
	} else {
		vm.lastPitchBend14[channel] = bend
	}

	if !vm.isMPEMemberChannel(channel) {
		vm.trace("setMIDIPitchBend", channel, value14bit)
		vm.monoResponder.SetMIDIPitchBend(channel, value14bit)
		return
	}

	for i := range vm.slots {
		s := &vm.slots[i]
		if s.Active && s.Gated && s.Port == port && s.Channel == channel {
			vm.trace("setVoiceMIDIMPEChannelPitchBend", s.VoiceHandle, value14bit)
			vm.responder.SetVoiceMIDIMPEChannelPitchBend(s.VoiceHandle, value14bit)
		}
	}
}

// SetChannelPressure applies channel aftertouch on (port, channel).
func (vm *VoiceManager) SetChannelPressure(port, channel int, value int8) {
	if !vm.isMPEMemberChannel(channel) {
		vm.trace("setMIDIChannelPressure", channel, value)
		vm.monoResponder.SetMIDIChannelPressure(channel, value)
		return
	}

	for i := range vm.slots {
		s := &vm.slots[i]
		if s.Active && s.Gated && s.Port == port && s.Channel == channel {
			vm.trace("setVoiceMIDIMPEChannelPressure", s.VoiceHandle, value)
			vm.responder.SetVoiceMIDIMPEChannelPressure(s.VoiceHandle, value)
		}
	}
}

// SetCC applies a MIDI1 continuous controller value on (port, channel). In
// MPE mode the configured timbre CC on a member channel routes per-voice
// instead of broadcasting.
func (vm *VoiceManager) SetCC(port, channel, cc int, value int8) {
	if cc >= 0 && cc < len(vm.ccCache[0]) {
		vm.ccCache[channel][cc] = uint8(value)
	}

	if vm.isMPEMemberChannel(channel) && cc == int(vm.mpeTimbreCC) {
		for i := range vm.slots {
			s := &vm.slots[i]
			if s.Active && s.Gated && s.Port == port && s.Channel == channel {
				vm.trace("setVoiceMIDIMPETimbre", s.VoiceHandle, value)
				vm.responder.SetVoiceMIDIMPETimbre(s.VoiceHandle, value)
			}
		}
		return
	}

	vm.trace("setMIDI1CC", channel, cc, value)
	vm.monoResponder.SetMIDI1CC(channel, cc, value)
}

// SetPolyphonicAftertouch applies per-key aftertouch to every active slot
// matching (port, channel, key).
func (vm *VoiceManager) SetPolyphonicAftertouch(port, channel, key int, value int8) {
	for i := range vm.slots {
		s := &vm.slots[i]
		if s.matches(port, channel, key, noSpecificNoteID) {
			vm.trace("setPolyphonicAftertouch", s.VoiceHandle, value)
			vm.responder.SetPolyphonicAftertouch(s.VoiceHandle, value)
		}
	}
}

// SetNoteExpression routes a per-note expression value to every active slot
// matching (port, channel, key, noteID).
func (vm *VoiceManager) SetNoteExpression(port, channel, key int, noteID int32, expression int32, value float64) {
	for i := range vm.slots {
		s := &vm.slots[i]
		if s.matches(port, channel, key, noteID) {
			vm.trace("setNoteExpression", s.VoiceHandle, expression, value)
			vm.responder.SetNoteExpression(s.VoiceHandle, expression, value)
		}
	}
}

// SetPolyphonicParameterModulation routes a per-voice parameter modulation
// value to every active slot matching (port, channel, key, noteID).
func (vm *VoiceManager) SetPolyphonicParameterModulation(port, channel, key int, noteID int32, paramID uint32, value float64) {
	for i := range vm.slots {
		s := &vm.slots[i]
		if s.matches(port, channel, key, noteID) {
			vm.trace("setVoicePolyphonicParameterModulation", s.VoiceHandle, paramID, value)
			vm.responder.SetVoicePolyphonicParameterModulation(s.VoiceHandle, paramID, value)
		}
	}
}

// SetMonophonicParameterModulation routes a group-wide parameter modulation
// value to every active slot in group on (port, channel) — the minimal
// reading of a "monophonic" modulation target: every voice currently
// sounding for that group on that channel, not just one.
func (vm *VoiceManager) SetMonophonicParameterModulation(port, channel, group int, paramID uint32, value float64) {
	for i := range vm.slots {
		s := &vm.slots[i]
		if !s.Active || s.PolyGroup != group {
			continue
		}
		if port != wildcard && s.Port != port {
			continue
		}
		if channel != wildcard && s.Channel != channel {
			continue
		}
		vm.trace("setVoiceMonophonicParameterModulation", s.VoiceHandle, paramID, value)
		vm.responder.SetVoiceMonophonicParameterModulation(s.VoiceHandle, paramID, value)
	}
}
