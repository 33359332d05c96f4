package voicemanager

// AllSoundsOff hard-terminates every active voice immediately (§4.9). Slots
// free as their end-callbacks arrive, same as any other termination.
func (vm *VoiceManager) AllSoundsOff() {
	for i := range vm.slots {
		s := &vm.slots[i]
		if !s.Active {
			continue
		}
		vm.trace("terminateVoice", s.VoiceHandle)
		vm.responder.TerminateVoice(s.VoiceHandle)
	}
}

// AllNotesOff releases every active voice as if its key had been let go
// with zero velocity (§4.9). Slots stay active, sounding through their
// release envelope, until their own end-callbacks arrive.
func (vm *VoiceManager) AllNotesOff() {
	for i := range vm.slots {
		s := &vm.slots[i]
		if !s.Active {
			continue
		}
		vm.trace("releaseVoice", s.VoiceHandle, float32(0))
		vm.responder.ReleaseVoice(s.VoiceHandle, 0)
		s.Gated = false
	}
}
