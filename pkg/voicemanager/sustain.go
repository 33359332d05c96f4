package voicemanager

// UpdateSustainPedal applies a sustain pedal transition on (port, channel)
// (§4.4).
func (vm *VoiceManager) UpdateSustainPedal(port, channel int, on bool) {
	sk := sustainKey{port, channel}
	if on == vm.sustainOn[sk] {
		return
	}
	vm.sustainOn[sk] = on
	if on {
		return
	}

	// Falling edge: every slot held only by the pedal must now actually
	// release (POLY) or terminate-and-retrigger (MONO).
	type pending struct {
		port, group int
	}
	var monoGroups []pending
	seenMono := make(map[pending]bool)

	for i := range vm.slots {
		s := &vm.slots[i]
		if !s.Active || s.Port != port || s.Channel != channel || !s.GatedDueToSustain {
			continue
		}

		cfg := vm.guaranteeGroup(s.PolyGroup)
		key := keyStateKey{s.Port, s.Channel, s.Key, s.PolyGroup}

		switch cfg.PlayMode {
		case PolyVoices:
			vm.trace("releaseVoice", s.VoiceHandle, float32(0))
			vm.responder.ReleaseVoice(s.VoiceHandle, 0)
			s.GatedDueToSustain = false
			delete(vm.keyState, key)

		case MonoNotes:
			p := pending{s.Port, s.PolyGroup}
			vm.trace("terminateVoice", s.VoiceHandle)
			vm.responder.TerminateVoice(s.VoiceHandle)
			delete(vm.keyState, key)
			if !seenMono[p] {
				seenMono[p] = true
				monoGroups = append(monoGroups, p)
			}
		}
	}

	// Purge any remaining sustain-held key-state entries on this channel;
	// the deletes above cover the common case, this is the final sweep.
	for k, e := range vm.keyState {
		if k.port == port && k.channel == channel && e.HeldBySustain {
			delete(vm.keyState, k)
		}
	}

	for _, p := range monoGroups {
		vm.runMonoRetrigger(p.port, channel, p.group)
	}
}
