package voicemanager

// NoteOff runs the release pipeline (§4.3) for a physically released key.
// port, channel and noteID may each be wildcard/noSpecificNoteID to match
// broadly (a host note-id release matches by id alone, for instance); key is
// always a concrete value since NoteOff always names the key it releases.
func (vm *VoiceManager) NoteOff(port, channel, key int, noteID int32, velocity float32) {
	type target struct{ port, channel, group int }
	seen := make(map[target]bool)
	var targets []target
	add := func(p, c, g int) {
		t := target{p, c, g}
		if !seen[t] {
			seen[t] = true
			targets = append(targets, t)
		}
	}
	retrigger := make(map[target]bool)

	for i := range vm.slots {
		s := &vm.slots[i]
		if !s.matches(port, channel, key, noteID) || !s.Gated {
			continue
		}
		add(s.Port, s.Channel, s.PolyGroup)

		cfg := vm.guaranteeGroup(s.PolyGroup)
		sustained := vm.sustainOn[sustainKey{s.Port, s.Channel}]

		switch cfg.PlayMode {
		case PolyVoices:
			if sustained {
				s.Gated = false
				s.GatedDueToSustain = true
				continue
			}
			vm.trace("releaseVoice", s.VoiceHandle, velocity)
			vm.responder.ReleaseVoice(s.VoiceHandle, velocity)
			s.Gated = false
		case MonoNotes:
			if sustained {
				// Even under sustain, a MONO group must hand off to another
				// held key before it just falls back to being held by the
				// pedal alone.
				if vm.anyKeyHeldFor(s.Port, s.PolyGroup, s.Channel, s.Key, false) {
					vm.trace("terminateVoice", s.VoiceHandle)
					vm.responder.TerminateVoice(s.VoiceHandle)
					s.Gated = false
					retrigger[target{s.Port, s.Channel, s.PolyGroup}] = true
				} else {
					s.Gated = false
					s.GatedDueToSustain = true
				}
				continue
			}
			// Only terminate (and later retrigger) when another key is still
			// held in this group; otherwise the group is going silent and the
			// voice should simply release, same as a poly voice.
			if vm.anyKeyHeldFor(s.Port, s.PolyGroup, s.Channel, s.Key, false) {
				vm.trace("terminateVoice", s.VoiceHandle)
				vm.responder.TerminateVoice(s.VoiceHandle)
				retrigger[target{s.Port, s.Channel, s.PolyGroup}] = true
			} else {
				vm.trace("releaseVoice", s.VoiceHandle, velocity)
				vm.responder.ReleaseVoice(s.VoiceHandle, velocity)
				s.Gated = false
			}
		}
	}

	// A key's hold state lives in the key-state table independent of
	// whether a voice is still sounding it — a mono group's voice may
	// already have been stolen away by a later note-on while the key
	// stayed physically held. Resolve every group's key-state entry for
	// this key, not just the ones with a currently active slot.
	for k := range vm.keyState {
		if k.key != key {
			continue
		}
		if port != wildcard && k.port != port {
			continue
		}
		if channel != wildcard && k.channel != channel {
			continue
		}
		add(k.port, k.channel, k.group)
	}

	for _, tgt := range targets {
		ksKey := keyStateKey{tgt.port, tgt.channel, key, tgt.group}
		if vm.sustainOn[sustainKey{tgt.port, tgt.channel}] {
			if e, ok := vm.keyState[ksKey]; ok {
				e.HeldBySustain = true
				vm.keyState[ksKey] = e
			}
		} else {
			delete(vm.keyState, ksKey)
		}
		// A queued mono retrigger runs whether or not the released key's own
		// entry just became sustain-held — it is handing the group off to a
		// different, still-held key, not reconsidering this one.
		if retrigger[tgt] {
			vm.runMonoRetrigger(tgt.port, tgt.channel, tgt.group)
		}
	}
}
