package voicemanager

// runMonoRetrigger is the Mono Retrigger Chooser (§4.5). It runs after a
// mono-group voice has already been terminated or released away, and tries
// to bring the group back to life on the best remaining held key.
//
// The search is two-pass: first only keys held by a physical press (not
// merely by the sustain pedal) are considered; if none qualify, the pedal-
// held keys are allowed in too. Within a pass, "best" depends on the
// group's MonoFeatures: OnReleaseToLatest picks the highest transaction id
// (the most recently pressed), OnReleaseToHighest/ToLowest pick by key
// number. A group with FeatureNone does not retrigger.
func (vm *VoiceManager) runMonoRetrigger(port, channel, group int) {
	cfg := vm.guaranteeGroup(group)
	if cfg.MonoFeatures == MonoFeatures(FeatureNone) {
		return
	}

	key, entry, ok := vm.findBestKey(port, channel, group, false)
	if !ok {
		key, entry, ok = vm.findBestKey(port, channel, group, true)
	}
	if !ok {
		return
	}

	vm.allocateRestricted(port, channel, key, group, entry.InceptionVelocity)
}

// findBestKey scans the key-state table for the best remaining held key in
// (port, channel, group). allowSustainHeld controls whether pedal-only held
// keys are eligible candidates.
func (vm *VoiceManager) findBestKey(port, channel, group int, allowSustainHeld bool) (int, KeyStateEntry, bool) {
	cfg := vm.guaranteeGroup(group)

	found := false
	var bestKey int
	var bestEntry KeyStateEntry

	for k, e := range vm.keyState {
		if k.port != port || k.channel != channel || k.group != group {
			continue
		}
		if e.HeldBySustain && !allowSustainHeld {
			continue
		}

		switch {
		case !found:
			found, bestKey, bestEntry = true, k.key, e
		case cfg.MonoFeatures.Has(FeatureOnReleaseToLatest):
			if e.TransactionID > bestEntry.TransactionID {
				bestKey, bestEntry = k.key, e
			}
		case cfg.MonoFeatures.Has(FeatureOnReleaseToHighest):
			if k.key > bestKey {
				bestKey, bestEntry = k.key, e
			}
		case cfg.MonoFeatures.Has(FeatureOnReleaseToLowest):
			if k.key < bestKey {
				bestKey, bestEntry = k.key, e
			}
		}
	}

	return bestKey, bestEntry, found
}

// allocateRestricted runs a narrowed allocation for the mono retrigger
// chooser: a single voice-creation transaction targeting exactly group,
// skipping the piano-retrigger check, the stealing loop and the mono-steal
// step that the full NoteOn pipeline performs — the mono voice being
// retriggered onto was already freed by the caller.
func (vm *VoiceManager) allocateRestricted(port, channel, key, group int, velocity float32) {
	vm.trace("beginVoiceCreationTransaction", port, channel, key, noSpecificNoteID, velocity)
	V := vm.responder.BeginVoiceCreationTransaction(vm.beginBuf, port, channel, key, noSpecificNoteID, velocity)
	if V == 0 {
		vm.trace("endVoiceCreationTransaction", port, channel, key, noSpecificNoteID, velocity)
		vm.responder.EndVoiceCreationTransaction(port, channel, key, noSpecificNoteID, velocity)
		return
	}
	begin := vm.beginBuf[:V]

	instr := vm.instrBuf[:V]
	for i := range instr {
		if begin[i].PolyGroup != group {
			instr[i] = InitSkip
		} else {
			instr[i] = InitDefault
		}
	}

	out := vm.outBuf[:V]
	vm.trace("initializeMultipleVoices", V, port, channel, key, noSpecificNoteID, velocity)
	L := vm.responder.InitializeMultipleVoices(V, instr, out, port, channel, key, noSpecificNoteID, velocity, 0)

	txID := vm.nextTransactionID()
	vm.assignLaunchedVoices(begin, out, L, port, channel, key, noSpecificNoteID, velocity, txID)

	vm.trace("endVoiceCreationTransaction", port, channel, key, noSpecificNoteID, velocity)
	vm.responder.EndVoiceCreationTransaction(port, channel, key, noSpecificNoteID, velocity)
}

// anyKeyHeldFor reports whether some key-state cell other than (exceptChannel,
// exceptKey) is currently held in (port, group), on any channel, including
// other keys on exceptChannel itself. includeHeldBySustain
// controls whether pedal-only holds count; callers in this package always
// pass false, matching the decision that a sustained key alone does not
// keep a mono group from being considered free for reallocation elsewhere.
func (vm *VoiceManager) anyKeyHeldFor(port, group, exceptChannel, exceptKey int, includeHeldBySustain bool) bool {
	for k, e := range vm.keyState {
		if k.port != port || k.group != group {
			continue
		}
		if k.channel == exceptChannel && k.key == exceptKey {
			continue
		}
		if e.HeldBySustain && !includeHeldBySustain {
			continue
		}
		return true
	}
	return false
}
