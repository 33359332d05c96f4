package voicemanager

// NoteOn runs the allocation pipeline (§4.2) for a physically pressed key.
// noteID is noSpecificNoteID (-1) for a plain MIDI1-style event. It returns
// true iff at least one voice was placed, or a piano-mode retrigger fired.
func (vm *VoiceManager) NoteOn(port, channel, key int, noteID int32, velocity float32, retune float64) bool {
	if vm.repeatedKeyMode == Piano {
		if vm.pianoRetrigger(port, channel, key, noteID, velocity) {
			return true
		}
	}

	vm.trace("beginVoiceCreationTransaction", port, channel, key, noteID, velocity)
	V := vm.responder.BeginVoiceCreationTransaction(vm.beginBuf, port, channel, key, noteID, velocity)
	if V == 0 {
		vm.trace("endVoiceCreationTransaction", port, channel, key, noteID, velocity)
		vm.responder.EndVoiceCreationTransaction(port, channel, key, noteID, velocity)
		return false
	}
	begin := vm.beginBuf[:V]

	vm.stealForPolyGroups(begin)
	vm.stealForMonoGroups(begin)

	vm.primeControllerState(channel)

	instr := vm.instrBuf[:V]
	for i := range instr {
		instr[i] = InitDefault
	}
	out := vm.outBuf[:V]
	vm.trace("initializeMultipleVoices", V, port, channel, key, noteID, velocity, retune)
	L := vm.responder.InitializeMultipleVoices(V, instr, out, port, channel, key, noteID, velocity, retune)

	txID := vm.nextTransactionID()
	placed := vm.assignLaunchedVoices(begin, out, L, port, channel, key, noteID, velocity, txID)

	vm.trace("endVoiceCreationTransaction", port, channel, key, noteID, velocity)
	vm.responder.EndVoiceCreationTransaction(port, channel, key, noteID, velocity)

	return placed > 0
}

// pianoRetrigger implements the repeated-key PIANO short circuit: any slot
// already sounding at (port, channel, key) — regardless of group or note id
// — is retriggered in place instead of going through allocation. The slot
// now answers to noteID, the incoming event's note id, not whatever note id
// launched it originally.
func (vm *VoiceManager) pianoRetrigger(port, channel, key int, noteID int32, velocity float32) bool {
	found := false
	for i := range vm.slots {
		s := &vm.slots[i]
		if !s.Active || s.Port != port || s.Channel != channel || s.Key != key {
			continue
		}
		found = true
		vm.trace("retriggerVoiceWithNewNoteID", s.VoiceHandle, noteID, velocity)
		vm.responder.RetriggerVoiceWithNewNoteID(s.VoiceHandle, noteID, velocity)
		s.NoteID = noteID
		s.Gated = true
		s.VoiceCounter = vm.nextVoiceCounter()
		s.TransactionID = vm.nextTransactionID()
	}
	return found
}

// stealForPolyGroups runs the per-group stealing loop (§4.2 step 3) for
// every distinct POLY group referenced by begin, in order of first
// appearance.
func (vm *VoiceManager) stealForPolyGroups(begin []VoiceBeginEntry) {
	seen := make(map[int]bool, len(begin))
	for _, e := range begin {
		g := e.PolyGroup
		if seen[g] {
			continue
		}
		seen[g] = true

		cfg := vm.guaranteeGroup(g)
		if cfg.PlayMode != PolyVoices {
			continue
		}

		creatingCount := 0
		for _, e2 := range begin {
			if e2.PolyGroup == g {
				creatingCount++
			}
		}

		groupFree := max(0, cfg.VoiceLimit-vm.usedVoices[g])
		globalFree := len(vm.slots) - vm.totalUsedVoices
		voicesFree := min(groupFree, globalFree)
		toSteal := max(creatingCount-voicesFree, 0)
		crossGroup := groupFree > 0 && globalFree == 0

		for toSteal > 0 {
			victim := vm.findStealableVoice(g, cfg.StealingPriority, crossGroup)
			if victim == -1 {
				break
			}
			toSteal -= vm.terminateVoiceAndSiblings(victim)
		}
	}
}

// stealForMonoGroups terminates every active voice in every distinct MONO
// group the batch touches (§4.2 step 4).
func (vm *VoiceManager) stealForMonoGroups(begin []VoiceBeginEntry) {
	seen := make(map[int]bool, len(begin))
	for _, e := range begin {
		g := e.PolyGroup
		if seen[g] {
			continue
		}
		seen[g] = true
		if vm.guaranteeGroup(g).PlayMode == MonoNotes {
			// TODO: this always terminates and reallocates fresh voices for a
			// mono group, even when the incoming note could instead glide the
			// already-sounding voice via MoveVoice/MoveAndRetriggerVoice. No
			// legato mode exists yet to choose between the two.
			vm.terminateAllInGroup(g)
		}
	}
}

// primeControllerState re-sends the channel's cached pitch-bend and CC
// values to the Responder/MonoResponder before new voices are initialized,
// so they inherit the current controller snapshot (§4.2 step 5).
func (vm *VoiceManager) primeControllerState(channel int) {
	if vm.lastPitchBend14[channel] != 0 {
		raw := uint16(int32(vm.lastPitchBend14[channel]) + 8192)
		vm.trace("setMIDIPitchBend", channel, raw)
		vm.monoResponder.SetMIDIPitchBend(channel, raw)
	}
	for cc, val := range vm.ccCache[channel] {
		if val != 0 {
			vm.trace("setMIDI1CC", channel, cc, val)
			vm.monoResponder.SetMIDI1CC(channel, cc, int8(val))
		}
	}
}

// assignLaunchedVoices claims L launched entries out of V declared ones
// (out[i].Voice is non-nil for a launched entry) into empty table slots, in
// table order. Entries are claimed from the end of the declared range
// downward, matching the order the original init instructions were
// requested in. It writes a KeyStateEntry for each placed voice and bumps
// the per-group and global used-voice counters. Returns the number placed.
func (vm *VoiceManager) assignLaunchedVoices(begin []VoiceBeginEntry, out []VoiceInitEntry, L int, port, channel, key int, noteID int32, velocity float32, txID uint64) int {
	placed := 0
	nextEntry := len(out) - 1

	for slotIdx := range vm.slots {
		if placed == L {
			break
		}
		if vm.slots[slotIdx].Active {
			continue
		}
		for nextEntry >= 0 && out[nextEntry].Voice == nil {
			nextEntry--
		}
		if nextEntry < 0 {
			break
		}

		group := begin[nextEntry].PolyGroup
		handle := out[nextEntry].Voice
		nextEntry--

		s := &vm.slots[slotIdx]
		s.Active = true
		s.VoiceHandle = handle
		s.Port = port
		s.Channel = channel
		s.Key = key
		s.NoteID = noteID
		s.PolyGroup = group
		s.VoiceCounter = vm.nextVoiceCounter()
		s.TransactionID = txID
		s.Gated = true
		s.GatedDueToSustain = false

		vm.keyState[keyStateKey{port, channel, key, group}] = KeyStateEntry{
			TransactionID:     txID,
			InceptionVelocity: velocity,
			HeldBySustain:     false,
		}

		vm.usedVoices[group]++
		vm.totalUsedVoices++
		placed++
	}

	// out is a reused scratch buffer: reset it so entries the next
	// transaction does not launch read as the zero value, not a stale handle.
	for i := range out {
		out[i] = VoiceInitEntry{}
	}

	return placed
}
