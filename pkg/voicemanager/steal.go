package voicemanager

import "math"

// findStealableVoice selects one victim slot for group under priority p.
// When crossGroup is true every active slot is a candidate regardless of
// its group; otherwise only slots in group are considered.
//
// Candidates are partitioned into gated (Gated or GatedDueToSustain) and
// non-gated. Within each partition the ranking key depends on p: OLDEST
// ranks by the lowest voice_counter, HIGHEST by the highest key, LOWEST by
// the lowest key. A non-gated winner is always preferred over a gated one —
// stealing a releasing or fading voice beats stealing one still held down.
// Returns -1 if no active slot qualifies.
func (vm *VoiceManager) findStealableVoice(group int, p StealingPriority, crossGroup bool) int {
	gatedIdx, nonGatedIdx := -1, -1
	var gatedRank, nonGatedRank int64
	if p == StealHighest {
		gatedRank, nonGatedRank = math.MinInt64, math.MinInt64
	} else {
		gatedRank, nonGatedRank = math.MaxInt64, math.MaxInt64
	}

	for i := range vm.slots {
		s := &vm.slots[i]
		if !s.Active {
			continue
		}
		if !crossGroup && s.PolyGroup != group {
			continue
		}

		var rank int64
		switch p {
		case StealOldest:
			rank = int64(s.VoiceCounter)
		case StealHighest, StealLowest:
			rank = int64(s.Key)
		}

		gated := s.Gated || s.GatedDueToSustain
		if gated {
			if gatedIdx == -1 || rankBeats(p, rank, gatedRank) {
				gatedIdx = i
				gatedRank = rank
			}
		} else {
			if nonGatedIdx == -1 || rankBeats(p, rank, nonGatedRank) {
				nonGatedIdx = i
				nonGatedRank = rank
			}
		}
	}

	if nonGatedIdx != -1 {
		return nonGatedIdx
	}
	return gatedIdx
}

// rankBeats reports whether candidate improves on current under priority p.
func rankBeats(p StealingPriority, candidate, current int64) bool {
	if p == StealHighest {
		return candidate > current
	}
	return candidate < current
}

// terminateVoiceAndSiblings terminates the slot at index victim and every
// other active slot sharing its transaction id ("transaction-coherent
// stealing": voices created together die together). It relies entirely on
// the registered end-callback to clear slot state; the number returned is
// the number of TerminateVoice calls issued.
func (vm *VoiceManager) terminateVoiceAndSiblings(victim int) int {
	tx := vm.slots[victim].TransactionID
	terminated := 0
	for i := range vm.slots {
		s := &vm.slots[i]
		if !s.Active || s.TransactionID != tx {
			continue
		}
		handle := s.VoiceHandle
		vm.trace("terminateVoice", handle)
		vm.responder.TerminateVoice(handle)
		terminated++
	}
	return terminated
}

// terminateAllInGroup terminates every currently active voice in group
// (mono stealing, §4.2 step 4).
func (vm *VoiceManager) terminateAllInGroup(group int) {
	for i := range vm.slots {
		s := &vm.slots[i]
		if !s.Active || s.PolyGroup != group {
			continue
		}
		handle := s.VoiceHandle
		vm.trace("terminateVoice", handle)
		vm.responder.TerminateVoice(handle)
	}
}
