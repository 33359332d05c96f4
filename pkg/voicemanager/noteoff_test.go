package voicemanager

import "testing"

func TestNoteOffReleasesPolyVoice(t *testing.T) {
	vm, r, _ := newTestManager(4)
	vm.NoteOn(0, 0, 60, noSpecificNoteID, 100, 0)

	vm.NoteOff(0, 0, 60, noSpecificNoteID, 0)
	if len(r.released) != 1 {
		t.Errorf("expected 1 released voice, got %d", len(r.released))
	}
	if vm.TotalUsedVoices() != 1 {
		t.Errorf("expected slot to remain active until its own end-callback, got %d used", vm.TotalUsedVoices())
	}
}

func TestNoteOffUnderSustainHoldsVoice(t *testing.T) {
	vm, r, _ := newTestManager(4)
	vm.NoteOn(0, 0, 60, noSpecificNoteID, 100, 0)
	vm.UpdateSustainPedal(0, 0, true)

	vm.NoteOff(0, 0, 60, noSpecificNoteID, 0)
	if len(r.released) != 0 {
		t.Errorf("expected no release while sustain is held, got %d", len(r.released))
	}
	if vm.TotalUsedVoices() != 1 {
		t.Errorf("expected voice to remain active under sustain, got %d used", vm.TotalUsedVoices())
	}
}

func TestNoteOffNoteIDMismatchIsNoOp(t *testing.T) {
	vm, r, _ := newTestManager(4)
	vm.NoteOn(0, 1, 60, 173, 0.8, 0)

	vm.NoteOff(0, 1, 60, 188242, 0)
	if len(r.released) != 0 {
		t.Errorf("expected no release for a mismatched note id, got %d", len(r.released))
	}
	if vm.TotalUsedVoices() != 1 {
		t.Errorf("expected the voice to remain gated, got %d used", vm.TotalUsedVoices())
	}
}

func TestNoteOffPeelsStackedVoicesByNoteID(t *testing.T) {
	vm, r, _ := newTestManager(4)
	vm.NoteOn(0, 1, 60, 173, 0.8, 0)
	vm.NoteOn(0, 1, 60, 179, 0.8, 0)
	vm.NoteOn(0, 1, 60, 184, 0.8, 0)
	if vm.TotalUsedVoices() != 3 {
		t.Fatalf("expected 3 stacked voices, got %d", vm.TotalUsedVoices())
	}

	vm.NoteOff(0, 1, 60, 179, 0)
	if len(r.released) != 1 || r.released[0] != 2 {
		t.Fatalf("expected exactly the 179 voice released, got %v", r.released)
	}
	if vm.TotalUsedVoices() != 3 {
		t.Errorf("released voices stay active until their own end-callback, got %d used", vm.TotalUsedVoices())
	}
}

func TestNoteOffWildcardNoteIDReleasesAllStacked(t *testing.T) {
	vm, r, _ := newTestManager(4)
	vm.NoteOn(0, 1, 60, 173, 0.8, 0)
	vm.NoteOn(0, 1, 60, 179, 0.8, 0)
	vm.NoteOn(0, 1, 60, 184, 0.8, 0)

	vm.NoteOff(0, 1, 60, noSpecificNoteID, 0)
	if len(r.released) != 3 {
		t.Fatalf("expected wildcard off to release all 3 stacked voices, got %d", len(r.released))
	}
}

func TestNoteOffMonoReleasesWithoutRetriggerWhenNoOtherKeyHeld(t *testing.T) {
	vm, r, _ := newTestManager(4)
	vm.SetPlayMode(0, MonoNotes, MonoFeatures(FeatureOnReleaseToLatest))

	vm.NoteOn(0, 0, 60, noSpecificNoteID, 100, 0)
	vm.NoteOff(0, 0, 60, noSpecificNoteID, 0)

	if len(r.released) != 1 {
		t.Fatalf("expected the voice to release with an envelope, got %d releases (terminated=%v)", len(r.released), r.terminated)
	}
	if len(r.terminated) != 0 {
		t.Errorf("expected no termination when no other key is held, got %v", r.terminated)
	}
}

func TestNoteOffMonoUnderSustainStillHandsOffToHeldKey(t *testing.T) {
	vm, r, _ := newTestManager(4)
	vm.SetPlayMode(0, MonoNotes, MonoFeatures(FeatureOnReleaseToLatest))
	vm.UpdateSustainPedal(0, 0, true)

	vm.NoteOn(0, 0, 60, noSpecificNoteID, 100, 0)
	vm.NoteOn(0, 0, 64, noSpecificNoteID, 90, 0)
	if vm.TotalUsedVoices() != 1 {
		t.Fatalf("expected mono group to hold exactly one voice, got %d", vm.TotalUsedVoices())
	}

	// Key 60 is still physically held when 64 releases, so even under
	// sustain the group must terminate-and-retrigger onto 60 rather than
	// just falling back to being held by the pedal.
	vm.NoteOff(0, 0, 64, noSpecificNoteID, 0)
	if len(r.terminated) < 2 {
		t.Fatalf("expected at least 2 terminations (steal + hand-off), got %d", len(r.terminated))
	}
	if vm.TotalUsedVoices() != 1 {
		t.Errorf("expected the group to retrigger onto key 60, got %d used voices", vm.TotalUsedVoices())
	}
}

func TestNoteOffMonoTerminatesAndRetriggers(t *testing.T) {
	vm, r, _ := newTestManager(4)
	vm.SetPlayMode(0, MonoNotes, MonoFeatures(FeatureOnReleaseToLatest))

	vm.NoteOn(0, 0, 60, noSpecificNoteID, 100, 0)
	vm.NoteOn(0, 0, 64, noSpecificNoteID, 90, 0)
	if vm.TotalUsedVoices() != 1 {
		t.Fatalf("expected mono group to hold exactly one voice, got %d", vm.TotalUsedVoices())
	}

	vm.NoteOff(0, 0, 64, noSpecificNoteID, 0)
	if len(r.terminated) < 2 {
		t.Fatalf("expected at least 2 terminations (steal + release-retrigger), got %d", len(r.terminated))
	}
	if vm.TotalUsedVoices() != 1 {
		t.Errorf("expected mono retrigger onto key 60, got %d used voices", vm.TotalUsedVoices())
	}
}
