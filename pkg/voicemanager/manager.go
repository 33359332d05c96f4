package voicemanager

// VoiceManager is the core voice-allocation and lifecycle state machine.
// It owns a fixed-size voice slot table, a key-state table, a lazily
// populated group registry, and per-channel controller caches, and drives
// a borrowed Responder/MonoResponder pair. All of its exported methods run
// synchronously to completion; see the package doc for the reentrancy ban.
type VoiceManager struct {
	responder     Responder
	monoResponder MonoResponder

	slots           []VoiceSlot
	usedVoices      map[int]int
	totalUsedVoices int

	groups map[int]*GroupConfig

	keyState map[keyStateKey]KeyStateEntry

	// Per-channel controller caches (§3).
	lastPitchBend14  [16]int16 // signed offset from center 8192
	globalPitchBend  int16     // MPE global-channel bend, cached separately
	ccCache          [16][129]uint8
	sustainOn        map[sustainKey]bool

	mostRecentVoiceCounter  uint64
	mostRecentTransactionID uint64

	repeatedKeyMode RepeatedKeyMode
	dialect         Dialect
	mpeGlobalChannel int
	mpeTimbreCC      uint8

	// Fixed-size scratch buffers, sized to len(slots), reused every event
	// so the allocation pipeline never touches the heap on the audio path.
	beginBuf []VoiceBeginEntry
	instrBuf []VoiceInitInstruction
	outBuf   []VoiceInitEntry

	// Tracer, when non-nil, is invoked once per dispatched Responder/
	// MonoResponder operation — the Go analog of the original's optional
	// DebugSupport collaborator. It is never required for correctness.
	Tracer func(op string, args ...any)
}

// NewVoiceManager creates a VoiceManager with maxVoices fixed slots, bound
// to responder and monoResponder for the lifetime of the manager. Group 0
// is created with default configuration.
func NewVoiceManager(maxVoices int, responder Responder, monoResponder MonoResponder) *VoiceManager {
	if maxVoices <= 0 {
		panic("voicemanager: maxVoices must be positive")
	}
	vm := &VoiceManager{
		responder:        responder,
		monoResponder:    monoResponder,
		slots:            make([]VoiceSlot, maxVoices),
		usedVoices:       make(map[int]int),
		groups:           make(map[int]*GroupConfig),
		keyState:         make(map[keyStateKey]KeyStateEntry),
		sustainOn:        make(map[sustainKey]bool),
		mpeGlobalChannel: 0,
		mpeTimbreCC:      74,
		beginBuf:         make([]VoiceBeginEntry, maxVoices),
		instrBuf:         make([]VoiceInitInstruction, maxVoices),
		outBuf:           make([]VoiceInitEntry, maxVoices),
	}
	vm.guaranteeGroup(0)
	responder.SetVoiceEndCallback(vm.onVoiceEnd)
	return vm
}

// MaxVoices returns the fixed size of the voice slot table.
func (vm *VoiceManager) MaxVoices() int { return len(vm.slots) }

// TotalUsedVoices returns the number of currently active slots.
func (vm *VoiceManager) TotalUsedVoices() int { return vm.totalUsedVoices }

// UsedVoices returns the number of active slots in a given polyphony group.
func (vm *VoiceManager) UsedVoices(group int) int { return vm.usedVoices[group] }

// guaranteeGroup idempotently inserts a default-configured group if absent
// and returns its configuration. Every operation that touches a group must
// call this first.
func (vm *VoiceManager) guaranteeGroup(group int) *GroupConfig {
	cfg, ok := vm.groups[group]
	if !ok {
		cfg = &GroupConfig{
			VoiceLimit:       len(vm.slots),
			PlayMode:         PolyVoices,
			MonoFeatures:     MonoFeatures(FeatureNone),
			StealingPriority: StealOldest,
		}
		vm.groups[group] = cfg
	}
	return cfg
}

// SetPolyphonyGroupVoiceLimit sets the maximum number of simultaneously
// active voices in group. A limit lower than the group's current used-voice
// count takes no immediate action; it only constrains future allocations.
func (vm *VoiceManager) SetPolyphonyGroupVoiceLimit(group, limit int) {
	cfg := vm.guaranteeGroup(group)
	cfg.VoiceLimit = limit
}

// SetPlayMode sets the play mode and mono feature flags for group. Changing
// a group's mode mid-performance is legal and takes effect on the next
// allocation into that group.
func (vm *VoiceManager) SetPlayMode(group int, mode PlayMode, features MonoFeatures) {
	cfg := vm.guaranteeGroup(group)
	cfg.PlayMode = mode
	cfg.MonoFeatures = features
}

// SetStealingPriorityMode sets which candidate a stealing pass in group
// prefers.
func (vm *VoiceManager) SetStealingPriorityMode(group int, priority StealingPriority) {
	cfg := vm.guaranteeGroup(group)
	cfg.StealingPriority = priority
}

// SetRepeatedKeyMode selects whether a repeated note-on stacks a new voice
// (MultiVoice) or retriggers the existing one in place (Piano).
func (vm *VoiceManager) SetRepeatedKeyMode(mode RepeatedKeyMode) { vm.repeatedKeyMode = mode }

// SetDialect selects the Router's MIDI dialect.
func (vm *VoiceManager) SetDialect(d Dialect) { vm.dialect = d }

// SetMPEGlobalChannel sets the channel number treated as the MPE master
// channel (default 0).
func (vm *VoiceManager) SetMPEGlobalChannel(channel int) { vm.mpeGlobalChannel = channel }

// SetMPETimbreCC sets the CC number routed as MPE timbre (default 74, the
// MPE specification's "third dimension" default).
func (vm *VoiceManager) SetMPETimbreCC(cc uint8) { vm.mpeTimbreCC = cc }

func (vm *VoiceManager) nextVoiceCounter() uint64 {
	vm.mostRecentVoiceCounter++
	return vm.mostRecentVoiceCounter
}

func (vm *VoiceManager) nextTransactionID() uint64 {
	vm.mostRecentTransactionID++
	return vm.mostRecentTransactionID
}

func (vm *VoiceManager) trace(op string, args ...any) {
	if vm.Tracer != nil {
		vm.Tracer(op, args...)
	}
}

// onVoiceEnd is the callback registered with the Responder. It is the only
// code path that deactivates a slot: it finds every slot holding v,
// decrements that slot's group's used-voice count and the global total, and
// clears Active. All other fields of a deactivated slot become don't-care.
func (vm *VoiceManager) onVoiceEnd(v VoiceHandle) {
	for i := range vm.slots {
		s := &vm.slots[i]
		if !s.Active || s.VoiceHandle != v {
			continue
		}
		vm.usedVoices[s.PolyGroup]--
		vm.totalUsedVoices--
		s.Active = false
		s.VoiceHandle = nil
		s.Gated = false
		s.GatedDueToSustain = false
	}
}

// findEmptySlot returns the index of the first inactive slot, or -1.
func (vm *VoiceManager) findEmptySlot() int {
	for i := range vm.slots {
		if !vm.slots[i].Active {
			return i
		}
	}
	return -1
}
