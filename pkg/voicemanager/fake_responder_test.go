package voicemanager

// fakeResponder is a minimal in-memory Responder/MonoResponder used by the
// package tests. Declared voice entries default to one voice in group 0
// unless a test overrides beginGroups; every declared, non-skipped entry is
// launched with a freshly minted integer handle.
type fakeResponder struct {
	endCallback func(v VoiceHandle)

	beginGroups []int // overrides the group assignment; every call declares one entry per element
	nextHandle  int

	terminated []int
	released   []int

	moveCalls    int
	retriggerLog []int32

	mpePitchBend map[int]uint16
	mpePressure  map[int]int8
	mpeTimbre    map[int]int8
	polyAfter    map[int]int8
	noteExpr     map[int][2]float64
	polyParamMod map[int]float64
	monoParamMod map[int]float64
}

func newFakeResponder() *fakeResponder {
	return &fakeResponder{
		mpePitchBend: make(map[int]uint16),
		mpePressure:  make(map[int]int8),
		mpeTimbre:    make(map[int]int8),
		polyAfter:    make(map[int]int8),
		noteExpr:     make(map[int][2]float64),
		polyParamMod: make(map[int]float64),
		monoParamMod: make(map[int]float64),
	}
}

func (f *fakeResponder) SetVoiceEndCallback(fn func(v VoiceHandle)) { f.endCallback = fn }

func (f *fakeResponder) BeginVoiceCreationTransaction(buf []VoiceBeginEntry, port, channel, key int, noteID int32, velocity float32) int {
	if len(f.beginGroups) == 0 {
		buf[0] = VoiceBeginEntry{PolyGroup: 0}
		return 1
	}
	for i, g := range f.beginGroups {
		buf[i] = VoiceBeginEntry{PolyGroup: g}
	}
	return len(f.beginGroups)
}

func (f *fakeResponder) InitializeMultipleVoices(voices int, instr []VoiceInitInstruction, out []VoiceInitEntry, port, channel, key int, noteID int32, velocity float32, retune float64) int {
	launched := 0
	for i := 0; i < voices; i++ {
		if instr[i] == InitSkip {
			continue
		}
		f.nextHandle++
		out[i] = VoiceInitEntry{Voice: f.nextHandle}
		launched++
	}
	return launched
}

func (f *fakeResponder) EndVoiceCreationTransaction(port, channel, key int, noteID int32, velocity float32) {
}

func (f *fakeResponder) RetriggerVoiceWithNewNoteID(v VoiceHandle, noteID int32, velocity float32) {
	f.retriggerLog = append(f.retriggerLog, noteID)
}

func (f *fakeResponder) MoveVoice(v VoiceHandle, port, channel, key int, retune float64) { f.moveCalls++ }
func (f *fakeResponder) MoveAndRetriggerVoice(v VoiceHandle, port, channel, key int, retune float64) {
	f.moveCalls++
}

func (f *fakeResponder) TerminateVoice(v VoiceHandle) {
	f.terminated = append(f.terminated, v.(int))
	if f.endCallback != nil {
		f.endCallback(v)
	}
}

func (f *fakeResponder) ReleaseVoice(v VoiceHandle, velocity float32) {
	f.released = append(f.released, v.(int))
}

func (f *fakeResponder) SetNoteExpression(v VoiceHandle, expression int32, value float64) {
	f.noteExpr[v.(int)] = [2]float64{float64(expression), value}
}
func (f *fakeResponder) SetVoicePolyphonicParameterModulation(v VoiceHandle, paramID uint32, value float64) {
	f.polyParamMod[v.(int)] = value
}
func (f *fakeResponder) SetVoiceMonophonicParameterModulation(v VoiceHandle, paramID uint32, value float64) {
	f.monoParamMod[v.(int)] = value
}
func (f *fakeResponder) SetPolyphonicAftertouch(v VoiceHandle, value int8) {
	f.polyAfter[v.(int)] = value
}
func (f *fakeResponder) SetVoiceMIDIMPEChannelPitchBend(v VoiceHandle, bend14bit uint16) {
	f.mpePitchBend[v.(int)] = bend14bit
}
func (f *fakeResponder) SetVoiceMIDIMPEChannelPressure(v VoiceHandle, pressure int8) {
	f.mpePressure[v.(int)] = pressure
}
func (f *fakeResponder) SetVoiceMIDIMPETimbre(v VoiceHandle, timbre int8) {
	f.mpeTimbre[v.(int)] = timbre
}

// fakeMonoResponder is the channel-broadcast collaborator.
type fakeMonoResponder struct {
	pitchBend map[int]uint16
	pressure  map[int]int8
	cc        map[[2]int]int8
}

func newFakeMonoResponder() *fakeMonoResponder {
	return &fakeMonoResponder{
		pitchBend: make(map[int]uint16),
		pressure:  make(map[int]int8),
		cc:        make(map[[2]int]int8),
	}
}

func (f *fakeMonoResponder) SetMIDIPitchBend(channel int, value14bit uint16) {
	f.pitchBend[channel] = value14bit
}
func (f *fakeMonoResponder) SetMIDIChannelPressure(channel int, value int8) {
	f.pressure[channel] = value
}
func (f *fakeMonoResponder) SetMIDI1CC(channel int, cc int, value int8) {
	f.cc[[2]int{channel, cc}] = value
}

func newTestManager(maxVoices int) (*VoiceManager, *fakeResponder, *fakeMonoResponder) {
	r := newFakeResponder()
	mr := newFakeMonoResponder()
	vm := NewVoiceManager(maxVoices, r, mr)
	return vm, r, mr
}
