package main

import (
	"math"

	"github.com/justyntemme/voicemanager/pkg/dsp/envelope"
	"github.com/justyntemme/voicemanager/pkg/dsp/oscillator"
	"github.com/justyntemme/voicemanager/pkg/midi"
	"github.com/justyntemme/voicemanager/pkg/voicemanager"
)

// toneVoice is one oscillator+envelope pair in the fixed voice pool.
type toneVoice struct {
	id       int
	osc      *oscillator.Oscillator
	env      *envelope.ADSR
	active   bool
	baseFreq float64
}

// VoicePool implements voicemanager.Responder and voicemanager.MonoResponder
// against a fixed pool of additive sine oscillators. It is the demo
// tone-generator wired into cmd/vmhost; a real plugin host would replace it
// with its own oscillator bank.
type VoicePool struct {
	sampleRate float64
	voices     []*toneVoice
	endCB      func(v voicemanager.VoiceHandle)

	pitchBendSemitones float64
	tuningA4           float64
}

// NewVoicePool allocates n idle tone voices at the given sample rate.
func NewVoicePool(n int, sampleRate float64) *VoicePool {
	p := &VoicePool{
		sampleRate:         sampleRate,
		voices:             make([]*toneVoice, n),
		pitchBendSemitones: 2.0,
		tuningA4:           440.0,
	}
	for i := range p.voices {
		p.voices[i] = &toneVoice{
			id:  i,
			osc: oscillator.New(sampleRate),
			env: envelope.New(sampleRate),
		}
	}
	return p
}

// Render sums every active voice into buf, advancing their oscillators and
// envelopes by len(buf) samples, and retires voices whose envelope has
// finished releasing via the registered end callback.
func (p *VoicePool) Render(buf []float32) {
	for i := range buf {
		buf[i] = 0
	}
	for _, v := range p.voices {
		if !v.active {
			continue
		}
		for i := range buf {
			buf[i] += v.osc.Sine() * v.env.Next() * 0.2
		}
		if !v.env.IsActive() {
			v.active = false
			if p.endCB != nil {
				p.endCB(v.id)
			}
		}
	}
}

func (p *VoicePool) freeVoice() *toneVoice {
	for _, v := range p.voices {
		if !v.active {
			return v
		}
	}
	return nil
}

func (p *VoicePool) find(v voicemanager.VoiceHandle) *toneVoice {
	id, ok := v.(int)
	if !ok || id < 0 || id >= len(p.voices) {
		return nil
	}
	return p.voices[id]
}

// --- voicemanager.Responder ---

func (p *VoicePool) SetVoiceEndCallback(fn func(v voicemanager.VoiceHandle)) { p.endCB = fn }

func (p *VoicePool) BeginVoiceCreationTransaction(buf []voicemanager.VoiceBeginEntry, port, channel, key int, noteID int32, velocity float32) int {
	buf[0] = voicemanager.VoiceBeginEntry{PolyGroup: channel}
	return 1
}

func (p *VoicePool) InitializeMultipleVoices(voices int, instr []voicemanager.VoiceInitInstruction, out []voicemanager.VoiceInitEntry, port, channel, key int, noteID int32, velocity float32, retune float64) int {
	launched := 0
	for i := 0; i < voices; i++ {
		if instr[i] == voicemanager.InitSkip {
			continue
		}
		v := p.freeVoice()
		if v == nil {
			continue
		}
		freq := midi.NoteToFrequency(uint8(key), p.tuningA4) * math.Pow(2, retune/12.0)
		v.baseFreq = freq
		v.osc.Reset()
		v.osc.SetFrequency(freq)
		v.env.Reset()
		v.env.Trigger()
		v.active = true
		out[i] = voicemanager.VoiceInitEntry{Voice: v.id}
		launched++
	}
	return launched
}

func (p *VoicePool) EndVoiceCreationTransaction(port, channel, key int, noteID int32, velocity float32) {}

func (p *VoicePool) RetriggerVoiceWithNewNoteID(v voicemanager.VoiceHandle, noteID int32, velocity float32) {
	if tv := p.find(v); tv != nil {
		tv.env.Trigger()
	}
}

func (p *VoicePool) MoveVoice(v voicemanager.VoiceHandle, port, channel, key int, retune float64) {
	if tv := p.find(v); tv != nil {
		tv.baseFreq = midi.NoteToFrequency(uint8(key), p.tuningA4) * math.Pow(2, retune/12.0)
		tv.osc.SetFrequency(tv.baseFreq)
	}
}

func (p *VoicePool) MoveAndRetriggerVoice(v voicemanager.VoiceHandle, port, channel, key int, retune float64) {
	p.MoveVoice(v, port, channel, key, retune)
	if tv := p.find(v); tv != nil {
		tv.env.Trigger()
	}
}

func (p *VoicePool) TerminateVoice(v voicemanager.VoiceHandle) {
	tv := p.find(v)
	if tv == nil {
		return
	}
	tv.env.Reset()
	tv.active = false
	if p.endCB != nil {
		p.endCB(v)
	}
}

func (p *VoicePool) ReleaseVoice(v voicemanager.VoiceHandle, velocity float32) {
	if tv := p.find(v); tv != nil {
		tv.env.Release()
	}
}

func (p *VoicePool) SetNoteExpression(v voicemanager.VoiceHandle, expression int32, value float64) {}

func (p *VoicePool) SetVoicePolyphonicParameterModulation(v voicemanager.VoiceHandle, paramID uint32, value float64) {
}

func (p *VoicePool) SetVoiceMonophonicParameterModulation(v voicemanager.VoiceHandle, paramID uint32, value float64) {
}

func (p *VoicePool) SetPolyphonicAftertouch(v voicemanager.VoiceHandle, value int8) {}

func (p *VoicePool) SetVoiceMIDIMPEChannelPitchBend(v voicemanager.VoiceHandle, bend14bit uint16) {
	tv := p.find(v)
	if tv == nil {
		return
	}
	semis := (float64(bend14bit) - 8192.0) / 8192.0 * p.pitchBendSemitones
	tv.osc.SetFrequency(tv.baseFreq * math.Pow(2, semis/12.0))
}

func (p *VoicePool) SetVoiceMIDIMPEChannelPressure(v voicemanager.VoiceHandle, pressure int8) {}
func (p *VoicePool) SetVoiceMIDIMPETimbre(v voicemanager.VoiceHandle, timbre int8)            {}

// --- voicemanager.MonoResponder ---

func (p *VoicePool) SetMIDIPitchBend(channel int, value14bit uint16) {}
func (p *VoicePool) SetMIDIChannelPressure(channel int, value int8)  {}
func (p *VoicePool) SetMIDI1CC(channel int, cc int, value int8)      {}
