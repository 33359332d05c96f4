package main

import (
	"fmt"
	"strings"
	"sync"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/justyntemme/voicemanager/internal/vmlog"
	ourmidi "github.com/justyntemme/voicemanager/pkg/midi"
	"github.com/justyntemme/voicemanager/pkg/voicemanager"
)

// excludedPatterns are virtual/system ports never auto-connected.
var excludedPatterns = []string{"Midi Through", "Through Port", "Dummy"}

const midiRescanInterval = 1000 * time.Millisecond

// MIDIWatcher bridges a live hardware MIDI input into VoiceManager calls. It
// handles hot-plug (device appears) and hot-unplug (device disappears)
// transparently and hands every decoded message to vm on the port 0 input.
type MIDIWatcher struct {
	mu           sync.Mutex
	drv          *rtmididrv.Driver
	inPort       drivers.In
	stopFn       func()
	connected    bool
	selectedName string
	lastRescanAt time.Time
	panicQueued  bool

	vm    *voicemanager.VoiceManager
	queue *ourmidi.EventQueue
}

// NewMIDIWatcher opens the rtmidi driver and binds the watcher to vm. Call
// Close when done.
func NewMIDIWatcher(vm *voicemanager.VoiceManager) (*MIDIWatcher, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("rtmididrv: %w", err)
	}
	return &MIDIWatcher{drv: drv, vm: vm, queue: ourmidi.NewEventQueue()}, nil
}

// Close shuts down the active MIDI connection and the rtmidi driver.
func (w *MIDIWatcher) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closeConn()
	w.drv.Close()
}

// Tick should be called on a regular interval from the main loop. It scans
// for devices, auto-connects to the first acceptable one, and detects
// disappearances.
func (w *MIDIWatcher) Tick() {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	if !w.lastRescanAt.IsZero() && now.Sub(w.lastRescanAt) < midiRescanInterval {
		return
	}
	w.lastRescanAt = now

	inputs := w.listInputs()

	if w.connected {
		for _, n := range inputs {
			if n == w.selectedName {
				return
			}
		}
		vmlog.Warn("midi device disappeared: %s", w.selectedName)
		w.closeConn()
		w.lastRescanAt = time.Time{}
		w.panicQueued = true
		return
	}

	if len(inputs) == 0 {
		return
	}
	if err := w.openByName(inputs[0]); err != nil {
		vmlog.Error("midi connect failed for %s: %v", inputs[0], err)
	}
}

func (w *MIDIWatcher) listInputs() []string {
	ins, err := w.drv.Ins()
	if err != nil {
		vmlog.Error("midi list inputs failed: %v", err)
		return nil
	}
	var names []string
	for _, in := range ins {
		name := in.String()
		excluded := false
		for _, pat := range excludedPatterns {
			if strings.Contains(strings.ToLower(name), strings.ToLower(pat)) {
				excluded = true
				break
			}
		}
		if !excluded {
			names = append(names, name)
		}
	}
	return names
}

func (w *MIDIWatcher) closeConn() {
	if w.stopFn != nil {
		w.stopFn()
		w.stopFn = nil
	}
	if w.inPort != nil {
		_ = w.inPort.Close()
		w.inPort = nil
	}
	w.connected = false
	w.selectedName = ""
}

func (w *MIDIWatcher) openByName(name string) error {
	ins, err := w.drv.Ins()
	if err != nil {
		return err
	}
	var found drivers.In
	for _, in := range ins {
		if in.String() == name {
			found = in
			break
		}
	}
	if found == nil {
		return fmt.Errorf("input %q not found", name)
	}
	if err := found.Open(); err != nil {
		return fmt.Errorf("open %q: %w", name, err)
	}

	stop, err := gomidi.ListenTo(found, w.handleMessage, gomidi.HandleError(func(listenErr error) {
		vmlog.Warn("midi listener error on %s: %v", name, listenErr)
		go func() {
			w.mu.Lock()
			defer w.mu.Unlock()
			if w.connected && w.selectedName == name {
				w.closeConn()
				w.lastRescanAt = time.Time{}
				w.panicQueued = true
			}
		}()
	}))
	if err != nil {
		_ = found.Close()
		return fmt.Errorf("listen %q: %w", name, err)
	}

	w.inPort = found
	w.stopFn = stop
	w.connected = true
	w.selectedName = name
	vmlog.Info("midi connected: %s", name)
	return nil
}

// vmPort is the single hardware input this watcher exposes.
const vmPort = 0

// handleMessage decodes one MIDI1 message and queues it for the audio render
// thread. It never touches vm directly: VoiceManager is single-threaded and
// this callback runs on rtmidi's own listener goroutine, concurrent with
// VoicePool.Render on the playback goroutine. ApplyPendingEvents, called
// from the render thread, is the only place vm is driven from here.
func (w *MIDIWatcher) handleMessage(msg gomidi.Message, _ int32) {
	var ch, key, vel uint8
	var val uint8
	var bend int16
	var absBend int16

	switch {
	case msg.GetNoteStart(&ch, &key, &vel):
		w.queue.Add(ourmidi.NoteOnEvent{
			BaseEvent: ourmidi.BaseEvent{EventChannel: ch},
			NoteNumber: key, Velocity: vel,
		})

	case msg.GetNoteEnd(&ch, &key):
		w.queue.Add(ourmidi.NoteOffEvent{
			BaseEvent: ourmidi.BaseEvent{EventChannel: ch},
			NoteNumber: key,
		})

	case msg.GetControlChange(&ch, &key, &val):
		w.queue.Add(ourmidi.ControlChangeEvent{
			BaseEvent: ourmidi.BaseEvent{EventChannel: ch},
			Controller: key, Value: val,
		})

	case msg.GetPitchBend(&ch, &bend, &absBend):
		w.queue.Add(ourmidi.PitchBendEvent{
			BaseEvent: ourmidi.BaseEvent{EventChannel: ch},
			Value:     bend,
		})

	case msg.GetAfterTouch(&ch, &val):
		w.queue.Add(ourmidi.ChannelPressureEvent{
			BaseEvent: ourmidi.BaseEvent{EventChannel: ch},
			Pressure:  val,
		})

	case msg.GetPolyAfterTouch(&ch, &key, &val):
		w.queue.Add(ourmidi.PolyPressureEvent{
			BaseEvent:  ourmidi.BaseEvent{EventChannel: ch},
			NoteNumber: key, Pressure: val,
		})
	}
}

// ApplyPendingEvents drains every MIDI event queued since the last call and
// feeds it to vm. Must only be called from the audio render thread: it is
// the sole point of entry into the otherwise-concurrent VoiceManager. A
// device disconnect detected on Tick's or the listener's own goroutine is
// recorded as a pending flag rather than acted on there, for the same
// reason.
func (w *MIDIWatcher) ApplyPendingEvents() {
	w.mu.Lock()
	panicked := w.panicQueued
	w.panicQueued = false
	w.mu.Unlock()
	if panicked {
		w.vm.AllSoundsOff()
	}

	events := w.queue.GetAllEvents()
	if len(events) == 0 {
		return
	}
	w.queue.Clear()

	for _, ev := range events {
		ch := int(ev.Channel())
		switch e := ev.(type) {
		case ourmidi.NoteOnEvent:
			w.vm.NoteOn(vmPort, ch, int(e.NoteNumber), -1, float32(e.Velocity)/127.0, 0)
		case ourmidi.NoteOffEvent:
			w.vm.NoteOff(vmPort, ch, int(e.NoteNumber), -1, 0)
		case ourmidi.ControlChangeEvent:
			if e.Controller == ourmidi.CCSustain {
				w.vm.UpdateSustainPedal(vmPort, ch, e.Value > 64)
			}
			w.vm.SetCC(vmPort, ch, int(e.Controller), int8(e.Value)-64)
		case ourmidi.PitchBendEvent:
			w.vm.SetPitchBend(vmPort, ch, uint16(int32(e.Value)+8192))
		case ourmidi.ChannelPressureEvent:
			w.vm.SetChannelPressure(vmPort, ch, int8(e.Pressure)-64)
		case ourmidi.PolyPressureEvent:
			w.vm.SetPolyphonicAftertouch(vmPort, ch, int(e.NoteNumber), int8(e.Pressure)-64)
		}
	}
}
