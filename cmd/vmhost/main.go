// Command vmhost is a reference host: it binds a live hardware MIDI input to
// a voicemanager.VoiceManager driving a small additive-sine voice pool, and
// plays the result through the system's default audio output. It exists to
// exercise the voicemanager package end to end, not as a production
// instrument.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/justyntemme/voicemanager/internal/vmlog"
	"github.com/justyntemme/voicemanager/pkg/voicemanager"
)

const maxVoices = 16

func main() {
	vmlog.SetLevel(vmlog.LogLevelInfo)

	pool := NewVoicePool(maxVoices, sampleRate)
	vm := voicemanager.NewVoiceManager(maxVoices, pool, pool)
	vm.SetRepeatedKeyMode(voicemanager.MultiVoice)

	watcher, err := NewMIDIWatcher(vm)
	if err != nil {
		vmlog.Error("midi init failed: %v", err)
		os.Exit(1)
	}

	engine, err := NewAudioEngine(pool, watcher)
	if err != nil {
		vmlog.Error("audio init failed: %v", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	vmlog.Info("vmhost running, waiting for a MIDI input device")
	if err := engine.Run(ctx); err != nil {
		vmlog.Error("engine stopped: %v", err)
		os.Exit(1)
	}
}
