package main

import (
	"context"
	"io"
	"math"
	"time"

	"github.com/ebitengine/oto/v3"
	"golang.org/x/sync/errgroup"

	"github.com/justyntemme/voicemanager/internal/vmlog"
)

const (
	sampleRate   = 48000
	channelCount = 2
	renderFrames = 256
)

// voiceReader is an io.Reader adapter that pulls rendered audio from a
// VoicePool on demand, the shape oto.NewPlayer expects.
type voiceReader struct {
	pool    *VoicePool
	watcher *MIDIWatcher
	mono    []float32
	pcm     []byte
}

func newVoiceReader(pool *VoicePool, watcher *MIDIWatcher) *voiceReader {
	return &voiceReader{
		pool:    pool,
		watcher: watcher,
		mono:    make([]float32, renderFrames),
		pcm:     make([]byte, renderFrames*channelCount*2),
	}
}

// Read applies every MIDI event queued since the last block, then renders
// renderFrames samples into an interleaved stereo PCM16LE buffer, the
// oscillator output duplicated across both channels. Draining the queue here
// keeps the VoiceManager's single-threaded contract: this is the only
// goroutine that ever calls into it.
func (r *voiceReader) Read(p []byte) (int, error) {
	r.watcher.ApplyPendingEvents()
	r.pool.Render(r.mono)

	n := 0
	for i, s := range r.mono {
		v := int16(clampSample(s) * math.MaxInt16)
		base := i * 4
		r.pcm[base] = byte(v)
		r.pcm[base+1] = byte(v >> 8)
		r.pcm[base+2] = byte(v)
		r.pcm[base+3] = byte(v >> 8)
		n += 4
	}
	return copy(p, r.pcm[:n]), nil
}

func clampSample(s float32) float32 {
	if s > 1 {
		return 1
	}
	if s < -1 {
		return -1
	}
	return s
}

// AudioEngine owns the oto playback context and the MIDI hot-plug poll loop,
// coordinated with golang.org/x/sync/errgroup so a fatal error on either
// side tears both down together.
type AudioEngine struct {
	ctx     *oto.Context
	player  *oto.Player
	watcher *MIDIWatcher
}

// NewAudioEngine opens the default audio output device and binds it to
// pool's rendered output.
func NewAudioEngine(pool *VoicePool, watcher *MIDIWatcher) (*AudioEngine, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channelCount,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return nil, err
	}
	<-ready

	player := ctx.NewPlayer(io.Reader(newVoiceReader(pool, watcher)))
	return &AudioEngine{ctx: ctx, player: player, watcher: watcher}, nil
}

// Run starts audio playback and the MIDI rescan loop, blocking until ctx is
// canceled or either subsystem fails.
func (e *AudioEngine) Run(ctx context.Context) error {
	e.player.Play()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ticker := time.NewTicker(500 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case <-ticker.C:
				e.watcher.Tick()
			}
		}
	})
	g.Go(func() error {
		<-gctx.Done()
		vmlog.Info("audio engine shutting down")
		return gctx.Err()
	})

	err := g.Wait()
	e.player.Close()
	e.watcher.Close()
	if err == context.Canceled {
		return nil
	}
	return err
}
