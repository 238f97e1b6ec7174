package audio

import (
	"context"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/effects"
	"github.com/faiface/beep/speaker"
)

// SpeakerPlayer plays mp3/wav clips on the default output device.
type SpeakerPlayer struct {
	volumeDB float64

	mu      sync.Mutex
	rate    beep.SampleRate
	stopped chan struct{}
}

// NewSpeakerPlayer creates a player; volumeDB of 0 leaves the volume unchanged.
func NewSpeakerPlayer(volumeDB float64) *SpeakerPlayer {
	return &SpeakerPlayer{volumeDB: volumeDB}
}

func (p *SpeakerPlayer) Play(ctx context.Context, clip *Clip) error {
	streamer, format, err := decode(clip)
	if err != nil {
		return err
	}
	defer streamer.Close()

	rate, err := p.ensureSpeaker(format.SampleRate)
	if err != nil {
		return err
	}

	var s beep.Streamer = streamer
	if format.SampleRate != rate {
		s = beep.Resample(4, format.SampleRate, rate, s)
	}
	vol := &effects.Volume{
		Streamer: s,
		Base:     2,
		Volume:   p.volumeDB,
		Silent:   false,
	}

	stop := p.arm()
	if err := context.Cause(ctx); err != nil {
		return err
	}
	done := make(chan struct{})
	speaker.Play(beep.Seq(vol, beep.Callback(func() { close(done) })))

	select {
	case <-done:
		return nil
	case <-stop:
		speaker.Clear()
		return context.Canceled
	case <-ctx.Done():
		speaker.Clear()
		return context.Cause(ctx)
	}
}

func (p *SpeakerPlayer) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped != nil {
		close(p.stopped)
		p.stopped = nil
	}
}

// arm installs a fresh stop channel for the clip about to play.
func (p *SpeakerPlayer) arm() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopped = make(chan struct{})
	return p.stopped
}

func (p *SpeakerPlayer) ensureSpeaker(rate beep.SampleRate) (beep.SampleRate, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.rate != 0 {
		return p.rate, nil
	}
	if err := speaker.Init(rate, rate.N(time.Second/10)); err != nil {
		return 0, err
	}
	p.rate = rate
	return rate, nil
}

// NullPlayer decodes a clip and waits for its natural duration without
// producing sound. It serves headless deployments and tests.
type NullPlayer struct {
	// Speed divides the wait; values <= 0 mean real time.
	Speed float64

	mu      sync.Mutex
	stopped chan struct{}
}

func NewNullPlayer() *NullPlayer { return &NullPlayer{} }

func (p *NullPlayer) Play(ctx context.Context, clip *Clip) error {
	streamer, format, err := decode(clip)
	if err != nil {
		return err
	}
	length := format.SampleRate.D(streamer.Len())
	_ = streamer.Close()
	if p.Speed > 0 {
		length = time.Duration(float64(length) / p.Speed)
	}

	p.mu.Lock()
	p.stopped = make(chan struct{})
	stop := p.stopped
	p.mu.Unlock()

	timer := time.NewTimer(length)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-stop:
		return context.Canceled
	case <-ctx.Done():
		return context.Cause(ctx)
	}
}

func (p *NullPlayer) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped != nil {
		close(p.stopped)
		p.stopped = nil
	}
}
