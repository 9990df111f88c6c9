package notify

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// ToneSynth plays a short sine tone
type ToneSynth interface {
	Play(frequency float64, duration time.Duration) error
}

// ToneChannel builds its synth on first use and reuses it for the process
// lifetime. A factory error disables the channel.
type ToneChannel struct {
	once    sync.Once
	factory func() (ToneSynth, error)
	synth   ToneSynth
	logger  *zap.Logger
}

// NewToneChannel creates a lazily initialised tone channel
func NewToneChannel(factory func() (ToneSynth, error), logger *zap.Logger) *ToneChannel {
	return &ToneChannel{factory: factory, logger: logger}
}

// Play emits one tone; silently skipped when no synth is available
func (t *ToneChannel) Play(frequency float64, duration time.Duration) {
	t.once.Do(func() {
		if t.factory == nil {
			return
		}
		synth, err := t.factory()
		if err != nil {
			t.logger.Debug("Tone synth unavailable", zap.Error(err))
			return
		}
		t.synth = synth
	})
	if t.synth == nil {
		return
	}
	if err := t.synth.Play(frequency, duration); err != nil {
		t.logger.Debug("Tone playback failed",
			zap.Float64("frequency", frequency),
			zap.Error(err),
		)
	}
}
