package audio

import (
	"fmt"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/wav"
)

func decode(clip *Clip) (beep.StreamSeekCloser, beep.Format, error) {
	rc, err := clip.Open()
	if err != nil {
		return nil, beep.Format{}, err
	}
	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
	)
	switch clip.Format {
	case "mp3":
		streamer, format, err = mp3.Decode(rc)
	case "wav", "wave":
		streamer, format, err = wav.Decode(rc)
	default:
		_ = rc.Close()
		return nil, beep.Format{}, fmt.Errorf("unsupported clip format %q (expected mp3|wav)", clip.Format)
	}
	if err != nil {
		_ = rc.Close()
		return nil, beep.Format{}, fmt.Errorf("decode %s: %w", clip.Format, err)
	}
	return streamer, format, nil
}
