package audio

import (
	"log/slog"
	"sync"
)

// Resampler converts mono PCM16LE frames to a target sample rate. The
// transcription stage uses one per utterance: edge recorders declare their
// own sample rate, but the ASR adapter expects a fixed rate, so every
// utterance is resampled exactly once before dispatch.
//
// Create one per utterance; not designed for shared use across goroutines.
type Resampler struct {
	TargetRate     int
	warnedMismatch sync.Once
	warnedCorrupt  sync.Once
}

// Convert resamples a frame to TargetRate. If the frame already matches, it
// is returned unchanged (zero allocation). An odd byte count indicates a
// truncated PCM16 sample; the trailing byte is dropped and the frame
// continues, per the truncate-and-continue boundary behavior for malformed
// framing.
func (r *Resampler) Convert(frame Frame) Frame {
	data := frame.Data
	if len(data)%2 != 0 {
		r.warnedCorrupt.Do(func() {
			slog.Warn("audio resampler: odd byte count in PCM data, truncating trailing byte",
				"bytes", len(data))
		})
		data = data[:len(data)-1]
	}

	if frame.SampleRate == r.TargetRate || r.TargetRate <= 0 {
		return Frame{Data: data, SampleRate: frame.SampleRate, Timestamp: frame.Timestamp}
	}

	r.warnedMismatch.Do(func() {
		slog.Warn("audio resampler: sample rate mismatch, resampling",
			"from", frame.SampleRate, "to", r.TargetRate)
	})

	return Frame{
		Data:       ResampleMono16(data, frame.SampleRate, r.TargetRate),
		SampleRate: r.TargetRate,
		Timestamp:  frame.Timestamp,
	}
}

// ResampleMono16 resamples 16-bit mono PCM from srcRate to dstRate using
// linear interpolation. The input must be little-endian int16 samples. If
// srcRate == dstRate, the input is returned unchanged.
func ResampleMono16(pcm []byte, srcRate, dstRate int) []byte {
	if srcRate <= 0 || dstRate <= 0 {
		return pcm
	}
	if srcRate == dstRate || len(pcm) < 2 {
		return pcm
	}
	srcSamples := len(pcm) / 2
	dstSamples := int(int64(srcSamples) * int64(dstRate) / int64(srcRate))
	if dstSamples == 0 {
		return nil
	}

	out := make([]byte, dstSamples*2)
	ratio := float64(srcRate) / float64(dstRate)

	for i := range dstSamples {
		srcPos := float64(i) * ratio
		srcIdx := int(srcPos)
		frac := srcPos - float64(srcIdx)

		s0 := int16(pcm[srcIdx*2]) | int16(pcm[srcIdx*2+1])<<8
		var s1 int16
		if srcIdx+1 < srcSamples {
			s1 = int16(pcm[(srcIdx+1)*2]) | int16(pcm[(srcIdx+1)*2+1])<<8
		} else {
			s1 = s0
		}

		interpolated := int16(float64(s0)*(1-frac) + float64(s1)*frac)
		out[i*2] = byte(interpolated)
		out[i*2+1] = byte(interpolated >> 8)
	}
	return out
}
