// Package audio holds the PCM helpers shared by the capture pipeline and the
// locally synthesized error cue. All PCM is little-endian; inbound satellite
// audio is 16-bit signed, the STT service consumes normalized 32-bit float.
package audio

import (
	"encoding/binary"
	"math"
)

// Int16ToFloat32LE converts raw 16-bit signed PCM into normalized 32-bit
// float PCM by scaling with 1/32768. An entirely silent buffer is passed
// through unscaled: converting zeros yields zeros either way, so no separate
// branch is needed beyond skipping the normalization.
func Int16ToFloat32LE(pcm []byte) []byte {
	n := len(pcm) / 2
	out := make([]byte, n*4)

	var absMax int32
	for i := 0; i < n; i++ {
		s := int32(int16(binary.LittleEndian.Uint16(pcm[i*2:])))
		if s < 0 {
			s = -s
		}
		if s > absMax {
			absMax = s
		}
	}

	scale := float32(1)
	if absMax > 0 {
		scale = 1.0 / 32768.0
	}

	for i := 0; i < n; i++ {
		s := int16(binary.LittleEndian.Uint16(pcm[i*2:]))
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(float32(s)*scale))
	}
	return out
}

const (
	errorBeepDuration  = 0.5 // seconds
	errorBeepFrequency = 800 // Hz
	errorBeepFade      = 0.05
)

// ErrorBeep synthesizes the fixed audible error cue sent to a satellite when
// speech processing fails: a short sine tone with linear fade-in/fade-out to
// avoid clicks, returned as 16-bit signed PCM at the given sample rate.
func ErrorBeep(sampleRate int) []byte {
	samples := int(float64(sampleRate) * errorBeepDuration)
	fadeSamples := int(float64(sampleRate) * errorBeepFade)
	out := make([]byte, samples*2)

	for i := 0; i < samples; i++ {
		t := float64(i) / float64(sampleRate)
		v := math.Sin(2 * math.Pi * errorBeepFrequency * t)

		if fadeSamples > 0 {
			if i < fadeSamples {
				v *= float64(i) / float64(fadeSamples)
			}
			if i >= samples-fadeSamples {
				v *= float64(samples-1-i) / float64(fadeSamples)
			}
		}

		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(v*32767)))
	}
	return out
}
