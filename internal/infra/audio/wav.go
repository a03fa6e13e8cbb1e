package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

const (
	wavHeaderSize  = 44
	bytesPerSample = 2
)

// EncodeWAV wraps 16-bit little-endian mono PCM in a RIFF/WAVE header.
func EncodeWAV(pcm []byte, sampleRate int) ([]byte, error) {
	if len(pcm)%bytesPerSample != 0 {
		return nil, fmt.Errorf("pcm length %d is not a whole number of samples", len(pcm))
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", sampleRate)
	}

	var buf bytes.Buffer
	buf.Grow(wavHeaderSize + len(pcm))

	dataSize := len(pcm)
	fileSize := 36 + dataSize

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, int32(fileSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, int32(16))
	binary.Write(&buf, binary.LittleEndian, int16(1))
	binary.Write(&buf, binary.LittleEndian, int16(1))
	binary.Write(&buf, binary.LittleEndian, int32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, int32(sampleRate*bytesPerSample))
	binary.Write(&buf, binary.LittleEndian, int16(bytesPerSample))
	binary.Write(&buf, binary.LittleEndian, int16(16))

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, int32(dataSize))
	buf.Write(pcm)

	return buf.Bytes(), nil
}

// samplesToPCM serializes samples as 16-bit little-endian PCM.
func samplesToPCM(samples []int16) []byte {
	out := make([]byte, len(samples)*bytesPerSample)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*bytesPerSample:], uint16(s))
	}
	return out
}

// silent reports whether every sample stays within threshold of zero.
func silent(samples []int16, threshold int16) bool {
	for _, s := range samples {
		if s > threshold || s < -threshold {
			return false
		}
	}
	return true
}
