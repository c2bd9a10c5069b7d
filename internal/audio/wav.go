package audio

import (
	"bytes"
	"encoding/binary"
)

// PCM parameters of the speech model output.
const (
	wavHeaderSize    = 44
	wavSampleRate    = 24000
	wavChannels      = 1
	wavBitsPerSample = 16
	wavBlockAlign    = wavChannels * wavBitsPerSample / 8
	wavByteRate      = wavSampleRate * wavBlockAlign
)

// HasWAVHeader reports whether data starts with a RIFF chunk.
func HasWAVHeader(data []byte) bool {
	return len(data) >= 12 && bytes.Equal(data[:4], []byte("RIFF"))
}

// EnsureWAV returns data unchanged when it already carries a RIFF header and
// otherwise prefixes a 44-byte PCM header for 24 kHz mono 16-bit audio.
func EnsureWAV(data []byte) []byte {
	if HasWAVHeader(data) {
		return data
	}
	size := uint32(len(data))
	out := make([]byte, wavHeaderSize, wavHeaderSize+len(data))
	copy(out[0:4], "RIFF")
	binary.LittleEndian.PutUint32(out[4:8], size+36)
	copy(out[8:16], "WAVEfmt ")
	binary.LittleEndian.PutUint32(out[16:20], 16)
	binary.LittleEndian.PutUint16(out[20:22], 1)
	binary.LittleEndian.PutUint16(out[22:24], wavChannels)
	binary.LittleEndian.PutUint32(out[24:28], wavSampleRate)
	binary.LittleEndian.PutUint32(out[28:32], wavByteRate)
	binary.LittleEndian.PutUint16(out[32:34], wavBlockAlign)
	binary.LittleEndian.PutUint16(out[34:36], wavBitsPerSample)
	copy(out[36:40], "data")
	binary.LittleEndian.PutUint32(out[40:44], size)
	return append(out, data...)
}
