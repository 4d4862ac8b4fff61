package render

import (
	"bytes"
	"compress/flate"
	"fmt"
	"strings"
)

// plantumlAlphabet is the 64-character alphabet the PlantUML server expects
// in URLs. It is NOT standard base64: digits come first and the two extra
// characters are - and _.
const plantumlAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz-_"

// Encode converts diagram text into the PlantUML server's URL transport
// encoding: raw DEFLATE (no zlib header) followed by the PlantUML base64
// variant.
func Encode(text string) (string, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.BestCompression)
	if err != nil {
		return "", fmt.Errorf("creating deflate writer: %w", err)
	}
	if _, err := w.Write([]byte(text)); err != nil {
		return "", fmt.Errorf("compressing diagram text: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("flushing deflate stream: %w", err)
	}
	return encode64(buf.Bytes()), nil
}

// encode64 packs bytes 3-at-a-time into 4 characters of the PlantUML
// alphabet, zero-padding the final group.
func encode64(data []byte) string {
	var sb strings.Builder
	sb.Grow((len(data) + 2) / 3 * 4)

	for i := 0; i < len(data); i += 3 {
		var b1, b2, b3 byte
		b1 = data[i]
		if i+1 < len(data) {
			b2 = data[i+1]
		}
		if i+2 < len(data) {
			b3 = data[i+2]
		}
		sb.WriteByte(plantumlAlphabet[b1>>2])
		sb.WriteByte(plantumlAlphabet[((b1&0x03)<<4)|(b2>>4)])
		sb.WriteByte(plantumlAlphabet[((b2&0x0F)<<2)|(b3>>6)])
		sb.WriteByte(plantumlAlphabet[b3&0x3F])
	}
	return sb.String()
}
