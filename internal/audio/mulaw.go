// Package audio converts between the 8 kHz companded telephony codecs
// (G.711 mu-law and A-law) and 16-bit linear PCM.
package audio

// mulawTable maps each companded mu-law byte to its 16-bit linear sample.
// Built once at init from the G.711 expansion; the downstream speech
// service requires these exact values.
var mulawTable [256]int16

// alawTable is the A-law equivalent of mulawTable.
var alawTable [256]int16

func init() {
	for i := 0; i < 256; i++ {
		mulawTable[i] = mulawExpand(byte(i))
		alawTable[i] = alawExpand(byte(i))
	}
}

// mulawExpand decompands a single mu-law byte per ITU-T G.711.
func mulawExpand(u byte) int16 {
	u = ^u
	sign := u & 0x80
	exp := (u >> 4) & 0x07
	mant := u & 0x0F
	value := (int(mant) << 3) + 0x84
	value <<= uint(exp)
	value -= 0x84
	if sign != 0 {
		return int16(-value)
	}
	return int16(value)
}

// alawExpand decompands a single A-law byte per ITU-T G.711. After the
// 0x55 unmasking, a set top bit means a positive sample.
func alawExpand(a byte) int16 {
	a ^= 0x55
	sign := a & 0x80
	exp := (a >> 4) & 0x07
	mant := a & 0x0F
	var value int
	if exp != 0 {
		value = (int(mant)<<4 + 0x108) << (exp - 1)
	} else {
		value = (int(mant) << 4) + 8
	}
	if sign != 0 {
		return int16(value)
	}
	return int16(-value)
}

// Decode converts a mu-law frame to little-endian PCM16. The output is
// always len(frame)*2 bytes; an empty frame yields an empty buffer.
func Decode(frame []byte) []byte {
	out := make([]byte, len(frame)*2)
	for i, b := range frame {
		s := mulawTable[b]
		out[2*i] = byte(s)
		out[2*i+1] = byte(s >> 8)
	}
	return out
}

// DecodeALaw converts an A-law frame to little-endian PCM16.
func DecodeALaw(frame []byte) []byte {
	out := make([]byte, len(frame)*2)
	for i, b := range frame {
		s := alawTable[b]
		out[2*i] = byte(s)
		out[2*i+1] = byte(s >> 8)
	}
	return out
}

// Encode converts little-endian PCM16 to mu-law. A trailing odd byte is
// ignored.
func Encode(pcm []byte) []byte {
	n := len(pcm) / 2
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		s := int16(uint16(pcm[2*i]) | uint16(pcm[2*i+1])<<8)
		out[i] = mulawCompress(s)
	}
	return out
}

// EncodeALaw converts little-endian PCM16 to A-law.
func EncodeALaw(pcm []byte) []byte {
	n := len(pcm) / 2
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		s := int16(uint16(pcm[2*i]) | uint16(pcm[2*i+1])<<8)
		out[i] = alawCompress(s)
	}
	return out
}

// mulawCompress compands a linear sample per ITU-T G.711.
func mulawCompress(sample int16) byte {
	const clip = 32635
	sign := byte(0)
	v := int(sample)
	if v < 0 {
		v = -v
		sign = 0x80
	}
	if v > clip {
		v = clip
	}
	v += 0x84
	exp := byte(7)
	for mask := 0x4000; v&mask == 0 && exp > 0; mask >>= 1 {
		exp--
	}
	mant := byte((v >> (int(exp) + 3)) & 0x0F)
	return ^(sign | exp<<4 | mant)
}

// alawCompress compands a linear sample per ITU-T G.711. Positive
// samples carry the sign bit, mirroring alawExpand.
func alawCompress(sample int16) byte {
	const clip = 32635
	sign := byte(0)
	if sample >= 0 {
		sign = 0x80
	} else {
		sample = -sample - 1
	}
	if sample > clip {
		sample = clip
	}
	var comp byte
	if sample >= 256 {
		exp := byte(7)
		for mask := int16(0x4000); (sample&mask) == 0 && exp > 0; mask >>= 1 {
			exp--
		}
		mant := byte((sample >> (int(exp) + 3)) & 0x0F)
		comp = (exp << 4) | mant
	} else {
		comp = byte(sample >> 4)
	}
	comp ^= 0x55
	return comp ^ sign
}
