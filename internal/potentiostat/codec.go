package potentiostat

import "encoding/binary"

// PackageLength is the fixed size of one sensor package on the wire.
const PackageLength = 25

// The package is an M-Bus style long frame:
//
//	68 13 13 68 | 04 | 18 payload bytes | checksum | 16
//
// The payload is nine big-endian signed 16-bit words: six electrode
// channels, the temperature (sixteenths of a degree), and two unused
// words. The checksum is the byte sum of the control byte and payload,
// modulo 256.
const (
	startByte   = 0x68
	lengthByte  = 0x13
	controlByte = 0x04
	stopByte    = 0x16
)

const payloadWords = 9

// conversionGain maps raw electrode counts to instrument units: full
// scale 50 over the signed 16-bit range.
const conversionGain = 50.0 / (1<<15 - 1)

// validPackage checks framing and checksum on a wire-order package.
func validPackage(block []byte) bool {
	if len(block) != PackageLength {
		return false
	}
	if block[0] != startByte || block[1] != lengthByte || block[2] != lengthByte || block[3] != startByte {
		return false
	}
	if block[4] != controlByte || block[PackageLength-1] != stopByte {
		return false
	}
	return checksum(block[4:PackageLength-2]) == block[PackageLength-2]
}

// decodePackage converts a validated package into channel values.
func decodePackage(block []byte) [ChannelCount]float64 {
	var words [payloadWords]int16
	for i := range words {
		words[i] = int16(binary.BigEndian.Uint16(block[5+2*i : 7+2*i]))
	}

	var channels [ChannelCount]float64
	for i := 0; i < ChannelCount-1; i++ {
		channels[i] = float64(words[i]) * conversionGain
	}
	channels[ChannelCount-1] = float64(words[ChannelCount-1]) / 16
	return channels
}

func checksum(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum += b
	}
	return sum
}

// encodePackage builds a wire-order package from payload words. Used by
// tests and the mock reader.
func encodePackage(words [payloadWords]int16) [PackageLength]byte {
	var block [PackageLength]byte
	block[0], block[1], block[2], block[3] = startByte, lengthByte, lengthByte, startByte
	block[4] = controlByte
	for i, word := range words {
		binary.BigEndian.PutUint16(block[5+2*i:7+2*i], uint16(word))
	}
	block[PackageLength-2] = checksum(block[4 : PackageLength-2])
	block[PackageLength-1] = stopByte
	return block
}
