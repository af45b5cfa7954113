package pdfa

import (
	"bytes"
	"encoding/binary"
	"math"
	"sync"
)

const iccHeaderSize = 128

// sRGB primaries adapted to the D50 profile connection space.
var (
	iccWhitePoint = [3]float64{0.9642, 1.0, 0.8249}
	iccRed        = [3]float64{0.4361, 0.2225, 0.0139}
	iccGreen      = [3]float64{0.3851, 0.7169, 0.0971}
	iccBlue       = [3]float64{0.1431, 0.0606, 0.7141}
)

// iccGamma is 2.2 as a u8Fixed8Number.
const iccGamma = 0x0233

var (
	srgbOnce    sync.Once
	srgbProfile []byte
)

// SRGBProfile returns an ICC v2 display-class RGB profile describing sRGB
// with matrix/TRC tags. The returned slice is a fresh copy.
func SRGBProfile() []byte {
	srgbOnce.Do(func() { srgbProfile = buildSRGBProfile() })
	out := make([]byte, len(srgbProfile))
	copy(out, srgbProfile)
	return out
}

type iccTag struct {
	sig  string
	data []byte
}

func buildSRGBProfile() []byte {
	curve := curveTag(iccGamma)
	tags := []iccTag{
		{"desc", textDescriptionTag("sRGB IEC61966-2.1")},
		{"cprt", textTag("No copyright, use freely")},
		{"wtpt", xyzTag(iccWhitePoint)},
		{"rXYZ", xyzTag(iccRed)},
		{"gXYZ", xyzTag(iccGreen)},
		{"bXYZ", xyzTag(iccBlue)},
		{"rTRC", curve},
		{"gTRC", curve},
		{"bTRC", curve},
	}

	tableSize := 4 + 12*len(tags)
	offset := align4(iccHeaderSize + tableSize)

	var table, data bytes.Buffer
	binary.Write(&table, binary.BigEndian, uint32(len(tags)))
	shared := map[string]uint32{}
	for _, tag := range tags {
		key := string(tag.data)
		at, ok := shared[key]
		if !ok {
			at = uint32(offset + data.Len())
			shared[key] = at
			data.Write(tag.data)
			for data.Len()%4 != 0 {
				data.WriteByte(0)
			}
		}
		table.WriteString(tag.sig)
		binary.Write(&table, binary.BigEndian, at)
		binary.Write(&table, binary.BigEndian, uint32(len(tag.data)))
	}
	for table.Len() < offset-iccHeaderSize {
		table.WriteByte(0)
	}

	size := iccHeaderSize + table.Len() + data.Len()
	header := make([]byte, iccHeaderSize)
	binary.BigEndian.PutUint32(header[0:], uint32(size))
	binary.BigEndian.PutUint32(header[8:], 0x02100000)
	copy(header[12:], "mntr")
	copy(header[16:], "RGB ")
	copy(header[20:], "XYZ ")
	// date: 2000-01-01 00:00:00
	binary.BigEndian.PutUint16(header[24:], 2000)
	binary.BigEndian.PutUint16(header[26:], 1)
	binary.BigEndian.PutUint16(header[28:], 1)
	copy(header[36:], "acsp")
	putXYZ(header[68:], iccWhitePoint)

	profile := make([]byte, 0, size)
	profile = append(profile, header...)
	profile = append(profile, table.Bytes()...)
	profile = append(profile, data.Bytes()...)
	return profile
}

func align4(n int) int {
	return (n + 3) &^ 3
}

func s15Fixed16(v float64) uint32 {
	return uint32(int32(math.Round(v * 65536)))
}

func putXYZ(b []byte, xyz [3]float64) {
	for i, v := range xyz {
		binary.BigEndian.PutUint32(b[4*i:], s15Fixed16(v))
	}
}

func xyzTag(xyz [3]float64) []byte {
	b := make([]byte, 20)
	copy(b, "XYZ ")
	putXYZ(b[8:], xyz)
	return b
}

func curveTag(gamma uint16) []byte {
	b := make([]byte, 14)
	copy(b, "curv")
	binary.BigEndian.PutUint32(b[8:], 1)
	binary.BigEndian.PutUint16(b[12:], gamma)
	return b
}

func textTag(s string) []byte {
	b := make([]byte, 8, 8+len(s)+1)
	copy(b, "text")
	b = append(b, s...)
	return append(b, 0)
}

// textDescriptionTag encodes an ICC v2 textDescriptionType with an ASCII
// description and empty Unicode and ScriptCode parts.
func textDescriptionTag(s string) []byte {
	var b bytes.Buffer
	b.WriteString("desc")
	b.Write(make([]byte, 4))
	binary.Write(&b, binary.BigEndian, uint32(len(s)+1))
	b.WriteString(s)
	b.WriteByte(0)
	b.Write(make([]byte, 8)) // unicode language code and count
	b.Write(make([]byte, 2)) // scriptcode code
	b.WriteByte(0)           // scriptcode count
	b.Write(make([]byte, 67))
	return b.Bytes()
}

// validICCHeader checks the profile signature and the declared size.
func validICCHeader(profile []byte) bool {
	if len(profile) < iccHeaderSize {
		return false
	}
	if string(profile[36:40]) != "acsp" {
		return false
	}
	size := binary.BigEndian.Uint32(profile[0:4])
	return size >= iccHeaderSize && int(size) <= len(profile)
}
