package pdfa

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSRGBProfile_Header(t *testing.T) {
	profile := SRGBProfile()
	require.True(t, validICCHeader(profile))

	assert.Equal(t, uint32(len(profile)), binary.BigEndian.Uint32(profile[0:4]))
	assert.Equal(t, uint32(0x02100000), binary.BigEndian.Uint32(profile[8:12]))
	assert.Equal(t, "mntr", string(profile[12:16]))
	assert.Equal(t, "RGB ", string(profile[16:20]))
	assert.Equal(t, "XYZ ", string(profile[20:24]))
	assert.Equal(t, "acsp", string(profile[36:40]))
}

func TestSRGBProfile_Tags(t *testing.T) {
	profile := SRGBProfile()
	count := int(binary.BigEndian.Uint32(profile[128:132]))
	require.Equal(t, 9, count)

	tags := map[string][2]uint32{}
	for i := 0; i < count; i++ {
		entry := profile[132+12*i:]
		offset := binary.BigEndian.Uint32(entry[4:8])
		size := binary.BigEndian.Uint32(entry[8:12])
		require.LessOrEqual(t, int(offset+size), len(profile))
		assert.Zero(t, offset%4, "tag data must be 4-byte aligned")
		tags[string(entry[0:4])] = [2]uint32{offset, size}
	}

	for _, sig := range []string{"desc", "cprt", "wtpt", "rXYZ", "gXYZ", "bXYZ", "rTRC", "gTRC", "bTRC"} {
		assert.Contains(t, tags, sig)
	}
	assert.Equal(t, tags["rTRC"], tags["gTRC"], "curves are shared")

	red := tags["rXYZ"]
	assert.Equal(t, "XYZ ", string(profile[red[0]:red[0]+4]))
	curve := tags["rTRC"]
	assert.Equal(t, "curv", string(profile[curve[0]:curve[0]+4]))
	assert.Equal(t, uint16(iccGamma), binary.BigEndian.Uint16(profile[curve[0]+12:]))
}

func TestSRGBProfile_ReturnsCopy(t *testing.T) {
	a := SRGBProfile()
	a[0] = 0xff
	b := SRGBProfile()
	assert.NotEqual(t, a[0], b[0])
}

func TestValidICCHeader(t *testing.T) {
	assert.False(t, validICCHeader(nil))
	assert.False(t, validICCHeader(make([]byte, 128)))

	truncated := SRGBProfile()[:200]
	assert.False(t, validICCHeader(truncated))
}
