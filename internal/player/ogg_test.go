package player

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/llehouerou/hifz/internal/clip"
)

// oggPage builds a page whose segment table is derived from packets. A
// trailing packet of exactly 255*k bytes is left open when continued is true.
func oggPage(serial, seq uint32, granule int64, continued bool, packets ...[]byte) []byte {
	var lacing []byte
	var body []byte
	for i, p := range packets {
		n := len(p)
		for n >= 255 {
			lacing = append(lacing, 255)
			n -= 255
		}
		if !continued || i < len(packets)-1 {
			lacing = append(lacing, byte(n))
		}
		body = append(body, p...)
	}

	hdr := make([]byte, 27)
	copy(hdr, "OggS")
	binary.LittleEndian.PutUint64(hdr[6:14], uint64(granule))
	binary.LittleEndian.PutUint32(hdr[14:18], serial)
	binary.LittleEndian.PutUint32(hdr[18:22], seq)
	hdr[26] = byte(len(lacing))
	return append(append(hdr, lacing...), body...)
}

func opusHead(channels, preSkip int) []byte {
	p := make([]byte, 19)
	copy(p, "OpusHead")
	p[8] = 1
	p[9] = byte(channels)
	binary.LittleEndian.PutUint16(p[10:12], uint16(preSkip))
	binary.LittleEndian.PutUint32(p[12:16], 48000)
	return p
}

func TestReadOggPackets(t *testing.T) {
	long := bytes.Repeat([]byte{7}, 510)
	var stream []byte
	stream = append(stream, oggPage(1, 0, 0, false, []byte("head"))...)
	// other logical stream, ignored
	stream = append(stream, oggPage(2, 0, 0, false, []byte("other"))...)
	stream = append(stream, oggPage(1, 1, -1, true, []byte("a"), long)...)
	stream = append(stream, oggPage(1, 2, 960, false, []byte("tail"), []byte("b"))...)

	packets, err := readOggPackets(stream)
	if err != nil {
		t.Fatalf("readOggPackets() error = %v", err)
	}

	want := []struct {
		size    int
		granule int64
	}{
		{4, 0},
		{1, -1},
		{510 + 4, -1},
		{1, 960},
	}
	if len(packets) != len(want) {
		t.Fatalf("got %d packets, want %d", len(packets), len(want))
	}
	for i, w := range want {
		if len(packets[i].data) != w.size || packets[i].granule != w.granule {
			t.Errorf("packet %d = (%d bytes, granule %d), want (%d, %d)",
				i, len(packets[i].data), packets[i].granule, w.size, w.granule)
		}
	}
}

func TestReadOggPackets_Rejects(t *testing.T) {
	if _, err := readOggPackets([]byte("ID3 not an ogg stream at all")); !errors.Is(err, errInvalidOggMagic) {
		t.Errorf("error = %v, want errInvalidOggMagic", err)
	}
	if _, err := readOggPackets(nil); !errors.Is(err, errNoOggPackets) {
		t.Errorf("empty stream error = %v, want errNoOggPackets", err)
	}

	page := oggPage(1, 0, 0, false, []byte("head"))
	page[4] = 1
	if _, err := readOggPackets(page); !errors.Is(err, errInvalidOggVersion) {
		t.Errorf("version 1 error = %v, want errInvalidOggVersion", err)
	}

	truncated := oggPage(1, 0, 0, false, []byte("header"))
	if _, err := readOggPackets(truncated[:len(truncated)-2]); err == nil {
		t.Error("truncated body should fail")
	}
}

func TestDetectOggCodec(t *testing.T) {
	codec, err := detectOggCodec(opusHead(2, 312))
	if err != nil {
		t.Fatalf("detectOggCodec(opus) error = %v", err)
	}
	if codec.Channels() != 2 || codec.PreSkip() != 312 || codec.SampleRate() != opusSampleRate {
		t.Errorf("opus codec = %d ch, pre-skip %d, %d Hz", codec.Channels(), codec.PreSkip(), codec.SampleRate())
	}
	if got := codec.GranuleToSamples(1312); got != 1000 {
		t.Errorf("GranuleToSamples(1312) = %d, want 1000", got)
	}

	vorbisID := []byte{0x01, 'v', 'o', 'r', 'b', 'i', 's', 0, 0, 0, 0, 1, 0x44, 0xAC, 0, 0}
	codec, err = detectOggCodec(vorbisID)
	if err != nil {
		t.Fatalf("detectOggCodec(vorbis) error = %v", err)
	}
	if codec.Channels() != 1 || codec.SampleRate() != 44100 || codec.HeaderPackets() != 3 {
		t.Errorf("vorbis codec = %d ch, %d Hz, %d headers", codec.Channels(), codec.SampleRate(), codec.HeaderPackets())
	}
	if _, err := codec.Decode([]byte{0}, make([]float32, 16)); !errors.Is(err, errVorbisNotReady) {
		t.Errorf("Decode before headers error = %v", err)
	}

	bad := opusHead(2, 0)
	bad[8] = 2
	for name, packet := range map[string][]byte{
		"opus version":    bad,
		"opus truncated":  opusHead(2, 0)[:18],
		"vorbis short":    vorbisID[:12],
		"unknown":         []byte("fLaC\x00\x00\x00\x22"),
		"opus no channel": opusHead(0, 0),
	} {
		if _, err := detectOggCodec(packet); err == nil {
			t.Errorf("%s: detectOggCodec() should fail", name)
		}
	}
}

func TestDecodeOgg_MissingHeaders(t *testing.T) {
	data := oggPage(1, 0, 0, false, opusHead(1, 0))

	_, _, err := decode(&clip.Clip{Format: "opus", Data: data})
	if err == nil {
		t.Fatal("stream without OpusTags should fail")
	}
}

// rampCodec emits frame samples per packet; sample values count up from 1.
type rampCodec struct {
	channels, preSkip, frame int
	next                     float32
	resets                   int
}

func (c *rampCodec) SampleRate() int                { return 48000 }
func (c *rampCodec) Channels() int                  { return c.channels }
func (c *rampCodec) PreSkip() int                   { return c.preSkip }
func (c *rampCodec) GranuleToSamples(g int64) int64 { return g - int64(c.preSkip) }
func (c *rampCodec) HeaderPackets() int             { return 1 }
func (c *rampCodec) AddHeaderPacket(_ []byte) error { return nil }
func (c *rampCodec) MaxFrameSamples() int           { return c.frame }
func (c *rampCodec) Reset() error                   { c.next = 0; c.resets++; return nil }
func (c *rampCodec) Decode(p []byte, pcm []float32) (int, error) {
	if len(p) == 0 {
		return 0, errors.New("corrupt")
	}
	for i := range c.frame {
		c.next++
		for ch := range c.channels {
			pcm[i*c.channels+ch] = c.next
		}
	}
	return c.frame, nil
}

func newRampStream(t *testing.T, codec *rampCodec, packets []oggPacket, total int64) *oggStream {
	t.Helper()
	d := &oggStream{
		codec:     codec,
		packets:   packets,
		pcmBuffer: make([]float32, codec.frame*codec.channels),
		totalLen:  total,
	}
	if err := d.Seek(0); err != nil {
		t.Fatalf("Seek(0) error = %v", err)
	}
	return d
}

func TestOggStream_PreSkipAndEndTrim(t *testing.T) {
	codec := &rampCodec{channels: 1, preSkip: 2, frame: 4}
	packets := []oggPacket{{data: []byte{1}}, {data: nil}, {data: []byte{1}}, {data: []byte{1}}}
	// 3 good packets = 12 samples, minus pre-skip 2, trimmed to 7
	d := newRampStream(t, codec, packets, 7)

	buf := make([][2]float64, 16)
	n, ok := d.Stream(buf)
	if !ok || n != 7 {
		t.Fatalf("Stream() = %d, %v, want 7, true", n, ok)
	}
	if buf[0][0] != 3 || buf[0][1] != 3 {
		t.Errorf("first sample = %v, want mono 3 duplicated after pre-skip", buf[0])
	}
	if buf[6][0] != 9 {
		t.Errorf("last sample = %v, want 9", buf[6][0])
	}
	if d.Position() != 7 || d.Len() != 7 {
		t.Errorf("Position/Len = %d/%d, want 7/7", d.Position(), d.Len())
	}

	if n, ok := d.Stream(buf); ok || n != 0 {
		t.Errorf("Stream() at end = %d, %v, want 0, false", n, ok)
	}
}

func TestOggStream_Seek(t *testing.T) {
	codec := &rampCodec{channels: 2, frame: 3}
	packets := []oggPacket{{data: []byte{1}}, {data: []byte{1}}, {data: []byte{1}}}
	d := newRampStream(t, codec, packets, 0)

	if err := d.Seek(4); err != nil {
		t.Fatalf("Seek() error = %v", err)
	}
	buf := make([][2]float64, 2)
	if n, _ := d.Stream(buf); n != 2 {
		t.Fatalf("Stream() = %d, want 2", n)
	}
	if buf[0] != [2]float64{5, 5} || buf[1] != [2]float64{6, 6} {
		t.Errorf("samples after Seek(4) = %v", buf)
	}
	if d.Position() != 6 {
		t.Errorf("Position() = %d, want 6", d.Position())
	}
	if codec.resets != 2 {
		t.Errorf("codec reset %d times, want 2", codec.resets)
	}
}
