package player

import (
	"encoding/binary"
	"errors"

	"github.com/jfreymuth/vorbis"
	"github.com/jj11hh/opus"
)

const (
	opusSampleRate = 48000
	// 120ms at 48kHz, the longest Opus frame.
	opusMaxFrame = 5760
	// Vorbis blocks are at most 8192 samples per channel.
	vorbisMaxFrame = 8192
)

var (
	errUnknownOggCodec      = errors.New("ogg: unknown codec (not Opus or Vorbis)")
	errInvalidOpusHead      = errors.New("opus: invalid OpusHead")
	errUnsupportedOpus      = errors.New("opus: unsupported version")
	errInvalidVorbisHeader  = errors.New("vorbis: invalid identification header")
	errVorbisNotReady       = errors.New("vorbis: decoder not initialized (headers incomplete)")
	errVorbisBufferTooSmall = errors.New("vorbis: output buffer too small")
)

// OggCodec decodes the packets of one Ogg logical stream.
type OggCodec interface {
	SampleRate() int
	Channels() int

	// PreSkip is the number of samples per channel to drop at stream start.
	PreSkip() int

	// GranuleToSamples converts a granule position to a sample count.
	GranuleToSamples(granule int64) int64

	// HeaderPackets is the number of header packets, identification included.
	HeaderPackets() int

	// AddHeaderPacket consumes a header packet after the identification one.
	AddHeaderPacket(packet []byte) error

	// MaxFrameSamples bounds the samples per channel of one decoded packet.
	MaxFrameSamples() int

	// Decode decodes a packet into interleaved PCM and returns the number of
	// samples per channel.
	Decode(packet []byte, pcm []float32) (samplesPerChannel int, err error)

	// Reset clears decoder state before decoding from the start again.
	Reset() error
}

// detectOggCodec picks the codec from the identification packet.
func detectOggCodec(firstPacket []byte) (OggCodec, error) {
	if len(firstPacket) >= 8 && string(firstPacket[:8]) == "OpusHead" {
		return newOpusCodec(firstPacket)
	}
	if len(firstPacket) >= 7 && firstPacket[0] == 0x01 && string(firstPacket[1:7]) == "vorbis" {
		return newVorbisCodec(firstPacket)
	}
	return nil, errUnknownOggCodec
}

type opusCodec struct {
	decoder  *opus.Decoder
	channels int
	preSkip  int
}

func newOpusCodec(packet []byte) (*opusCodec, error) {
	if len(packet) < 19 {
		return nil, errInvalidOpusHead
	}
	if packet[8] != 1 {
		return nil, errUnsupportedOpus
	}
	channels := int(packet[9])
	if channels == 0 {
		return nil, errInvalidOpusHead
	}

	decoder, err := opus.NewDecoder(opusSampleRate, channels)
	if err != nil {
		return nil, err
	}
	return &opusCodec{
		decoder:  decoder,
		channels: channels,
		preSkip:  int(binary.LittleEndian.Uint16(packet[10:12])),
	}, nil
}

// SampleRate is always 48kHz, whatever the input rate in OpusHead was.
func (c *opusCodec) SampleRate() int { return opusSampleRate }

func (c *opusCodec) Channels() int { return c.channels }

func (c *opusCodec) PreSkip() int { return c.preSkip }

func (c *opusCodec) GranuleToSamples(granule int64) int64 {
	return granule - int64(c.preSkip)
}

// HeaderPackets counts OpusHead and OpusTags.
func (c *opusCodec) HeaderPackets() int { return 2 }

// AddHeaderPacket ignores OpusTags.
func (c *opusCodec) AddHeaderPacket(_ []byte) error { return nil }

func (c *opusCodec) MaxFrameSamples() int { return opusMaxFrame }

func (c *opusCodec) Decode(packet []byte, pcm []float32) (int, error) {
	return c.decoder.DecodeFloat32(packet, pcm)
}

// Reset recreates the decoder, dropping its prediction state.
func (c *opusCodec) Reset() error {
	decoder, err := opus.NewDecoder(opusSampleRate, c.channels)
	if err != nil {
		return err
	}
	c.decoder = decoder
	return nil
}

type vorbisCodec struct {
	decoder    *vorbis.Decoder
	channels   int
	sampleRate int
	headers    [][]byte
}

func newVorbisCodec(packet []byte) (*vorbisCodec, error) {
	// [7:11] version (0), [11] channels, [12:16] sample rate
	if len(packet) < 16 {
		return nil, errInvalidVorbisHeader
	}
	if binary.LittleEndian.Uint32(packet[7:11]) != 0 || packet[11] == 0 {
		return nil, errInvalidVorbisHeader
	}
	return &vorbisCodec{
		channels:   int(packet[11]),
		sampleRate: int(binary.LittleEndian.Uint32(packet[12:16])),
		headers:    [][]byte{packet},
	}, nil
}

func (c *vorbisCodec) SampleRate() int { return c.sampleRate }

func (c *vorbisCodec) Channels() int { return c.channels }

func (c *vorbisCodec) PreSkip() int { return 0 }

func (c *vorbisCodec) GranuleToSamples(granule int64) int64 { return granule }

// HeaderPackets counts identification, comment and setup.
func (c *vorbisCodec) HeaderPackets() int { return 3 }

// AddHeaderPacket initializes the decoder once the setup header arrives.
func (c *vorbisCodec) AddHeaderPacket(packet []byte) error {
	if c.decoder != nil {
		return nil
	}
	c.headers = append(c.headers, packet)
	if len(c.headers) < 3 {
		return nil
	}

	decoder := &vorbis.Decoder{}
	for _, hdr := range c.headers {
		if err := decoder.ReadHeader(hdr); err != nil {
			return err
		}
	}
	c.decoder = decoder
	c.headers = nil
	return nil
}

func (c *vorbisCodec) MaxFrameSamples() int { return vorbisMaxFrame }

func (c *vorbisCodec) Decode(packet []byte, pcm []float32) (int, error) {
	if c.decoder == nil {
		return 0, errVorbisNotReady
	}
	samples, err := c.decoder.Decode(packet)
	if err != nil {
		return 0, err
	}
	if len(pcm) < len(samples) {
		return 0, errVorbisBufferTooSmall
	}
	return copy(pcm, samples) / c.channels, nil
}

func (c *vorbisCodec) Reset() error {
	if c.decoder != nil {
		c.decoder.Clear()
	}
	return nil
}
