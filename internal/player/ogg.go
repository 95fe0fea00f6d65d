package player

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/gopxl/beep/v2"
)

var (
	errInvalidOggMagic   = errors.New("ogg: invalid capture pattern")
	errInvalidOggVersion = errors.New("ogg: unsupported version")
	errNoOggPackets      = errors.New("ogg: no packets")
)

// oggPageHeader is the fixed part of an Ogg page plus its lacing values.
type oggPageHeader struct {
	GranulePos   int64
	SerialNumber uint32
	SequenceNum  uint32
	SegmentTable []uint8
}

func parseOggPageHeader(r io.Reader) (*oggPageHeader, error) {
	var buf [27]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return nil, err
	}
	if string(buf[0:4]) != "OggS" {
		return nil, errInvalidOggMagic
	}
	if buf[4] != 0 {
		return nil, errInvalidOggVersion
	}

	hdr := &oggPageHeader{
		GranulePos:   int64(binary.LittleEndian.Uint64(buf[6:14])),
		SerialNumber: binary.LittleEndian.Uint32(buf[14:18]),
		SequenceNum:  binary.LittleEndian.Uint32(buf[18:22]),
		SegmentTable: make([]uint8, buf[26]),
	}
	if _, err := io.ReadFull(r, hdr.SegmentTable); err != nil {
		return nil, err
	}
	return hdr, nil
}

// oggPacket is one codec packet. granule is the page granule position when
// the packet is the last one completed on its page, -1 otherwise.
type oggPacket struct {
	data    []byte
	granule int64
}

// readOggPackets splits a whole in-memory Ogg stream into packets, joining
// packets that span pages. Only the first logical stream is kept.
func readOggPackets(data []byte) ([]oggPacket, error) {
	r := bytes.NewReader(data)
	var (
		packets []oggPacket
		partial []byte
		serial  uint32
	)
	for first := true; ; first = false {
		hdr, err := parseOggPageHeader(r)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if first {
			serial = hdr.SerialNumber
		}

		var bodyLen int
		for _, lace := range hdr.SegmentTable {
			bodyLen += int(lace)
		}
		body := make([]byte, bodyLen)
		if _, err := io.ReadFull(r, body); err != nil {
			return nil, fmt.Errorf("ogg: page %d body: %w", hdr.SequenceNum, err)
		}
		if hdr.SerialNumber != serial {
			continue
		}

		lastOnPage := -1
		offset := 0
		for _, lace := range hdr.SegmentTable {
			partial = append(partial, body[offset:offset+int(lace)]...)
			offset += int(lace)
			if lace < 255 {
				packets = append(packets, oggPacket{data: partial, granule: -1})
				partial = nil
				lastOnPage = len(packets) - 1
			}
		}
		if lastOnPage >= 0 {
			packets[lastOnPage].granule = hdr.GranulePos
		}
	}
	if len(packets) == 0 {
		return nil, errNoOggPackets
	}
	return packets, nil
}

// decodeOgg decodes an in-memory Ogg Vorbis or Ogg Opus clip.
func decodeOgg(data []byte) (beep.StreamSeekCloser, beep.Format, error) {
	packets, err := readOggPackets(data)
	if err != nil {
		return nil, beep.Format{}, err
	}

	codec, err := detectOggCodec(packets[0].data)
	if err != nil {
		return nil, beep.Format{}, err
	}
	headers := codec.HeaderPackets()
	if len(packets) < headers {
		return nil, beep.Format{}, fmt.Errorf("ogg: %d header packets, want %d", len(packets), headers)
	}
	for _, p := range packets[1:headers] {
		if err := codec.AddHeaderPacket(p.data); err != nil {
			return nil, beep.Format{}, err
		}
	}

	audio := packets[headers:]
	var total int64
	for i := len(audio) - 1; i >= 0; i-- {
		if audio[i].granule >= 0 {
			total = max(codec.GranuleToSamples(audio[i].granule), 0)
			break
		}
	}

	d := &oggStream{
		codec:     codec,
		packets:   audio,
		pcmBuffer: make([]float32, codec.MaxFrameSamples()*codec.Channels()),
		totalLen:  total,
	}
	if err := d.Seek(0); err != nil {
		return nil, beep.Format{}, err
	}

	format := beep.Format{
		SampleRate:  beep.SampleRate(codec.SampleRate()),
		NumChannels: min(codec.Channels(), 2),
		Precision:   2,
	}
	return d, format, nil
}

// oggStream implements beep.StreamSeekCloser over decoded packets.
type oggStream struct {
	codec   OggCodec
	packets []oggPacket
	next    int

	pcmBuffer []float32
	pcm       []float32
	skip      int // samples per channel still to drop (pre-skip, seek)

	position int64
	totalLen int64
	err      error
}

func (d *oggStream) Stream(samples [][2]float64) (n int, ok bool) {
	if d.err != nil {
		return 0, false
	}
	channels := d.codec.Channels()

	for n < len(samples) {
		if d.totalLen > 0 && d.position >= d.totalLen {
			return n, n > 0
		}
		if len(d.pcm) >= channels {
			if d.skip > 0 {
				d.pcm = d.pcm[channels:]
				d.skip--
				continue
			}
			samples[n][0] = float64(d.pcm[0])
			if channels > 1 {
				samples[n][1] = float64(d.pcm[1])
			} else {
				samples[n][1] = samples[n][0]
			}
			d.pcm = d.pcm[channels:]
			d.position++
			n++
			continue
		}

		if d.next >= len(d.packets) {
			return n, n > 0
		}
		packet := d.packets[d.next].data
		d.next++

		perChannel, err := d.codec.Decode(packet, d.pcmBuffer)
		if err != nil {
			continue // skip corrupt packets
		}
		d.pcm = d.pcmBuffer[:perChannel*channels]
	}
	return n, true
}

func (d *oggStream) Err() error { return d.err }

func (d *oggStream) Len() int { return int(d.totalLen) }

func (d *oggStream) Position() int { return int(d.position) }

// Seek restarts decoding and drops samples up to p. Clips are short, so
// decoding from the first packet is fine.
func (d *oggStream) Seek(p int) error {
	p = max(p, 0)
	if d.totalLen > 0 {
		p = min(p, int(d.totalLen))
	}
	if err := d.codec.Reset(); err != nil {
		return err
	}
	d.next = 0
	d.pcm = nil
	d.skip = d.codec.PreSkip() + p
	d.position = int64(p)
	d.err = nil
	return nil
}

func (d *oggStream) Close() error { return nil }
