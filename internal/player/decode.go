package player

import (
	"errors"
	"fmt"
	"io"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/wav"

	"github.com/llehouerou/hifz/internal/clip"
)

// ErrUnsupportedFormat is returned for clips no decoder handles.
var ErrUnsupportedFormat = errors.New("unsupported format")

const (
	formatMP3  = "mp3"
	formatFLAC = "flac"
	formatWAV  = "wav"
	formatOGG  = "ogg"
	formatOpus = "opus"
)

// decode opens an in-memory clip as a beep stream.
func decode(c *clip.Clip) (beep.StreamSeekCloser, beep.Format, error) {
	if len(c.Data) == 0 {
		return nil, beep.Format{}, fmt.Errorf("clip %s: empty", c.Ref)
	}

	r := c.Reader()
	switch c.Format {
	case formatMP3, "":
		return decodeGoMP3(io.NopCloser(r))
	case formatFLAC:
		// Some taggers prepend ID3v2 to FLAC, which the decoder rejects
		if err := skipID3v2(r); err != nil {
			return nil, beep.Format{}, err
		}
		return flac.Decode(r)
	case formatWAV:
		return wav.Decode(r)
	case formatOGG, formatOpus:
		return decodeOgg(c.Data)
	default:
		return nil, beep.Format{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, c.Format)
	}
}

// skipID3v2 skips an ID3v2 tag if present at the beginning of r.
func skipID3v2(r io.ReadSeeker) error {
	header := make([]byte, 10)
	n, err := io.ReadFull(r, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return err
	}
	if n < 10 || string(header[0:3]) != "ID3" {
		_, err = r.Seek(0, io.SeekStart)
		return err
	}

	// Syncsafe size: 7 bits per byte
	size := int64(header[6])<<21 | int64(header[7])<<14 | int64(header[8])<<7 | int64(header[9])

	_, err = r.Seek(10+size, io.SeekStart)
	return err
}
