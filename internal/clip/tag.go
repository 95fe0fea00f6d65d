package clip

import (
	"fmt"
	"strconv"

	"github.com/bogem/id3v2/v2"
)

// tagFile writes an ID3v2.4 title, album and track number naming ref into
// the mp3 at path. Files that already carry a title are left alone.
func tagFile(path string, ref Ref) error {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer tag.Close()

	if tag.Title() != "" {
		return nil
	}

	tag.SetVersion(4)
	tag.SetDefaultEncoding(id3v2.EncodingUTF8)
	tag.SetTitle(ref.String())
	if tag.Album() == "" {
		tag.SetAlbum(fmt.Sprintf("Chapter %d", ref.Chapter))
	}
	tag.AddTextFrame(tag.CommonID("Track number/Position in set"), id3v2.EncodingUTF8, strconv.Itoa(ref.Verse))

	return tag.Save()
}
