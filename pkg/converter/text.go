package converter

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/james-see/midiscore/pkg/score"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
)

// Text encodings understood for meta text events
const (
	TextAuto        = "auto"
	TextUTF8        = "utf-8"
	TextLatin1      = "latin-1"
	TextWindows1252 = "windows-1252"
	TextShiftJIS    = "shift-jis"
)

// SupportedTextEncodings lists the accepted ParseOptions.TextEncoding values
func SupportedTextEncodings() []string {
	return []string{TextAuto, TextUTF8, TextLatin1, TextWindows1252, TextShiftJIS}
}

// textDecoder turns raw meta text bytes into a Go string
type textDecoder struct {
	name string
	enc  encoding.Encoding
}

func newTextDecoder(name string) (*textDecoder, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", TextAuto:
		return &textDecoder{name: TextAuto, enc: charmap.Windows1252}, nil
	case TextUTF8, "utf8":
		return &textDecoder{name: TextUTF8}, nil
	case TextLatin1, "latin1", "iso-8859-1":
		return &textDecoder{name: TextLatin1, enc: charmap.ISO8859_1}, nil
	case TextWindows1252, "cp1252":
		return &textDecoder{name: TextWindows1252, enc: charmap.Windows1252}, nil
	case TextShiftJIS, "sjis", "shift_jis":
		return &textDecoder{name: TextShiftJIS, enc: japanese.ShiftJIS}, nil
	}
	return nil, &score.InvalidArgumentError{Reason: fmt.Sprintf("unsupported text encoding %q", name)}
}

// decode converts b. In auto mode valid UTF-8 is kept as is and anything
// else is read as Windows-1252.
func (d *textDecoder) decode(b []byte) string {
	if d.enc == nil || (d.name == TextAuto && utf8.Valid(b)) {
		return string(b)
	}
	out, err := d.enc.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(out)
}
