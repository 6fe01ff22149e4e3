package encoding

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Charset names an input encoding the importers understand.
type Charset string

const (
	UTF8        Charset = "UTF-8"
	UTF8BOM     Charset = "UTF-8-BOM"
	UTF16LE     Charset = "UTF-16LE"
	UTF16BE     Charset = "UTF-16BE"
	Windows1252 Charset = "windows-1252"
	ISO88599    Charset = "ISO-8859-9"
	ISO885915   Charset = "ISO-8859-15"
)

const sampleSize = 4096

var boms = []struct {
	prefix  []byte
	charset Charset
}{
	{[]byte{0xEF, 0xBB, 0xBF}, UTF8BOM},
	{[]byte{0xFF, 0xFE}, UTF16LE},
	{[]byte{0xFE, 0xFF}, UTF16BE},
}

// chardetNames maps chardet results onto the charsets we decode.
// Latin-1 is read as Windows-1252, its superset.
var chardetNames = map[string]Charset{
	"UTF-8":        UTF8,
	"ISO-8859-1":   Windows1252,
	"windows-1252": Windows1252,
	"ISO-8859-9":   ISO88599,
	"ISO-8859-15":  ISO885915,
}

var decoders = map[Charset]encoding.Encoding{
	UTF16LE:     unicode.UTF16(unicode.LittleEndian, unicode.UseBOM),
	UTF16BE:     unicode.UTF16(unicode.BigEndian, unicode.UseBOM),
	Windows1252: charmap.Windows1252,
	ISO88599:    charmap.ISO8859_9,
	ISO885915:   charmap.ISO8859_15,
}

// Detect guesses the charset of a sample. A byte order mark wins, then
// valid UTF-8, then chardet; anything else is taken as Windows-1252, the
// usual encoding of spreadsheet exports.
func Detect(sample []byte) Charset {
	for _, b := range boms {
		if bytes.HasPrefix(sample, b.prefix) {
			return b.charset
		}
	}

	if utf8.Valid(sample) {
		return UTF8
	}

	if res, err := chardet.NewTextDetector().DetectBest(sample); err == nil {
		if cs, ok := chardetNames[res.Charset]; ok {
			return cs
		}
	}

	return Windows1252
}

// NewUTF8Reader returns a reader that yields r decoded to UTF-8 with any
// UTF-8 byte order mark removed.
func NewUTF8Reader(r io.Reader) (io.Reader, error) {
	br := bufio.NewReaderSize(r, sampleSize)

	sample, err := br.Peek(sampleSize)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, fmt.Errorf("peek: %w", err)
	}

	cs := Detect(sample)

	switch cs {
	case UTF8:
		return br, nil
	case UTF8BOM:
		_, _ = br.Discard(3)
		return br, nil
	}

	return transform.NewReader(br, decoders[cs].NewDecoder()), nil
}
