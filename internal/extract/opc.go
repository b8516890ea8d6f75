package extract

import (
	"encoding/xml"
	"io"
	"strings"
)

// Office Open XML documents (.pptx, .docx) are OPC containers: zip archives
// of XML parts. Visible text sits in run elements with local name "t"
// (a:t in slides, w:t in word processing), grouped into paragraphs with
// local name "p". runTextLines walks one part and returns its text, one
// line per paragraph.
func runTextLines(r io.Reader) (string, error) {
	var b strings.Builder
	var line strings.Builder
	flush := func() {
		if s := strings.TrimSpace(line.String()); s != "" {
			b.WriteString(s)
			b.WriteByte('\n')
		}
		line.Reset()
	}

	dec := xml.NewDecoder(r)
	var inRun bool
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inRun = true
			case "tab":
				line.WriteByte(' ')
			case "br":
				flush()
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inRun = false
			case "p":
				flush()
			}
		case xml.CharData:
			if inRun {
				line.Write(t)
			}
		}
	}
	flush()
	return strings.TrimSpace(b.String()), nil
}
