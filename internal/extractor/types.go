package extractor

import "strings"

// Source is one user-submitted unit of input. It is a closed union: a file
// upload or a pasted text that may classify itself as a URL. Dispatch is a
// single type switch in Analyze so adding a kind breaks loudly.
type Source interface {
	Label() string
	isSource()
}

// FileSource is an uploaded image or document, raw bytes with no data-URI
// prefix.
type FileSource struct {
	Name     string
	Data     []byte
	MIMEType string
}

func (s FileSource) Label() string { return s.Name }
func (s FileSource) isSource()     {}

// TextSource is pasted text. A syntactically absolute URL is treated as a
// URL source.
type TextSource struct {
	Text string
}

func (s TextSource) Label() string {
	if s.IsURL() {
		return strings.TrimSpace(s.Text)
	}
	return "Pasted Text"
}

func (s TextSource) isSource() {}

// IsURL reports whether the text is an absolute http(s) URL.
func (s TextSource) IsURL() bool {
	t := strings.TrimSpace(s.Text)
	return strings.HasPrefix(t, "http://") || strings.HasPrefix(t, "https://")
}
