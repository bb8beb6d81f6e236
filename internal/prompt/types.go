package prompt

import (
	"strings"
	"time"
)

// Image is an inline image payload attached to a record. Data is base64,
// never a data-URI. Generated images come from the sample-image call.
type Image struct {
	ID          string `json:"id"`
	Data        string `json:"data"`
	MIMEType    string `json:"mimeType"`
	IsGenerated bool   `json:"isGenerated"`
}

// Record is one extracted prompt. It lives either in the in-memory session
// list or in the durable library, never both at once.
type Record struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Content        string   `json:"content"`
	NegativePrompt string   `json:"negativePrompt,omitempty"`
	Model          string   `json:"model,omitempty"`
	Images         []Image  `json:"images,omitempty"`
	Source         string   `json:"source"`
	Tags           []string `json:"tags"`

	// OriginalSourceImage retains the raw uploaded image so the user can
	// re-crop it into a new Image later.
	OriginalSourceImage *Image `json:"originalSourceImage,omitempty"`
}

// SharedKey is the fixed id of the single pending share envelope.
const SharedKey = "latest-share"

// SharedContent is the one pending payload handed from an OS-level share
// action into the app. At most one exists; writing overwrites, reading
// consumes.
type SharedContent struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Text      string    `json:"text,omitempty"`
	Title     string    `json:"title,omitempty"`
	FileName  string    `json:"fileName,omitempty"`
	FileType  string    `json:"fileType,omitempty"`
	FileData  []byte    `json:"fileData,omitempty"`
}

// StripDataURI drops a leading data:<mime>;base64, prefix if present,
// returning the bare base64 payload.
func StripDataURI(s string) string {
	if !strings.HasPrefix(s, "data:") {
		return s
	}
	if i := strings.Index(s, ","); i >= 0 {
		return s[i+1:]
	}
	return s
}
