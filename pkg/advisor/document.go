package advisor

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Client-side strings for the document upload flow.
const (
	DocumentFallback = "I've analyzed your financial document. Would you like optimization tips?"
	DocumentFailure  = "Sorry, I had trouble analyzing the document. Try again later."
)

// documentTypes are the accepted upload extensions and their media types.
var documentTypes = map[string]string{
	".pdf":  "application/pdf",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

// UnsupportedDocumentError is returned for files outside documentTypes.
type UnsupportedDocumentError struct {
	Name string
}

func (e *UnsupportedDocumentError) Error() string {
	return fmt.Sprintf("unsupported document %q: supported formats are PDF, JPG, PNG", e.Name)
}

// Document is a selected upload turned into chat text. The file's bytes are
// never read; only its name reaches the model.
type Document struct {
	Name      string
	MediaType string

	// Notice is the user turn shown in the local transcript.
	Notice string

	// Prompt is the message sent to the chat proxy.
	Prompt string
}

// NewDocument validates a selected file and templates its chat messages.
func NewDocument(path string) (Document, error) {
	name := filepath.Base(path)
	if path == "" || name == "." || name == string(filepath.Separator) {
		return Document{}, &UnsupportedDocumentError{Name: path}
	}

	mediaType, ok := documentTypes[strings.ToLower(filepath.Ext(name))]
	if !ok {
		return Document{}, &UnsupportedDocumentError{Name: name}
	}

	return Document{
		Name:      name,
		MediaType: mediaType,
		Notice:    "Uploaded financial document: " + name,
		Prompt:    fmt.Sprintf("Analyze this financial document: %s. It contains investment statements and portfolio allocation data.", name),
	}, nil
}
