package recognition

import (
	"encoding/base64"
	"net/http"
	"sync"

	"glucoplate"
)

// Image is an uploaded photo. The base64 form is computed once and shared by
// every provider that needs it.
type Image struct {
	Data     []byte
	MIMEType string

	once sync.Once
	b64  string
}

// NewImage sniffs the MIME type when mimeType is empty.
func NewImage(data []byte, mimeType string) *Image {
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}
	return &Image{Data: data, MIMEType: mimeType}
}

func (i *Image) Base64() string {
	i.once.Do(func() {
		i.b64 = base64.StdEncoding.EncodeToString(i.Data)
	})
	return i.b64
}

func (i *Image) DataURI() string {
	return "data:" + i.MIMEType + ";base64," + i.Base64()
}

// Request is what every provider receives for one recognition run.
type Request struct {
	Image    *Image
	Language glucoplate.Language
}
