package domain

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"
)

type Encoding string

const (
	EncodingWebM Encoding = "webm"
	EncodingWAV  Encoding = "wav"
	EncodingOGG  Encoding = "ogg"
	EncodingMP3  Encoding = "mp3"
)

var dataURIPattern = regexp.MustCompile(`^data:audio/(webm|wav|ogg|mp3);base64,([a-zA-Z0-9+/]+=*)$`)

// ParseEncoding maps a bare encoding tag or a file extension (".wav") to an Encoding.
func ParseEncoding(s string) (Encoding, bool) {
	switch e := Encoding(strings.ToLower(strings.TrimPrefix(s, "."))); e {
	case EncodingWebM, EncodingWAV, EncodingOGG, EncodingMP3:
		return e, true
	default:
		return "", false
	}
}

func (e Encoding) MIMEType() string {
	return "audio/" + string(e)
}

// AudioPayload is one encoded recording. It is consumed once by the transcriber.
type AudioPayload struct {
	Encoding Encoding
	Data     []byte
}

func NewAudioPayload(encoding Encoding, data []byte) (AudioPayload, error) {
	p := AudioPayload{Encoding: encoding, Data: data}
	if err := p.Validate(); err != nil {
		return AudioPayload{}, err
	}
	return p, nil
}

func (p AudioPayload) Validate() error {
	if _, ok := ParseEncoding(string(p.Encoding)); !ok {
		return &ValidationError{Field: "encoding", Reason: fmt.Sprintf("unsupported audio encoding %q", p.Encoding)}
	}
	if len(p.Data) == 0 {
		return &ValidationError{Field: "audio", Reason: "audio payload is empty"}
	}
	return nil
}

// DataURI encodes the payload as data:audio/<enc>;base64,<data>.
func (p AudioPayload) DataURI() string {
	return "data:" + p.Encoding.MIMEType() + ";base64," + base64.StdEncoding.EncodeToString(p.Data)
}

// ParseDataURI decodes a base64 audio data URI. Anything that does not match
// the accepted format is a ValidationError.
func ParseDataURI(uri string) (AudioPayload, error) {
	m := dataURIPattern.FindStringSubmatch(uri)
	if m == nil {
		return AudioPayload{}, &ValidationError{
			Field:  "audioDataUri",
			Reason: "invalid audio data URI format, expected data:audio/<webm|wav|ogg|mp3>;base64,<data>",
		}
	}

	data, err := base64.StdEncoding.DecodeString(m[2])
	if err != nil {
		return AudioPayload{}, &ValidationError{Field: "audioDataUri", Reason: "audio data is not valid base64", Err: err}
	}

	return NewAudioPayload(Encoding(m[1]), data)
}
