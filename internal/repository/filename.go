package repository

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	articleExt      = ".md"
	idSeparator     = "-"
	maxFilenameSize = 255
)

var (
	ErrEmptyTopic        = errors.New("topic is empty")
	ErrTopicTooLong      = errors.New("topic too long to encode in a filename")
	ErrMalformedFilename = errors.New("malformed article filename")
)

// Filename is the only index of an article: {ID}-{EncodedTopic}.md.
//
// EncodedTopic is unpadded URL-safe base64, so it never contains '+', '/' or
// '='. It may contain '-', which is why parsing splits on the first separator
// only: the ID is all digits.
type Filename struct {
	ID           string
	EncodedTopic string
}

func NewFilename(id int64, topic string) (Filename, error) {
	if strings.TrimSpace(topic) == "" {
		return Filename{}, ErrEmptyTopic
	}

	f := Filename{
		ID:           strconv.FormatInt(id, 10),
		EncodedTopic: EncodeTopic(topic),
	}
	if len(f.String()) > maxFilenameSize {
		return Filename{}, ErrTopicTooLong
	}
	return f, nil
}

func (f Filename) String() string {
	return f.ID + idSeparator + f.EncodedTopic + articleExt
}

func (f Filename) Topic() (string, error) {
	return DecodeTopic(f.EncodedTopic)
}

// Millis returns the ID as Unix milliseconds.
func (f Filename) Millis() int64 {
	ms, _ := strconv.ParseInt(f.ID, 10, 64)
	return ms
}

func ParseFilename(name string) (Filename, error) {
	base, ok := strings.CutSuffix(name, articleExt)
	if !ok {
		return Filename{}, fmt.Errorf("%w: %q has no %s extension", ErrMalformedFilename, name, articleExt)
	}

	id, token, ok := strings.Cut(base, idSeparator)
	if !ok || token == "" {
		return Filename{}, fmt.Errorf("%w: %q has no topic segment", ErrMalformedFilename, name)
	}
	if !isDigits(id) {
		return Filename{}, fmt.Errorf("%w: %q has non-numeric id", ErrMalformedFilename, name)
	}
	if _, err := strconv.ParseInt(id, 10, 64); err != nil {
		return Filename{}, fmt.Errorf("%w: %q: %v", ErrMalformedFilename, name, err)
	}

	return Filename{ID: id, EncodedTopic: token}, nil
}

func EncodeTopic(topic string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(topic))
}

// DecodeTopic also accepts tokens written by the older scheme (std base64 with
// '+', '/' and '=' stripped), since those are plain alphanumerics. Such a
// token decodes to the wrong topic when stripped characters carried data;
// there is no way to detect that from the name alone.
func DecodeTopic(token string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", fmt.Errorf("%w: topic token %q: %v", ErrMalformedFilename, token, err)
	}
	if len(raw) == 0 || !utf8.Valid(raw) {
		return "", fmt.Errorf("%w: topic token %q is not valid text", ErrMalformedFilename, token)
	}
	return string(raw), nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
