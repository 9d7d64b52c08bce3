package storage

import (
	"encoding/base64"
	"errors"
	"strings"
)

// ErrInvalidDataURL возвращается для строк, не являющихся base64 data URL.
var ErrInvalidDataURL = errors.New("invalid data url")

// KeyPrefix отличает ключ объектного хранилища от встроенного содержимого.
const KeyPrefix = "object:"

// DataURL хранит декодированное содержимое data URL.
type DataURL struct {
	ContentType string
	Data        []byte
}

// Extension подбирает расширение файла по типу содержимого.
func (d DataURL) Extension() string {
	switch d.ContentType {
	case "image/png":
		return "png"
	case "image/jpeg", "image/jpg":
		return "jpg"
	case "image/gif":
		return "gif"
	case "image/webp":
		return "webp"
	case "application/pdf":
		return "pdf"
	}
	return "bin"
}

// ParseDataURL разбирает строку вида data:<type>;base64,<payload>.
func ParseDataURL(s string) (DataURL, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(s), "data:")
	if !ok {
		return DataURL{}, ErrInvalidDataURL
	}

	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return DataURL{}, ErrInvalidDataURL
	}

	contentType, ok := strings.CutSuffix(meta, ";base64")
	if !ok {
		return DataURL{}, ErrInvalidDataURL
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return DataURL{}, ErrInvalidDataURL
	}

	return DataURL{ContentType: contentType, Data: data}, nil
}

// IsObjectKey сообщает, ссылается ли значение на объект в хранилище.
func IsObjectKey(v string) bool {
	return strings.HasPrefix(v, KeyPrefix)
}

// ObjectKey извлекает ключ объекта из сохранённого значения.
func ObjectKey(v string) string {
	return strings.TrimPrefix(v, KeyPrefix)
}
