// Package codec serializes bundles for stores that keep raw bytes.
package codec

import (
	"bytes"
	"encoding/gob"
	"encoding/json"

	goasidecache "github.com/dgduncan/go-aside-cache"
)

// Codec encodes/decodes bundles to []byte for storage.
type Codec interface {
	Encode(*goasidecache.Bundle) ([]byte, error)
	Decode([]byte) (*goasidecache.Bundle, error)
}

// Default is the codec stores use when none is configured.
var Default Codec = Gob{}

// Gob is the encoding the SQL and DynamoDB stores have always used.
type Gob struct{}

func (Gob) Encode(b *goasidecache.Bundle) ([]byte, error) {
	var buff bytes.Buffer
	if err := gob.NewEncoder(&buff).Encode(b); err != nil {
		return nil, err
	}
	return buff.Bytes(), nil
}

func (Gob) Decode(data []byte) (*goasidecache.Bundle, error) {
	var b goasidecache.Bundle
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&b); err != nil {
		return nil, err
	}
	return &b, nil
}

type JSON struct{}

func (JSON) Encode(b *goasidecache.Bundle) ([]byte, error) { return json.Marshal(b) }
func (JSON) Decode(data []byte) (*goasidecache.Bundle, error) {
	var b goasidecache.Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, err
	}
	return &b, nil
}
