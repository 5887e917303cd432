package codec

import (
	"github.com/vmihailenco/msgpack/v5"

	goasidecache "github.com/dgduncan/go-aside-cache"
)

// Msgpack is a Codec that serializes bundles using vmihailenco/msgpack/v5.
// The zero value is ready to use.
type Msgpack struct{}

func (Msgpack) Encode(b *goasidecache.Bundle) ([]byte, error) {
	return msgpack.Marshal(b)
}

func (Msgpack) Decode(data []byte) (*goasidecache.Bundle, error) {
	var b goasidecache.Bundle
	if err := msgpack.Unmarshal(data, &b); err != nil {
		return nil, err
	}
	return &b, nil
}
