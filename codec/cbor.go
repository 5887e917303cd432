package codec

import (
	"github.com/fxamacker/cbor/v2"

	goasidecache "github.com/dgduncan/go-aside-cache"
)

// CBOR is a Codec that serializes bundles using fxamacker/cbor.
// The zero value is NOT ready to use. Construct with NewCBOR.
//
// Use deterministic=true for canonical encoding (RFC 8949 Core Deterministic)
// when byte-for-byte stable output matters. Times are encoded as RFC3339Nano.
type CBOR struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

func NewCBOR(deterministic bool) (CBOR, error) {
	var eo cbor.EncOptions
	if deterministic {
		eo = cbor.CoreDetEncOptions()
	} else {
		eo = cbor.PreferredUnsortedEncOptions()
	}
	eo.Time = cbor.TimeRFC3339Nano

	em, err := eo.EncMode()
	if err != nil {
		return CBOR{}, err
	}
	dm, err := (cbor.DecOptions{}).DecMode()
	if err != nil {
		return CBOR{}, err
	}
	return CBOR{enc: em, dec: dm}, nil
}

func (c CBOR) Encode(b *goasidecache.Bundle) ([]byte, error) {
	return c.enc.Marshal(b)
}

func (c CBOR) Decode(data []byte) (*goasidecache.Bundle, error) {
	var b goasidecache.Bundle
	if err := c.dec.Unmarshal(data, &b); err != nil {
		return nil, err
	}
	return &b, nil
}
