// Package codec turns store snapshots into bytes and back.
//
// The encoding is canonical: two snapshots holding the same values always
// produce the same bytes, so a checksum of the encoding can be compared
// between peers to detect a desync.
package codec

import (
	"errors"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/goccy/go-json"
	"github.com/klauspost/compress/zstd"
	"github.com/rotisserie/eris"

	"github.com/plus3/rewind/ecs"
)

// ErrMalformed is returned when data cannot be decoded into a snapshot.
var ErrMalformed = errors.New("malformed snapshot encoding")

type wireSnapshot[S any] struct {
	State    S            `json:"state"`
	Entities []wireEntity `json:"entities"`
}

type wireEntity struct {
	Entity     uint64          `json:"entity"`
	Components []wireComponent `json:"components"`
}

type wireComponent struct {
	Kind  uint8 `json:"kind"`
	Value any   `json:"value"`
}

type rawSnapshot[S any] struct {
	State    S           `json:"state"`
	Entities []rawEntity `json:"entities"`
}

type rawEntity struct {
	Entity     uint64         `json:"entity"`
	Components []rawComponent `json:"components"`
}

type rawComponent struct {
	Kind  *uint8          `json:"kind"`
	Value json.RawMessage `json:"value"`
}

// Marshal encodes snap as JSON. Entities appear in ascending order and the
// components of each entity in ascending kind order.
func Marshal[S any](snap *ecs.Snapshot[S]) ([]byte, error) {
	return encode(snap, false)
}

func encode[S any](snap *ecs.Snapshot[S], renumber bool) ([]byte, error) {
	if snap == nil {
		return nil, eris.New("marshal nil snapshot")
	}

	entities := snap.Entities()
	wire := wireSnapshot[S]{
		State:    snap.State(),
		Entities: make([]wireEntity, len(entities)),
	}
	for i, es := range entities {
		comps := es.Components()
		id := uint64(es.Entity())
		if renumber {
			id = uint64(i + 1)
		}
		we := wireEntity{
			Entity:     id,
			Components: make([]wireComponent, len(comps)),
		}
		for j, cv := range comps {
			we.Components[j] = wireComponent{Kind: uint8(cv.Kind()), Value: cv.Value()}
		}
		wire.Entities[i] = we
	}

	data, err := json.Marshal(wire)
	if err != nil {
		return nil, eris.Wrap(err, "marshal snapshot")
	}
	return data, nil
}

// Unmarshal decodes data produced by Marshal. Every component value is
// rebuilt as the Go type its kind is registered with; a kind unknown to
// registry fails the whole decode.
func Unmarshal[S any](registry *ecs.ComponentRegistry, data []byte) (*ecs.Snapshot[S], error) {
	var raw rawSnapshot[S]
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, eris.Wrapf(ErrMalformed, "decode snapshot: %v", err)
	}

	entities := make([]ecs.EntitySnapshot, 0, len(raw.Entities))
	for _, re := range raw.Entities {
		if re.Entity == 0 {
			return nil, eris.Wrap(ErrMalformed, "zero entity")
		}
		comps := make([]ecs.ComponentValue, 0, len(re.Components))
		for _, rc := range re.Components {
			if rc.Kind == nil {
				return nil, eris.Wrapf(ErrMalformed, "entity %d: component without kind", re.Entity)
			}
			value := rc.Value
			cv, err := registry.DecodeComponent(ecs.Kind(*rc.Kind), func(dst any) error {
				return json.Unmarshal(value, dst)
			})
			if err != nil {
				return nil, eris.Wrapf(err, "entity %d", re.Entity)
			}
			comps = append(comps, cv)
		}
		entities = append(entities, ecs.NewEntitySnapshot(ecs.Entity(re.Entity), comps...))
	}

	return ecs.NewSnapshot(raw.State, entities...), nil
}

// Checksum hashes the canonical encoding of snap.
func Checksum[S any](snap *ecs.Snapshot[S]) (uint64, error) {
	data, err := Marshal(snap)
	if err != nil {
		return 0, err
	}
	return xxhash.Sum64(data), nil
}

// ShapeChecksum hashes snap with every entity replaced by its rank, 1 for the
// lowest. Two stores that created the same entities under different
// identifiers hash equal. Entity identifiers stored inside component values
// or the state are hashed as they are.
func ShapeChecksum[S any](snap *ecs.Snapshot[S]) (uint64, error) {
	data, err := encode(snap, true)
	if err != nil {
		return 0, err
	}
	return xxhash.Sum64(data), nil
}

var (
	encoderOnce = sync.OnceValues(func() (*zstd.Encoder, error) {
		return zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	})
	decoderOnce = sync.OnceValues(func() (*zstd.Decoder, error) {
		return zstd.NewReader(nil)
	})
)

// Pack encodes snap and compresses the result with zstd.
func Pack[S any](snap *ecs.Snapshot[S]) ([]byte, error) {
	data, err := Marshal(snap)
	if err != nil {
		return nil, err
	}
	enc, err := encoderOnce()
	if err != nil {
		return nil, eris.Wrap(err, "create zstd encoder")
	}
	return enc.EncodeAll(data, make([]byte, 0, len(data)/2)), nil
}

// Unpack reverses Pack.
func Unpack[S any](registry *ecs.ComponentRegistry, packed []byte) (*ecs.Snapshot[S], error) {
	dec, err := decoderOnce()
	if err != nil {
		return nil, eris.Wrap(err, "create zstd decoder")
	}
	data, err := dec.DecodeAll(packed, nil)
	if err != nil {
		return nil, eris.Wrapf(ErrMalformed, "decompress snapshot: %v", err)
	}
	return Unmarshal[S](registry, data)
}
