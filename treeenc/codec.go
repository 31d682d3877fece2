package treeenc

import (
	"bytes"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/regionlift/errors"
)

// Lifted trees nest one level per rewrite, so the decoder limit is raised to
// the library maximum.
const maxNestedLevels = 65535

var (
	cborEncMode cbor.EncMode
	cborDecMode cbor.DecMode
)

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("treeenc: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em

	dm, err := cbor.DecOptions{
		MaxNestedLevels:  maxNestedLevels,
		MaxArrayElements: 1 << 24,
		MaxMapPairs:      1 << 24,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("treeenc: failed to create CBOR dec mode: %v", err))
	}
	cborDecMode = dm
}

// MarshalCBOR serializes docs with canonical CBOR encoding.
func MarshalCBOR(docs []Document) ([]byte, error) {
	data, err := cborEncMode.Marshal(docs)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseEmit, errors.KindInvalidData, err, "encode CBOR")
	}
	return data, nil
}

// UnmarshalCBOR deserializes documents written by MarshalCBOR.
func UnmarshalCBOR(data []byte) ([]Document, error) {
	var docs []Document
	if err := cborDecMode.Unmarshal(data, &docs); err != nil {
		return nil, errors.ParseFailed("tree CBOR", err)
	}
	return docs, nil
}

// MarshalYAML renders docs as a YAML sequence.
func MarshalYAML(docs []Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(docs); err != nil {
		return nil, errors.Wrap(errors.PhaseEmit, errors.KindInvalidData, err, "encode YAML")
	}
	if err := enc.Close(); err != nil {
		return nil, errors.Wrap(errors.PhaseEmit, errors.KindInvalidData, err, "encode YAML")
	}
	return buf.Bytes(), nil
}

// UnmarshalYAML reads documents written by MarshalYAML.
func UnmarshalYAML(data []byte) ([]Document, error) {
	var docs []Document
	if err := yaml.Unmarshal(data, &docs); err != nil {
		return nil, errors.ParseFailed("tree YAML", err)
	}
	return docs, nil
}
