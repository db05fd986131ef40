package invoice

import (
	"fmt"
	"sort"

	"github.com/lightningnetwork/lnd/tlv"
)

// ExtensionField is a tagged record whose tag this implementation does not
// recognize. The value is opaque and must survive a decode/encode round trip
// byte for byte.
type ExtensionField struct {
	// Type is the unrecognized record tag.
	Type tlv.Type

	// Value is the raw record payload.
	Value []byte
}

// ExtensionFields is the ordered bag of unrecognized records retained by an
// invoice. Records are kept sorted by tag, matching the canonical TLV stream
// order they were decoded from and will be re-encoded in.
type ExtensionFields []ExtensionField

// copy returns a deep copy of the fields.
func (e ExtensionFields) copy() ExtensionFields {
	if len(e) == 0 {
		return nil
	}

	fields := make(ExtensionFields, len(e))
	for i, field := range e {
		value := make([]byte, len(field.Value))
		copy(value, field.Value)
		fields[i] = ExtensionField{Type: field.Type, Value: value}
	}

	return fields
}

// add inserts a field keeping the tag order, rejecting recognized registry
// tags and duplicates.
func (e ExtensionFields) add(field ExtensionField) (ExtensionFields, error) {
	if isKnownTag(field.Type) {
		return nil, fmt.Errorf("tag %d belongs to the recognized "+
			"field registry", field.Type)
	}
	for _, existing := range e {
		if existing.Type == field.Type {
			return nil, fmt.Errorf("duplicate extension tag %d",
				field.Type)
		}
	}

	fields := append(e.copy(), field)
	sort.Slice(fields, func(i, j int) bool {
		return fields[i].Type < fields[j].Type
	})

	return fields, nil
}
