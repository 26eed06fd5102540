package op

import (
	"encoding/json"
	"fmt"
)

// EncodeParams serializes params to JSON. The kind travels separately so the
// payload can be decoded into the right concrete type.
func EncodeParams(p Params) (Kind, json.RawMessage, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return "", nil, fmt.Errorf("failed to marshal %s params: %w", p.Kind(), err)
	}
	return p.Kind(), raw, nil
}

// DecodeParams deserializes a params payload for the given kind. Join
// operations come back without their right-hand frame; the caller reloads it
// from the recorded path before validation.
func DecodeParams(kind Kind, raw json.RawMessage) (Params, error) {
	var (
		p   Params
		err error
	)
	switch kind {
	case KindFilter:
		var v FilterParams
		err = json.Unmarshal(raw, &v)
		p = v
	case KindSearch:
		var v SearchParams
		err = json.Unmarshal(raw, &v)
		p = v
	case KindAggregate:
		var v AggregateParams
		err = json.Unmarshal(raw, &v)
		p = v
	case KindPivot:
		var v PivotParams
		err = json.Unmarshal(raw, &v)
		p = v
	case KindJoin:
		var v JoinParams
		err = json.Unmarshal(raw, &v)
		p = v
	case KindSort:
		var v SortParams
		err = json.Unmarshal(raw, &v)
		p = v
	case KindColumnEdit:
		var v ColumnEditParams
		err = json.Unmarshal(raw, &v)
		p = v
	default:
		return nil, fmt.Errorf("unknown operation kind %q", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s params: %w", kind, err)
	}
	return p, nil
}
