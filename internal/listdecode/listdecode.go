// Package listdecode turns a schema-prefixed array of records into
// session-state-shaped maps. The wire occasionally sends bulk lists this
// way instead of as already-structured objects, to save bytes: one schema
// line up front, then one positionally-aligned array per record.
package listdecode

import "log"

// SchemaElement is one entry of a schema descriptor: either a bare
// property name, or a nested bag name with its own sub-property list.
type SchemaElement struct {
	Property string
	Bag      string
	BagProps []string
}

// slot is one flattened assignment target: either a top-level property
// name, or a (bag, property) pair.
type slot struct {
	bag  string
	prop string
}

// ParseSchema reads a schema descriptor array (as decoded from JSON: each
// element is either a string or a single-key map {bag: [...]}) into a
// slice of SchemaElement.
func ParseSchema(raw []any) []SchemaElement {
	elems := make([]SchemaElement, 0, len(raw))
	for _, e := range raw {
		switch v := e.(type) {
		case string:
			elems = append(elems, SchemaElement{Property: v})
		case map[string]any:
			for bagName, propsRaw := range v {
				props := toStringSlice(propsRaw)
				elems = append(elems, SchemaElement{Bag: bagName, BagProps: props})
				break // single-key mapping by contract
			}
		}
	}
	return elems
}

func toStringSlice(v any) []string {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, e := range arr {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// flatten expands schema elements into an ordered list of assignment
// slots: one per bare property, or one per sub-property of a nested bag.
func flatten(schema []SchemaElement) []slot {
	var slots []slot
	for _, e := range schema {
		if e.Bag == "" {
			slots = append(slots, slot{prop: e.Property})
			continue
		}
		for _, p := range e.BagProps {
			slots = append(slots, slot{bag: e.Bag, prop: p})
		}
	}
	return slots
}

// Record is the decoded shape of one list entry: a flat map of top-level
// properties plus nested bags under their bag name.
type Record map[string]any

// Decode takes the raw decoded-JSON form of a MANAGELIST/tag-style list
// body and returns one Record per entry. input is either:
//   - an already-structured map keyed by id (tag response): each value
//     that is itself a map becomes one Record, non-map values skipped; or
//   - a schema-prefixed array: input[0] is the schema descriptor, and
//     input[1:] are records, each itself an array of values aligned to the
//     flattened schema (a record that is itself already a map, rather than
//     an array, is passed through unchanged).
//
// A record with fewer values than slots is accepted with the missing
// trailing slots left unset; a record with more values than the slot
// count has its excess values ignored (logged at a low level, not
// treated as an error — malformed bulk lists must not take down the
// stream).
func Decode(input any) []Record {
	if m, ok := input.(map[string]any); ok {
		return passThroughMap(m)
	}
	arr, ok := input.([]any)
	if !ok || len(arr) == 0 {
		return nil
	}
	schemaRaw, isSchemaArray := arr[0].([]any)
	if !isSchemaArray {
		return passThrough(arr)
	}
	schema := ParseSchema(schemaRaw)
	slots := flatten(schema)

	records := make([]Record, 0, len(arr)-1)
	for _, raw := range arr[1:] {
		values, isArray := raw.([]any)
		if !isArray {
			// Already structured; pass through unchanged.
			if m, ok := raw.(map[string]any); ok {
				records = append(records, Record(m))
			}
			continue
		}
		records = append(records, alignRecord(slots, values))
	}
	return records
}

func alignRecord(slots []slot, values []any) Record {
	if len(values) > len(slots) {
		log.Printf("listdecode: record has %d values for %d slots, ignoring excess", len(values), len(slots))
	}
	rec := make(Record)
	n := len(values)
	if len(slots) < n {
		n = len(slots)
	}
	for i := 0; i < n; i++ {
		s := slots[i]
		if s.bag == "" {
			rec[s.prop] = values[i]
			continue
		}
		bag, ok := rec[s.bag].(map[string]any)
		if !ok {
			bag = make(map[string]any)
			rec[s.bag] = bag
		}
		bag[s.prop] = values[i]
	}
	return rec
}

func passThrough(input []any) []Record {
	records := make([]Record, 0, len(input))
	for _, raw := range input {
		if m, ok := raw.(map[string]any); ok {
			records = append(records, Record(m))
		}
	}
	return records
}

func passThroughMap(input map[string]any) []Record {
	records := make([]Record, 0, len(input))
	for _, raw := range input {
		if m, ok := raw.(map[string]any); ok {
			records = append(records, Record(m))
		}
	}
	return records
}
