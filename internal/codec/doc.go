// Package codec maps runtime values to the tagged, JSON-safe form stored by
// providers, and back.
//
// Three variants exist on the wire:
//
//	{"type": "primitive", "value": <json>,   "option"?: {"expire"?: <ms>}}
//	{"type": "date",      "date":  <iso8601>, "option"?: {...}}
//	{"type": "buffer",    "buf":   <base64>,  "option"?: {...}}
//
// Containers are encoded recursively: every element of a primitive sequence or
// mapping is itself a tagged value, so dates and buffers may appear at any
// depth. Decoding never fails; anything unrecognised decodes to nil.
package codec
