// Package tempstore is a small typed key-value store with pluggable
// persistence and optional per-entry expiration.
//
// A Store wraps a Provider. Providers persist values in a tagged JSON form
// that keeps dates ([time.Time]) and binary data ([]byte) intact at any
// nesting depth; see the jsonfile, boltdb and nats packages.
//
//	p, err := jsonfile.Open("data.json", jsonfile.Options{})
//	if err != nil {
//		return err
//	}
//	s := tempstore.New(p)
//	defer s.Close()
//
//	_ = s.Set("session", map[string]any{"user": "ada"}, tempstore.ExpireAt(time.Now().Add(time.Hour)))
//	v, ok, err := s.Get("session")
//
// Values read back use the JSON shapes: nil, bool, string, float64, []any
// and map[string]any, plus time.Time and []byte.
package tempstore
