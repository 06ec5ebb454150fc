// Package jsonfile is a tempstore.Provider that keeps its database in memory
// and mirrors it to one JSON file.
//
// The file holds a single object mapping each key to its tagged value:
//
//	{"a": {"type": "date", "date": "2024-01-01T00:00:00.000Z"},
//	 "b": {"type": "buffer", "buf": "AAECAw==", "option": {"expire": 1704067200000}}}
//
// Every Set rewrites the whole file; there is no append log and no atomic
// rename, so it suits small datasets owned by one process. Delete only
// changes memory until the next Set or Flush.
package jsonfile
