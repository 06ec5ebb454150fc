// Package boltdb is a tempstore.Provider backed by a bbolt bucket. Each key
// holds the JSON of its tagged value, so entries are readable by the jsonfile
// codec and vice versa.
package boltdb
