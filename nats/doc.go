// Package nats is a tempstore.Provider backed by a NATS JetStream key-value
// bucket. Unlike the file providers, several processes may share a bucket;
// each write is independent and the last one wins.
package nats
