// Package config loads the Replicore settings file. Settings are written
// in CUE and validated twice: structurally against a built-in CUE schema
// (unknown fields and wrong types fail the load) and semantically with
// struct-tag validation after decoding. Fields absent from the file keep
// their defaults.
package config
