/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package snapshot persists the content of an LRU cache to a flat text file and loads it back.
//
// A snapshot contains one record per line:
//
//	<key>:<value>
//
// The first unescaped colon separates the key from the value.
// Backslash, colon, line feed and carriage return are escaped inside keys and values
// as \\, \:, \n and \r respectively, so any key or value survives a save/load round trip.
// A line without a delimiter, with an invalid escape sequence, or with a key or value
// that cannot be parsed by the codec is skipped on import.
//
// Records are replayed in file order through the regular Put operation of the target cache.
// If a snapshot holds more records than the cache capacity, later records evict earlier ones.
// A missing snapshot file is not an error: loading it yields an empty result.
package snapshot
