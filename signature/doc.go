// Package signature parses encoded type descriptions of methods and
// properties into structured signatures.
//
// An encoding is a return type, an optional frame size, then each argument
// type followed by its stack offset. Types are primitives, pointers, fixed
// size arrays, structs and unions (with or without field names), bit-fields
// and qualified types. Malformed input never panics; unrecognised parts come
// back as Unknown.
package signature
