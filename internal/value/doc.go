// Package value provides the type-erased payload stored in graph attributes.
//
// Value is a sealed interface implemented only by Null, String, Int, Bool,
// Array and Object. Attribute cells clone values on copy-on-write, so every
// kind supports a deep Clone; Equal compares by kind and content.
//
// Key design constraints:
//   - NO float kind. Numbers are int64 so canonical encodings and digests are
//     reproducible across producers and consumers.
//   - Object keys serialise in UTF-16 code unit order (RFC 8785).
//   - Canonical JSON (MarshalCanonical) is the only encoding used for digests.
package value
