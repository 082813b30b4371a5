// Package keywords builds the multilingual filter word set.
//
// The base list comes from a plain text file, one word per line. A YAML
// translation map adds synonyms in other languages:
//
//	scam:
//	  - estafa
//	  - arnaque
//
// Expand unions base words, translation keys and synonyms into a Set. The
// Expander caches the resulting Set together with its compiled matcher and
// rebuilds both only when the expanded content changes, so every upload in
// between reuses the same read-only Snapshot.
package keywords
