// Package gender guesses a gender label from a first name.
//
// The reference data is a static name table (embedded names.yaml, or a
// replacement file) behind the Lookup interface. A Resolver wraps a Lookup
// for one pipeline run and memoizes every distinct token, so a dataset with
// thousands of rows sharing a name costs a single lookup.
package gender
