// Package token generates claim tokens for queue rows.
//
// A token is recorded on a row when a consumer claims it. Tokens combine the
// current time in nanoseconds, the process ID, a per-generator sequence and a
// random suffix, so two tokens produced in the same clock tick by the same
// process still differ.
package token
