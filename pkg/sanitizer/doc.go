// Package sanitizer normalizes free-form request input before validation.
//
// All functions are idempotent: applying them twice gives the same result as
// applying them once. They never fail; input that cannot be cleaned becomes
// the empty string and is then rejected by validation.
package sanitizer
