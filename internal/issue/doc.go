// SPDX-License-Identifier: MPL-2.0

// Package issue holds fabwrap's user-facing errors: ActionableError, which
// carries recovery suggestions, and a catalogue of markdown issue pages
// rendered with glamour.
package issue
