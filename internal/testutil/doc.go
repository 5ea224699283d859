// SPDX-License-Identifier: MPL-2.0

// Package testutil holds test helpers: file helpers (MustWriteFile,
// MustClose) and in-memory JAR fixtures (BuildJar, WriteJar, ReadJar).
package testutil
