// SPDX-License-Identifier: MPL-2.0

// Package header models manifest header values such as Import-Package and
// Export-Package as ordered lists of clauses.
//
// A header value is a comma-separated list of clauses. Each clause is a
// semicolon-separated list whose leading tokens are names and whose remaining
// tokens are attributes (`key=value`) or directives (`key:=value`):
//
//	com.acme.widgets;version="[1.0,2)";resolution:=optional,org.slf4j
//
// Directive keys are stored with their trailing colon ("resolution:") so that a
// parsed clause prints back exactly as it was written. Printing filters
// attributes through an AllowList; DefaultAllowList keeps the OSGi directives
// and the version attribute.
//
// Instruction patterns (`com.acme.*`, `!com.acme.internal`) used to select
// packages are compiled with ParseInstructions.
package header
