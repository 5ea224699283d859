// SPDX-License-Identifier: MPL-2.0

package header

// Manifest header names read or written during bundle synthesis.
const (
	ImportPackage         = "Import-Package"
	ExportPackage         = "Export-Package"
	BundleSymbolicName    = "Bundle-SymbolicName"
	BundleName            = "Bundle-Name"
	BundleVersion         = "Bundle-Version"
	BundleManifestVersion = "Bundle-ManifestVersion"
)
