// SPDX-License-Identifier: MPL-2.0

// fabwrap turns plain JAR archives into OSGi bundles.
package main

import cmd "github.com/zhanleewo/fuse/cmd/fabwrap"

func main() {
	cmd.Execute()
}
