// SPDX-License-Identifier: MPL-2.0

// Package bundle turns plain archives into OSGi bundles.
//
// CreateBundle reads an archive, decides from the OverwriteMode whether its
// manifest has to be regenerated, embeds extra resources, computes the
// manifest through an analyzer.Scanner, merges caller supplied imports and
// back-fills missing versions, and finally streams the result:
//
//	res, err := bundle.CreateBundle(ctx, f, instr, "app.jar", bundle.Options{
//		Mode:         bundle.Merge,
//		ExtraImports: "com.acme.widgets;version=1.0",
//		Resolver:     versions,
//	})
//	if err != nil {
//		return err
//	}
//	defer res.Stream.Close()
//	_, err = io.Copy(out, res.Stream)
//
// The stream is produced by a background goroutine. A failure while writing
// is logged and ends the stream early unless WithErrorPropagation is set, so
// callers relying on the default must treat short output as a failure.
package bundle
