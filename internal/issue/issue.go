// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/slices"
)

// Id identifies a catalogued issue.
type Id int

const (
	ArchiveNotFoundId Id = iota + 1
	ArchiveInvalidId
	MalformedInstructionsId
	HeaderSyntaxId
	VersionTableInvalidId
	ConfigLoadFailedId
	InvalidOverwriteModeId
	ResourceUnavailableId
	OutputNotWritableId
)

type MarkdownMsg string

type HttpLink string

type Renderer interface {
	Render(in string, stylePath string) (string, error)
}

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink  // project documentation for the issue
	extLinks []HttpLink  // external references, e.g. OSGi core chapters
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Render renders the issue as terminal markdown using the glamour style at
// stylePath ("" selects the automatic style).
func (i *Issue) Render(stylePath string) (string, error) {
	var md strings.Builder
	md.WriteString(string(i.mdMsg))
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		md.WriteString("\n\n## See also\n")
		for _, link := range append(slices.Clone(i.docLinks), i.extLinks...) {
			md.WriteString("\n- <" + string(link) + ">")
		}
	}
	if stylePath == "" {
		stylePath = "auto"
	}
	return render(md.String(), stylePath)
}

var (
	render = glamour.Render

	archiveNotFoundIssue = &Issue{
		id: ArchiveNotFoundId,
		mdMsg: `
# Archive not found!

fabwrap could not open the archive you asked it to wrap.

## Things you can try:
- Check the path for typos
- Pass the archive as the first argument:
~~~
$ fabwrap wrap ./build/libs/app.jar -o app-bundle.jar
~~~`,
	}

	archiveInvalidIssue = &Issue{
		id: ArchiveInvalidId,
		mdMsg: `
# Not a valid archive!

The input could not be read as a ZIP/JAR archive, or its
META-INF/MANIFEST.MF is malformed.

## Things you can try:
- Verify the file with:
~~~
$ unzip -l app.jar
~~~
- Rebuild the archive; truncated downloads are a common cause
- Manifest lines must be at most 72 bytes, continued with a leading space`,
		extLinks: []HttpLink{"https://docs.oracle.com/en/java/javase/21/docs/specs/jar/jar.html"},
	}

	malformedInstructionsIssue = &Issue{
		id: MalformedInstructionsId,
		mdMsg: `
# Malformed instructions!

Instructions are given as a query string of ` + "`key=value`" + ` pairs joined with ` + "`&`" + `.
Keys are letters, digits, ` + "`-`, `_`" + ` and ` + "`.`" + `; values may be percent-encoded.

## Example:
~~~
$ fabwrap wrap app.jar --instructions 'Bundle-SymbolicName=com.acme.app&Import-Package=com.acme.*'
~~~`,
	}

	headerSyntaxIssue = &Issue{
		id: HeaderSyntaxId,
		mdMsg: `
# Invalid header syntax!

A package header (for example Import-Package or the extra imports) could not
be parsed.

## Common issues:
- Attributes without a package name, e.g. ` + "`;version=1`" + `
- Unbalanced quotes around version ranges
- Version ranges containing commas must be quoted:
~~~
org.slf4j;version="[1.7,2)"
~~~`,
		extLinks: []HttpLink{"https://docs.osgi.org/specification/osgi.core/8.0.0/framework.module.html#framework.common.header.syntax"},
	}

	versionTableInvalidIssue = &Issue{
		id: VersionTableInvalidId,
		mdMsg: `
# Invalid version table!

The versions file maps package names (or ` + "`prefix.*`" + ` patterns) to version
ranges and could not be loaded.

## Example (YAML):
~~~yaml
packages:
  org.slf4j: "[1.7,2)"
  com.acme.*: "[2,3)"
~~~

Supported formats are .cue, .yaml, .yml and .toml.`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

fabwrap could not read or validate its configuration file.

## Things you can try:
- Check the configuration file for syntax errors
- Show the effective configuration:
~~~
$ fabwrap config show
~~~
- Remove the file to fall back to defaults`,
	}

	invalidOverwriteModeIssue = &Issue{
		id: InvalidOverwriteModeId,
		mdMsg: `
# Invalid overwrite mode!

The overwrite mode decides what happens to an existing manifest.

## Valid modes:
- ` + "`keep`" + ` leaves archives that already declare packages untouched (default)
- ` + "`merge`" + ` recomputes the manifest and keeps existing headers
- ` + "`overwrite`" + ` recomputes the manifest from scratch`,
	}

	resourceUnavailableIssue = &Issue{
		id: ResourceUnavailableId,
		mdMsg: `
# Resource could not be embedded!

An embedded resource is given as ` + "`path=source`" + `, where source is a local
path or a file, http or https URL. Resources that cannot be fetched are
skipped and the bundle is produced without them.

## Things you can try:
- Check network access for remote sources
- Clear the resource cache directory and retry`,
	}

	outputNotWritableIssue = &Issue{
		id: OutputNotWritableId,
		mdMsg: `
# Cannot write the bundle!

## Things you can try:
- Check that the output directory exists and is writable
- Write to standard output instead by omitting ` + "`-o`",
	}

	issues = map[Id]*Issue{
		archiveNotFoundIssue.Id():       archiveNotFoundIssue,
		archiveInvalidIssue.Id():        archiveInvalidIssue,
		malformedInstructionsIssue.Id(): malformedInstructionsIssue,
		headerSyntaxIssue.Id():          headerSyntaxIssue,
		versionTableInvalidIssue.Id():   versionTableInvalidIssue,
		configLoadFailedIssue.Id():      configLoadFailedIssue,
		invalidOverwriteModeIssue.Id():  invalidOverwriteModeIssue,
		resourceUnavailableIssue.Id():   resourceUnavailableIssue,
		outputNotWritableIssue.Id():     outputNotWritableIssue,
	}
)

// Values returns every catalogued issue ordered by Id.
func Values() []*Issue {
	out := make([]*Issue, 0, len(issues))
	for _, i := range issues {
		out = append(out, i)
	}
	slices.SortFunc(out, func(a, b *Issue) int { return int(a.id) - int(b.id) })
	return out
}

func Get(id Id) *Issue {
	return issues[id]
}
