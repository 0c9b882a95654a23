// Package render turns Mermaid diagram source into image files.
//
// Validate performs a cheap structural check (known diagram header, balanced
// brackets) so obviously broken analyzer output is rejected before a version
// is stored. Render shells out to the Mermaid CLI (mmdc) with the configured
// theme, background and output format, writing into the diagram directory.
package render
