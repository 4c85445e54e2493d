// Package markdown extracts page metadata from YAML front matter and renders
// page bodies to HTML with goldmark.
package markdown
