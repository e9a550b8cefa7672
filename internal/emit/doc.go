// Package emit writes collected package contents as zstd-compressed tar
// archives, each led by a manifest describing its payload.
package emit
