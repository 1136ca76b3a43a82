// Package storage writes downloaded images to the output directory.
//
// Every image is named <id>.jpg and written through a temp file and rename,
// so a rerun of the same record overwrites the same path.
package storage
