// Package checkpoint persists batch progress next to the downloaded images.
//
// Two files live in the output folder:
//   - download_state.json holds {"lastProcessedIndex": N}, the index of the
//     last record handled (downloaded or recorded as failed). A resumed run
//     starts at N, so the boundary record is processed again.
//   - failed.json holds a pretty-printed array of failures. It accumulates
//     across runs and is only written when the list is non-empty.
//
// Both files are replaced through a temp file and rename.
package checkpoint
