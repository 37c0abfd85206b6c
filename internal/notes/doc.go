// Package notes turns a transcript into the heading-and-bullet study notes that
// are shown and downloaded.
//
// Two strategies exist and are never combined. The split strategy summarizes
// the transcript and partitions the summary on ". ", producing one numbered
// heading with one bullet per surviving sentence; its output is always
// well-formed. The prompt strategy wraps the transcript in a study-notes
// instruction and renders the model's reply verbatim.
//
// The package also renders notes as a Word document and holds the static
// topic panels shown beside every upload.
package notes
