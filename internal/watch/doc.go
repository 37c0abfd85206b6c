// Package watch turns a directory into a drop folder: every video that appears
// in it is run through the pipeline and its notes are written next to it as
// <name>.notes.txt.
package watch
