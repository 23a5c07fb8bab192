// Package reload turns page edits into ordered patch sets.
//
// A Coordinator owns the per-page state of a live-reload session: the
// generation counter, the last published document in the cache, and an
// optional persistent snapshot store used when the cache is cold. Each
// Update parses, indexes and processes the new source, diffs it against the
// last published version and hands the result to a Sink.
//
// Updates to the same page supersede each other: starting a newer update
// cancels the older one, and a result is never published after a newer
// generation of the same page. Updates to different pages run
// independently.
//
// Watcher feeds a Coordinator from file-system events.
package reload
