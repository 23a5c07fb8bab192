// Package cache holds the last published document of every page.
//
// No eviction, no persistence. Entries are immutable snapshots published
// through per-key atomic pointers: a reader observes either the entry
// before a concurrent insert or the one after it, and a writer on one page
// never blocks readers of another. Persistence lives in the store package.
package cache
