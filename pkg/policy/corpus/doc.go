// Package corpus manages the fixed policy document set consulted during
// policy evaluation. Documents are YAML files loaded from a directory and
// ranked by lexical overlap with transaction attributes.
//
// The corpus is immutable between loads; Search operates on a snapshot, so
// reads never block a reload. An optional fsnotify watcher reloads the
// corpus when files change, with debouncing to avoid reload storms.
package corpus
