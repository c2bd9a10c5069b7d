// Package store persists noticieros, feed sources and broadcast settings in
// SQLite.
//
// State changes on a noticiero are conditional updates: a transition only
// applies when the row is still in the expected source state, so two
// concurrent publish requests cannot both succeed. Dynamic list queries are
// built with squirrel; fixed statements are plain SQL.
package store
