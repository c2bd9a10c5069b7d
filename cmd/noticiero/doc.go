// Command noticiero is the editorial CLI: it drafts, reviews and publishes
// news bulletins, manages feed sources and broadcast settings, and runs the
// HTTP daemon in the foreground.
package main
