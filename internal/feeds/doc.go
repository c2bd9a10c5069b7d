// Package feeds turns RSS documents into plain-text news items.
//
// Parse decodes one RSS 2.0 document. Bodies prefer content:encoded over
// description, lose their HTML markup through goquery, and every field has
// stray CDATA markers removed. Dates that cannot be parsed surface as an
// item-level *DateError so callers decide whether to drop the item.
//
// Aggregator downloads many sources at once and isolates failures per
// source: a timeout, a non-2xx status or a malformed document only removes
// that source's items from the result. Filter then keeps items that are
// fresh and free of censored words, preserving input order.
package feeds
