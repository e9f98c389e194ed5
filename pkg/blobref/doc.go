/*
Package blobref implements the canonical content-hash identifier used
throughout kvsd to name blobs in the content store.

A blobref is the ASCII string "<hashname>-<hexdigits>", e.g.
"sha1-da39a3ee5e6b4b0d3255bfef95601890afd80709". It never changes shape
once computed: two callers that hash the same bytes with the same
algorithm always produce the same blobref, and a blobref's string form
is what treeobj valref/dirref arrays carry on the wire.
*/
package blobref
