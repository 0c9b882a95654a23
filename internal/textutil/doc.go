// Package textutil provides small text helpers shared across meetflow:
// filename sanitizing for rendered artifacts and the folding/edit-distance
// primitives used to merge near-duplicate owner labels.
//
// FoldKey lowercases with Unicode case folding, strips combining marks and
// collapses whitespace, so "José", "jose" and " JOSE " share one key.
package textutil
