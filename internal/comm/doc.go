// Package comm provides the collective communication used between ranks.
//
// Ranks run as goroutines inside a World. Every collective is a barrier:
// all ranks of the World must call it, in the same order, or the call never
// completes. The World turns a rank failure into ErrAborted for its peers so
// a failed run does not leave goroutines blocked forever.
//
// All reductions fold contributions in rank order, so results are
// bit-identical on every rank and reproducible for a fixed rank count.
package comm
