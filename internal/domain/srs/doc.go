// Package srs implements the spaced-repetition scheduling engine: a
// power-law forgetting curve, the difficulty/stability update rules driven by
// it, the New/Learning/Review/Relearning state machine that turns ratings
// into next due dates, and the due-queue builder.
//
// Everything here is pure: the engine mutates nothing it is given, performs
// no I/O, and isolates its only nondeterminism (interval fuzz) behind an
// injectable random source. Persistence and ordering of calls are the
// caller's concern.
package srs
