// Package domain contains the core entities of the spaced-repetition system:
// users, the card catalog, per-user card memory states, and the append-only
// review log. Entities validate their own invariants; all scheduling logic
// lives in the srs subpackage.
package domain
