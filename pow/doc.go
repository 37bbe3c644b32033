/*
Package pow implements a client-puzzle proof of work over independent challenge fragments.

A challenge carries a difficulty and a list of random 16 byte fragments. For every fragment the
solver searches, starting at zero, for the smallest 128 bit nonce such that the first four bytes
of blake2b-512(fragment || little-endian nonce), read as a big-endian integer, are strictly less
than math.MaxUint32 - difficulty. Fragments are searched concurrently, one goroutine each, and the
nonce of every solved fragment is reported to a progress notifier as soon as it is found.

Verification recomputes one hash per proof. A solution is valid if every fragment of the challenge
is covered by at least one proof and every proof in the solution meets the difficulty.
*/
package pow
