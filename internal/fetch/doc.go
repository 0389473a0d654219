// Package fetch is the quota-aware access layer every upstream call goes through.
//
// [Client.Resource] resolves a cache key in three steps:
//
//  1. A fresh entry in [Cache] is returned without touching the network.
//  2. An in-flight request for the same key is joined rather than duplicated (singleflight).
//  3. Otherwise the credential set is walked once from its cursor. Each response is judged by a [Classifier]:
//     [Accept] stores and returns the body, [Rotate] advances the credential and retries, [Abort] gives up.
//
// Every failure collapses to "unavailable" (a false second return). Transport errors, malformed payloads and
// credential exhaustion are reported through the [events.Sink] instead of being returned.
//
// # Cache
//
// [Cache] keeps entries in memory with an optional Redis tier behind it. Entries carry the cache-format version
// they were written under; raising the configured version makes every older entry read as absent.
package fetch
