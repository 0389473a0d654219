// Package services is the YouTube Data API v3 client.
//
// [YouTube] exposes the logical endpoints the client needs: video details, search, related videos, the trending
// chart and playlist items. Every call goes through [fetch.Client], so responses are cached, identical concurrent
// requests are coalesced and API keys are rotated on quota or authorization failures.
//
// # Error Handling
//
// Callers never see transport errors. Anything that leaves a resource unavailable (every key exhausted, a
// non-quota upstream error, a malformed body, a cancelled wait) is reported as [shared.ErrSourceUnavailable].
//
// # API Mappings
//
// Responses are normalized into [models.Video] records by the normalize package. Items whose id cannot be
// resolved are dropped and reported to the event sink.
package services
