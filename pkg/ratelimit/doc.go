// Package ratelimit throttles outgoing requests.
//
// TokenBucket spaces feed page requests using golang.org/x/time/rate.
// FixedPause sleeps a constant duration after every image attempt, successful or not.
// Both honour context cancellation.
package ratelimit
