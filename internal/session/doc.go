// Package session keeps one ideation.Client per conversation for the HTTP
// service, bounded by an idle TTL and a maximum count.
package session
