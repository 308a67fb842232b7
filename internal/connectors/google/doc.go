// Package google provides shared infrastructure for the Google Calendar
// meeting provider.
//
// It contains:
//   - A static TokenSource wrapping the recorder's bearer token
//   - The Calendar service factory
//   - Error classification for common Google API failures (401, 403, 404, 429)
//   - Rate limiting with a 429 backoff window
//
// # Usage
//
//	ts := google.NewTokenSource(accessToken)
//	svc, err := google.NewCalendarService(ctx, ts)
//
// The access token must carry the calendar.readonly scope.
package google
