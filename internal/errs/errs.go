// Package errs defines the error shapes returned to API clients.
//
// Every handler failure ends up as an *HTTPError so clients always receive
// the same JSON body: a machine code, a message, the status, optional
// field errors for forms and an optional action (e.g. redirect to login).
package errs
