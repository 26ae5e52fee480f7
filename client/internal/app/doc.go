// Package app holds the controller that ties the session, the API client,
// the stream manager and the display together.
//
// Every entry point that acquires a credential follows the same order:
// persist the credential, load history into the display, then start the
// stream with reconnection enabled. Logout disables reconnection and closes
// the stream before erasing the credential.
package app
