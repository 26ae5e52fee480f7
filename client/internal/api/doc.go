// Package api is the request/response client for the GroceryShopperAI backend.
//
// Client wraps signup, login, history, send and the room endpoints. A
// bearerRoundTripper reads the current credential from a TokenSource on every
// request, so a login or logout takes effect without rebuilding the client.
//
// Non-2xx responses become *Error carrying the status code and the server's
// "detail" text; callers surface Error() to the user. The API client never
// touches session or stream state.
package api
