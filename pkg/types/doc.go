// Package types defines the chat records shared by the API client, the
// stream manager and the UI sinks. They mirror the JSON the GroceryShopperAI
// backend returns from /api and pushes over /ws.
package types
