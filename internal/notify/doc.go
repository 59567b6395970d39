// Package notify carries user-facing notifications and graph change events.
//
// Every terminal workflow outcome produces exactly one Notification. Sinks
// receive notifications; they never influence control flow. EventBus fans
// events (notifications and graph changes) out to subscribers such as the SSE
// hub and the canvas journal.
package notify
