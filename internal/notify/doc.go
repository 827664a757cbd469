// Package notify delivers issue announcements to interested parties.
//
// Dispatchers implement newsletter.NotificationDispatcher and are
// fire-and-forget: delivery failures are logged, never surfaced to the
// caller. Webhook delivery posts a JSON payload to configured
// endpoints; email delivery renders liquid templates and sends through
// AWS SESv2 to the newsletter's subscribers.
package notify
