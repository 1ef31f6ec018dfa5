// Package queue defines message payloads exchanged over the message broker
// and the consumer that turns them into delivered email.
package queue

// EmailTokenQueue is the default durable queue carrying login tokens.
const EmailTokenQueue = "auth.email_token"

// LoginTokenEvent is published by the API when a user asks to log in.  It
// contains the plain code because the consumer has to put it in the mail;
// the broker is therefore part of the trusted path.
type LoginTokenEvent struct {
	Email     string `json:"email"`
	Token     string `json:"token"`
	IssuedAt  string `json:"issued_at"`
	ExpiresAt string `json:"expires_at"`
}
