// Package lib holds integrations that do not belong to a single layer:
// background jobs on Asynq and transactional email through Resend.
package lib
