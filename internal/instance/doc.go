// Package instance describes the backend instances being monitored.
// An Instance is an immutable value loaded once from configuration; it carries
// the URLs of the instance's health and traffic statistics endpoints.
package instance
