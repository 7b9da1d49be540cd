package httpclient

import "fmt"

// maxErrorBody caps how much of a failed response body ends up in an error.
const maxErrorBody = 512

// StatusErr is returned by StatusError for non-2xx responses.
type StatusErr struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusErr) Error() string {
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// Retryable reports whether the status is worth retrying later.
func (e *StatusErr) Retryable() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}

// StatusError returns a handler failing every non-2xx response.
func StatusError(provider string) ResponseErrorHandler {
	return func(statusCode int, body []byte) error {
		if statusCode >= 200 && statusCode < 300 {
			return nil
		}
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return &StatusErr{Provider: provider, StatusCode: statusCode, Body: string(body)}
	}
}

// redactedErr carries a masked message while keeping the cause for errors.Is.
type redactedErr struct {
	msg string
	err error
}

func (e *redactedErr) Error() string { return e.msg }
func (e *redactedErr) Unwrap() error { return e.err }

func (c *InstrumentedClient) redactErr(err error) error {
	if c.redactor == nil {
		return err
	}
	msg := c.redactor.Replace(err.Error())
	if msg == err.Error() {
		return err
	}
	return &redactedErr{msg: msg, err: err}
}
