package fetcher

import "fmt"

// SourceError reports that a page could not be read into a slot list: bad URL,
// navigation failure, missing controls or an unparseable page.
type SourceError struct {
	URL     string
	Message string
	Err     error
}

func (e *SourceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("source error for %s: %s: %v", e.URL, e.Message, e.Err)
	}
	return fmt.Sprintf("source error for %s: %s", e.URL, e.Message)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

func sourceErr(url, message string, err error) *SourceError {
	return &SourceError{URL: url, Message: message, Err: err}
}
