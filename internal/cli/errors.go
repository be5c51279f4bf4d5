package cli

import "fmt"

type notFoundError struct {
	kind string
	id   int64
}

func (e notFoundError) Error() string {
	return fmt.Sprintf("%s not found: %d", e.kind, e.id)
}

func errNotFound(kind string, id int64) error {
	return notFoundError{kind: kind, id: id}
}

type emptyClipboardError struct{}

func (emptyClipboardError) Error() string { return "nothing to paste" }
