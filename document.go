package main

import (
	"io/fs"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/camerondurham/painful-testing/util"
)

type docRefKind int

const (
	docRefPath docRefKind = iota + 1
	docRefRaw
)

// DocRef points at a JSON document, either a file on disk or inline text.
// The zero value refers to nothing and fails to resolve.
type DocRef struct {
	kind  docRefKind
	value string
}

func PathRef(path string) DocRef {
	return DocRef{kind: docRefPath, value: path}
}

func RawRef(content string) DocRef {
	return DocRef{kind: docRefRaw, value: content}
}

// DocRefFromArg treats arguments that look like inline JSON as raw content and
// everything else as a path.
func DocRefFromArg(arg string) DocRef {
	trimmed := strings.TrimSpace(arg)
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		return RawRef(arg)
	}
	return PathRef(arg)
}

func (d DocRef) IsPath() bool {
	return d.kind == docRefPath
}

func (d DocRef) String() string {
	switch d.kind {
	case docRefPath:
		return d.value
	case docRefRaw:
		return "inline document " + util.Abbreviate(d.value, 40)
	}
	return "<empty document reference>"
}

// Resolve returns the document text. Files are read again on every call.
func (d DocRef) Resolve() (string, error) {
	switch d.kind {
	case docRefRaw:
		return d.value, nil
	case docRefPath:
		b, err := os.ReadFile(d.value)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return "", errors.Wrapf(ErrNotFound, "no file at %s", d.value)
			}
			return "", errors.Wrapf(ErrIO, "failed to read %s: %v", d.value, err)
		}
		return string(b), nil
	}
	return "", errors.Wrap(ErrIO, "empty document reference")
}

// ResolveJSON resolves the document and decodes it, keeping numbers as
// json.Number.
func (d DocRef) ResolveJSON() (interface{}, error) {
	text, err := d.Resolve()
	if err != nil {
		return nil, err
	}
	var doc interface{}
	if err := DecodeJson(text, &doc); err != nil {
		return nil, errors.Wrapf(ErrInvalidDocument, "%s: %v", d, err)
	}
	return doc, nil
}

// readJSONFile loads a file that must hold a single JSON document and returns
// its raw bytes.
func readJSONFile(what, path string) ([]byte, error) {
	text, err := PathRef(path).Resolve()
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to read %s file at %s", what, path)
	}
	var doc interface{}
	if err := DecodeJson(text, &doc); err != nil {
		return nil, errors.Wrapf(ErrInvalidDocument, "%s file at %s: %v", what, path, err)
	}
	return []byte(text), nil
}
