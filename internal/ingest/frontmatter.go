package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

var ErrNoFrontMatter = errors.New("missing front matter")

// FrontMatter is the YAML header of a legal source file:
//
//	---
//	title: Constitución Política del Estado
//	number: CPE-2009
//	---
type FrontMatter struct {
	Title  string `yaml:"title"`
	Number string `yaml:"number"`
}

// ParseFrontMatter splits data into its header and markdown body.
func ParseFrontMatter(data []byte) (*FrontMatter, string, error) {
	data = bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
	data = bytes.TrimPrefix(data, []byte("\ufeff"))
	if !bytes.HasPrefix(data, []byte("---\n")) {
		return nil, "", ErrNoFrontMatter
	}
	rest := data[len("---\n"):]
	var header, body []byte
	switch idx := bytes.Index(rest, []byte("\n---")); {
	case bytes.HasPrefix(rest, []byte("---")):
		body = rest[len("---"):]
	case idx >= 0:
		header = rest[:idx]
		body = rest[idx+len("\n---"):]
	default:
		return nil, "", ErrNoFrontMatter
	}
	if nl := bytes.IndexByte(body, '\n'); nl >= 0 {
		if strings.TrimSpace(string(body[:nl])) != "" {
			return nil, "", ErrNoFrontMatter
		}
		body = body[nl+1:]
	} else if strings.TrimSpace(string(body)) != "" {
		return nil, "", ErrNoFrontMatter
	} else {
		body = nil
	}
	fm := &FrontMatter{}
	if err := yaml.Unmarshal(header, fm); err != nil {
		return nil, "", fmt.Errorf("decode front matter: %w", err)
	}
	fm.Title = strings.TrimSpace(fm.Title)
	fm.Number = strings.TrimSpace(fm.Number)
	if fm.Title == "" || fm.Number == "" {
		return nil, "", fmt.Errorf("front matter requires title and number")
	}
	return fm, string(body), nil
}
