package parser

import (
	"os"
	"path/filepath"
)

// ParseFile reads and parses an Atlas-8 assembly file, the recommended
// entry point for callers working from a path rather than an in-memory
// source string.
func ParseFile(filePath string) (*Program, *Parser, error) {
	filename := filepath.Base(filePath)
	content, err := os.ReadFile(filePath) // #nosec G304 -- user-provided assembly file path
	if err != nil {
		return nil, nil, NewError(Position{Filename: filename}, ErrorFileIO, err.Error())
	}
	p := NewParser(string(content), filename)
	program, err := p.Parse()
	return program, p, err
}
