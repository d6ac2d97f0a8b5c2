package feed

import (
	"bytes"
	"fmt"

	"github.com/mmcdole/gofeed"
)

// Parser turns raw RSS, Atom or JSON feed bytes into gofeed items.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// Run parses data. gofeed parsers keep per-document state, so each call
// builds its own.
func (p *Parser) Run(data []byte) ([]*gofeed.Item, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("failed to parse feed: body is empty")
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	return feed.Items, nil
}
