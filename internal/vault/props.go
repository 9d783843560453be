package vault

import (
	"context"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Properties implements the query engine's property lookup against the
// frontmatter of the vault's documents. Results are memoized per file for the
// lifetime of the source. A missing file, a file without a frontmatter block,
// or a block that fails to parse all resolve to no properties, never an
// error.
type Properties struct {
	vault *Vault

	mu    sync.Mutex
	cache map[string]map[string]any
}

// NewProperties builds a property source over the vault.
func NewProperties(v *Vault) *Properties {
	return &Properties{
		vault: v,
		cache: make(map[string]map[string]any),
	}
}

// Properties resolves the top-level frontmatter keys of one document.
func (p *Properties) Properties(ctx context.Context, path string) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	cached, ok := p.cache[path]
	p.mu.Unlock()

	if ok {
		return cached, nil
	}

	props := p.load(path)

	p.mu.Lock()
	p.cache[path] = props
	p.mu.Unlock()

	return props, nil
}

// Invalidate drops the memoized properties for one document, or for all
// documents when path is empty.
func (p *Properties) Invalidate(path string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if path == "" {
		p.cache = make(map[string]map[string]any)

		return
	}

	delete(p.cache, path)
}

func (p *Properties) load(path string) map[string]any {
	data, err := p.vault.ReadFile(path)
	if err != nil {
		return nil
	}

	block, ok := frontmatterBlock(string(data))
	if !ok {
		return nil
	}

	var props map[string]any
	if err := yaml.Unmarshal([]byte(block), &props); err != nil {
		return nil
	}

	return props
}

// frontmatterBlock returns the YAML between the leading "---" fence and its
// closing fence. The opening fence must be the very first line.
func frontmatterBlock(content string) (string, bool) {
	lines := strings.SplitAfter(content, "\n")
	if len(lines) == 0 || strings.TrimRight(lines[0], "\r\n") != "---" {
		return "", false
	}

	var block strings.Builder

	for _, line := range lines[1:] {
		if strings.TrimRight(line, "\r\n") == "---" {
			return block.String(), true
		}

		block.WriteString(line)
	}

	return "", false
}
