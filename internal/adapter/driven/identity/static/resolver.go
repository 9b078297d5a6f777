package static

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/sorenkv/glance/internal/core/domain"
)

// Resolver maps bearer tokens to user identities from a static table. It
// stands in for a real identity provider in development and tests.
// implements port.IdentityResolver
type Resolver struct {
	mu     sync.RWMutex
	tokens map[string]domain.UserID
}

func NewResolver(tokens map[string]domain.UserID) *Resolver {
	if tokens == nil {
		tokens = make(map[string]domain.UserID)
	}
	return &Resolver{tokens: tokens}
}

// LoadFile reads a token table, one "token user-id" pair per line. Blank
// lines and #-comments are skipped.
func LoadFile(path string) (*Resolver, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	tokens := make(map[string]domain.UserID)
	scanner := bufio.NewScanner(file)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 2 {
			return nil, fmt.Errorf("%s:%d: expected \"token user-id\"", path, line)
		}
		tokens[fields[0]] = domain.UserID(fields[1])
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return NewResolver(tokens), nil
}

func (r *Resolver) Resolve(ctx context.Context, token string) (domain.UserID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.tokens[token]
	if !ok {
		return "", domain.ErrUnauthenticated
	}
	return id, nil
}
