package embedding

import (
	"context"
	"fmt"
	"strings"
)

// Provider produces fixed-dimension embeddings from input strings
type Provider interface {
	Dimensions() int
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}

// NewProvider selects an embedding provider by name ("hash", "dev" or "").
func NewProvider(providerName string, dims int) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(providerName)) {
	case "hash", "", "dev":
		return NewHashProvider(dims), nil
	}
	return nil, fmt.Errorf("unknown embedding provider %q", providerName)
}
