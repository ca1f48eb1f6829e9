package schema

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"

	"github.com/spektr-org/kpideck/source"
)

// LoadRegistry reads the ordered client list from configs/clients.json.
// A missing registry is an empty list.
func LoadRegistry(ctx context.Context, f source.Fetcher) ([]ClientSummary, error) {
	data, err := f.Fetch(ctx, source.RegistryPath())
	if err != nil {
		if stderrors.Is(err, source.ErrNotFound) {
			return []ClientSummary{}, nil
		}
		return nil, fmt.Errorf("failed to fetch client registry: %w", err)
	}

	var clients []ClientSummary
	if err := json.Unmarshal(data, &clients); err != nil {
		return nil, fmt.Errorf("failed to parse client registry: %w", err)
	}
	for i, c := range clients {
		if !source.ValidClientID(c.ID) {
			return nil, fmt.Errorf("client registry entry %d: invalid id %q", i, c.ID)
		}
	}
	return clients, nil
}
