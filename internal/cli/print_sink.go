package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// printSink writes normalized rows to stdout instead of the database.
type printSink struct{}

func (printSink) InsertRows(_ context.Context, rows []map[string]any) error {
	enc := json.NewEncoder(os.Stdout)
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			return fmt.Errorf("print row: %w", err)
		}
	}
	return nil
}
