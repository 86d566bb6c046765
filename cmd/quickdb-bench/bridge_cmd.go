package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	qbridge "github.com/forbearing/quickdb/bridge"
	"github.com/forbearing/quickdb/config"
	loggerzap "github.com/forbearing/quickdb/logger/zap"
)

var bridgeCmd = &cobra.Command{
	Use:   "bridge",
	Short: "exercise create and find_by_id through the JSON bridge",
	RunE:  runBridgeBench,
}

type bridgeResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

func bridgeCall(action string, body any) (*bridgeResponse, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal %s request: %w", action, err)
	}
	resp, err := qbridge.Dispatch(action, raw)
	if err != nil {
		return nil, fmt.Errorf("dispatch %s: %w", action, err)
	}
	var r bridgeResponse
	if err := json.Unmarshal(resp, &r); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", action, err)
	}
	if !r.Success {
		return nil, fmt.Errorf("%s failed: %s", action, r.Error)
	}
	return &r, nil
}

func runBridgeBench(cmd *cobra.Command, args []string) error {
	if err := bootstrap(); err != nil {
		return err
	}
	defer config.Clean()
	defer loggerzap.Clean()

	if _, err := bridgeCall("add_database", map[string]any{
		"database": map[string]any{
			"alias":       alias,
			"db_type":     dbType,
			"sqlite_path": sqlitePath,
			"host":        host,
			"port":        port,
			"database":    database,
			"user":        user,
			"password":    password,
			"id_strategy": idStrategy,
		},
	}); err != nil {
		return err
	}

	if _, err := bridgeCall("register_model", map[string]any{
		"table": "bridge_bench_items",
		"fields": map[string]any{
			"name":  map[string]any{"kind": "string"},
			"value": map[string]any{"kind": "integer"},
		},
	}); err != nil {
		return err
	}

	ids := make([]string, 0, rows)
	start := time.Now()
	for i := 0; i < rows; i++ {
		resp, err := bridgeCall("create", map[string]any{
			"alias": alias,
			"table": "bridge_bench_items",
			"data": map[string]any{
				"name":  map[string]any{"kind": 5, "val": fmt.Sprintf("item-%d", i)},
				"value": map[string]any{"kind": 2, "val": i},
			},
		})
		if err != nil {
			return err
		}
		var row map[string]json.RawMessage
		if err := json.Unmarshal(resp.Data, &row); err != nil {
			return fmt.Errorf("decode created row: %w", err)
		}
		var tagged struct {
			Val string `json:"val"`
		}
		if idRaw, ok := row["id"]; ok {
			if err := json.Unmarshal(idRaw, &tagged); err == nil && tagged.Val != "" {
				ids = append(ids, tagged.Val)
			}
		}
	}
	createElapsed := time.Since(start)

	start = time.Now()
	for _, id := range ids {
		if _, err := bridgeCall("find_by_id", map[string]any{
			"alias": alias,
			"table": "bridge_bench_items",
			"id":    id,
		}); err != nil {
			return err
		}
	}
	findElapsed := time.Since(start)

	fmt.Printf("bridge rows: %d\n", len(ids))
	fmt.Printf("bridge create:     %s (%.3fms/op)\n", createElapsed, msPerOp(createElapsed, len(ids)))
	fmt.Printf("bridge find_by_id: %s (%.3fms/op)\n", findElapsed, msPerOp(findElapsed, len(ids)))

	return nil
}
