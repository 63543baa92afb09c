package logschema

import (
	"fmt"
	"sort"
	"strings"
)

// Schema 定义每个日志事件所需的关键字段，便于集中校验。
type Schema struct {
	Event    string
	Required []string
}

var schemas = map[string]Schema{
	"close_event": {
		Event:    "close_event",
		Required: []string{"symbol", "type", "qty", "price"},
	},
	"fill_event": {
		Event:    "fill_event",
		Required: []string{"symbol", "type", "qty", "price", "pnl"},
	},
	"unstuck_event": {
		Event:    "unstuck_event",
		Required: []string{"symbol", "side", "allowance"},
	},
	"backtest_summary": {
		Event:    "backtest_summary",
		Required: []string{"runId", "finalBalance", "pnlCumsum"},
	},
}

// Known 返回所有事件名，便于外部生成文档。
func Known() []string {
	names := make([]string, 0, len(schemas))
	for k := range schemas {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Validate 检查日志字段是否包含 schema 中要求的 key。
func Validate(event string, fields map[string]interface{}) error {
	s, ok := schemas[event]
	if !ok {
		return nil
	}
	var missing []string
	for _, key := range s.Required {
		if _, exists := fields[key]; !exists {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing fields: %s", strings.Join(missing, ","))
	}
	return nil
}
