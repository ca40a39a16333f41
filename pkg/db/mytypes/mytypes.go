package mytypes

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/mpapenbr/racetiming-analytics/pkg/model"
)

// FlagSlice is stored as json array.
type FlagSlice []model.Flag

func (h *FlagSlice) Scan(value any) error {
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, h)
	case string:
		return json.Unmarshal([]byte(v), h)
	default:
		return fmt.Errorf("unsupported type %T for FlagSlice", value)
	}
}

func (h FlagSlice) Value() (driver.Value, error) {
	if h == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(h)
}
