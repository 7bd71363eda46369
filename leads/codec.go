package leads

import (
	"encoding/json"
	"fmt"

	"github.com/n0rdy/leadflow/common"
)

func EncodeLead(lead common.Lead) (string, error) {
	body, err := json.Marshal(lead)
	if err != nil {
		return "", fmt.Errorf("encode lead %s: %w", lead.ID, err)
	}
	return string(body), nil
}

func DecodeLead(body string) (common.Lead, error) {
	var lead common.Lead
	if err := json.Unmarshal([]byte(body), &lead); err != nil {
		return common.Lead{}, fmt.Errorf("decode lead: %w", err)
	}
	return lead, nil
}
