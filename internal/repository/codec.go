package repository

import (
	"encoding/json"

	"TrendPulse/internal/domain/models"
)

func encodeWeights(w models.TrendWeights) ([]byte, error) {
	return json.Marshal(w)
}

func decodeWeights(data []byte) (models.TrendWeights, error) {
	var w models.TrendWeights
	if len(data) == 0 {
		return models.DefaultWeights(), nil
	}
	err := json.Unmarshal(data, &w)
	return w, err
}
