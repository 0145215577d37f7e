package converter

import (
	"encoding/json"
	"fmt"

	"github.com/james-see/midiscore/pkg/score"
)

// Document is the JSON form of a score tagged with its time unit
type Document struct {
	Unit  string          `json:"unit"`
	Score json.RawMessage `json:"score"`
}

// EncodeJSON marshals a score together with its unit
func EncodeJSON[T score.Time](s *score.Score[T]) ([]byte, error) {
	body, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode score: %w", err)
	}
	return json.MarshalIndent(Document{Unit: score.UnitOf[T]().String(), Score: body}, "", "  ")
}

// DecodeJSON reads a Document and returns its score converted to ticks
func DecodeJSON(data []byte) (*score.Score[score.Tick], error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	unit, err := score.ParseUnit(doc.Unit)
	if err != nil {
		return nil, err
	}
	switch unit {
	case score.UnitTick:
		return decodeScore[score.Tick](doc.Score)
	case score.UnitQuarter:
		s, err := decodeScore[score.Quarter](doc.Score)
		if err != nil {
			return nil, err
		}
		return Convert[score.Tick](s, 0)
	default:
		s, err := decodeScore[score.Second](doc.Score)
		if err != nil {
			return nil, err
		}
		return Convert[score.Tick](s, 0)
	}
}

func decodeScore[T score.Time](raw json.RawMessage) (*score.Score[T], error) {
	var s score.Score[T]
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("failed to decode score: %w", err)
	}
	for i, t := range s.Tracks {
		if t == nil {
			return nil, fmt.Errorf("track %d is null", i)
		}
	}
	return &s, nil
}

// EncodeJSONAs converts a tick score into unit and marshals it
func EncodeJSONAs(s *score.Score[score.Tick], unit score.Unit, minDur float64) ([]byte, error) {
	switch unit {
	case score.UnitTick:
		out, err := Convert(s, score.Tick(minDur))
		if err != nil {
			return nil, err
		}
		return EncodeJSON(out)
	case score.UnitQuarter:
		out, err := Convert(s, score.Quarter(minDur))
		if err != nil {
			return nil, err
		}
		return EncodeJSON(out)
	default:
		out, err := Convert(s, score.Second(minDur))
		if err != nil {
			return nil, err
		}
		return EncodeJSON(out)
	}
}
