package evaluation

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// QAPair is one evaluation case. Datasets written for earlier revisions
// carry the expected text under "answer"; both keys load.
type QAPair struct {
	Question       string `json:"question"`
	ExpectedAnswer string `json:"expected_answer"`
	LegacyAnswer   string `json:"answer"`
}

func (p QAPair) Expected() string {
	if strings.TrimSpace(p.ExpectedAnswer) != "" {
		return p.ExpectedAnswer
	}
	return p.LegacyAnswer
}

type Dataset struct {
	QAPairs []QAPair `json:"qa_pairs"`
}

func LoadDataset(path string) (Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Dataset{}, fmt.Errorf("read dataset: %w", err)
	}

	var dataset Dataset
	if err := json.Unmarshal(data, &dataset); err != nil {
		return Dataset{}, fmt.Errorf("parse dataset: %w", err)
	}
	if len(dataset.QAPairs) == 0 {
		return Dataset{}, fmt.Errorf("dataset %s contains no qa_pairs", path)
	}
	for i, pair := range dataset.QAPairs {
		if strings.TrimSpace(pair.Question) == "" {
			return Dataset{}, fmt.Errorf("dataset %s: qa_pairs[%d] has no question", path, i)
		}
	}
	return dataset, nil
}
