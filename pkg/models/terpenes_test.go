package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTerpeneMap_RankedTiesByKey(t *testing.T) {
	m := TerpeneMap{Ocimene: 0.3, Humulene: 0.3, Myrcene: 0.1, Limonene: 0.3}

	for i := 0; i < 20; i++ {
		assert.Equal(t, []TerpeneShare{
			{Key: Humulene, Value: 0.3},
			{Key: Limonene, Value: 0.3},
			{Key: Ocimene, Value: 0.3},
			{Key: Myrcene, Value: 0.1},
		}, m.Ranked())
	}
}
