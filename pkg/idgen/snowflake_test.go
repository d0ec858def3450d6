package idgen

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextIDUnique(t *testing.T) {
	Init(1)

	const n = 10000
	var mu sync.Mutex
	seen := make(map[int64]bool, n)

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < n/4; i++ {
				id := NextID()
				mu.Lock()
				assert.False(t, seen[id], "ID 重复: %d", id)
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
}

func TestGeneratedIDFormats(t *testing.T) {
	orderID := GenerateOrderID()
	assert.True(t, strings.HasPrefix(orderID, "ORD"))
	assert.Len(t, orderID, 3+14+8)

	flowNo := GenerateFlowNo()
	assert.True(t, strings.HasPrefix(flowNo, "FLW"))

	assert.NotEqual(t, GenerateUID(), GenerateUID())
}
