package utilities

import (
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/segmentio/ksuid"
)

// NewKSUID generates a new globally unique KSUID string.
func NewKSUID() string {
	return ksuid.New().String()
}

// IDGenerator hands out snowflake ids from a single node.
type IDGenerator struct {
	node *snowflake.Node
}

// NewIDGenerator creates a generator for nodeID (0-1023).
func NewIDGenerator(nodeID int64) (*IDGenerator, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("snowflake node %d: %w", nodeID, err)
	}
	return &IDGenerator{node: node}, nil
}

func (g *IDGenerator) Next() int64 {
	return g.node.Generate().Int64()
}

var (
	defaultGenOnce sync.Once
	defaultGen     *IDGenerator
)

// DefaultIDGenerator uses SNOWFLAKE_NODE, falling back to node 1 when it
// is unset or invalid.
func DefaultIDGenerator() *IDGenerator {
	defaultGenOnce.Do(func() {
		nodeID := int64(1)
		if v, err := strconv.ParseInt(os.Getenv("SNOWFLAKE_NODE"), 10, 64); err == nil {
			nodeID = v
		}
		g, err := NewIDGenerator(nodeID)
		if err != nil {
			g, _ = NewIDGenerator(1)
		}
		defaultGen = g
	})
	return defaultGen
}
